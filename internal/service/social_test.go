package service

import (
	"context"
	"testing"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRendersMarkdown(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")
	card := env.seedPublicCard(t, "ada", "Ember Drake")

	m, err := env.social.CreateMemory("ada", MemoryInput{Body: "Pulled it from a **booster**", CardID: &card.ID})
	require.NoError(t, err)

	assert.Contains(t, m.BodyHTML, "<strong>booster</strong>")
	assert.Equal(t, model.VisibilityPublic, m.Visibility)

	memories, err := env.social.CardMemories("", card.ID)
	require.NoError(t, err)
	require.Len(t, memories, 1)

	_, err = env.social.CreateMemory("ada", MemoryInput{Body: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRepliesStayOneLevelDeep(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")
	env.seedAccount(t, "bob")
	card := env.seedPublicCard(t, "ada", "Ember Drake")

	root, err := env.social.AddComment("bob", model.TargetCard, card.ID, nil, "Great pull")
	require.NoError(t, err)
	reply, err := env.social.AddComment("ada", model.TargetCard, card.ID, &root.ID, "Thanks")
	require.NoError(t, err)
	nested, err := env.social.AddComment("bob", model.TargetCard, card.ID, &reply.ID, "Anytime")
	require.NoError(t, err)

	require.NotNil(t, nested.ParentID)
	assert.Equal(t, root.ID, *nested.ParentID)

	comments, err := env.social.Comments("", model.TargetCard, card.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 3)

	topic := model.Topic(model.TargetCard, card.ID)
	require.Len(t, env.publisher.events, 3)
	for _, e := range env.publisher.events {
		assert.Equal(t, topic, e.Topic)
		assert.Equal(t, EventCommentCreated, e.Type)
	}

	assert.ErrorIs(t, env.social.DeleteComment("ada", root.ID), ErrNotOwner)
	require.NoError(t, env.social.DeleteComment("bob", root.ID))
	assert.Equal(t, EventCommentDeleted, env.publisher.events[len(env.publisher.events)-1].Type)
}

func TestCommentOnPrivateCardIsHidden(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")
	env.seedAccount(t, "bob")
	private, err := env.cards.Create(context.Background(), "ada", CardInput{Title: "Secret"})
	require.NoError(t, err)

	_, err = env.social.AddComment("bob", model.TargetCard, private.ID, nil, "Hi")
	assert.ErrorIs(t, err, repository.ErrCardNotFound)

	_, err = env.social.AddComment("bob", "planet", "x", nil, "Hi")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToggleReaction(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")
	env.seedAccount(t, "bob")
	card := env.seedPublicCard(t, "ada", "Ember Drake")

	summary, err := env.social.ToggleReaction("bob", model.TargetCard, card.ID, model.ReactionFire)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Counts[model.ReactionFire])
	assert.Equal(t, []string{model.ReactionFire}, summary.Mine)

	last := env.publisher.events[len(env.publisher.events)-1]
	assert.Equal(t, EventReactionUpdated, last.Type)
	broadcast, ok := last.Data.(model.ReactionSummary)
	require.True(t, ok)
	assert.Nil(t, broadcast.Mine)

	summary, err = env.social.ToggleReaction("bob", model.TargetCard, card.ID, model.ReactionFire)
	require.NoError(t, err)
	assert.Zero(t, summary.Counts[model.ReactionFire])

	_, err = env.social.ToggleReaction("bob", model.TargetCard, card.ID, "meh")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCollectionMembership(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")
	env.seedAccount(t, "bob")
	card := env.seedPublicCard(t, "ada", "Ember Drake")

	c, err := env.collections.Create("ada", CollectionInput{Title: "Dragons", Visibility: model.VisibilityPublic})
	require.NoError(t, err)

	added, err := env.collections.AddCard("ada", c.ID, card.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = env.collections.AddCard("ada", c.ID, card.ID)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = env.collections.AddCard("bob", c.ID, card.ID)
	assert.Error(t, err)

	cards, err := env.collections.Cards("bob", c.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, card.ID, cards[0].ID)

	require.NoError(t, env.collections.RemoveCard("ada", c.ID, card.ID))
	cards, err = env.collections.Cards("ada", c.ID)
	require.NoError(t, err)
	assert.Empty(t, cards)
}
