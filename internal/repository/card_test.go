package repository

import (
	"testing"
	"time"

	"github.com/cardshow/cardshow/internal/db/dbtest"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardJSONColumnsRoundTrip(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "u1")
	repo := NewCardRepository(database)

	card := seedCard(t, repo, "c1", "u1")
	card.Tags = model.StringList{"dragon", "holo"}
	card.DesignMetadata = model.JSONObject{"frame": "gold"}
	card.Effects = model.Effects{{Type: model.EffectHolographic, Intensity: 80, BlendMode: "screen", Enabled: true}}
	require.NoError(t, repo.Update(card))

	got, err := repo.ByID("c1")
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"dragon", "holo"}, got.Tags)
	assert.Equal(t, "gold", got.DesignMetadata["frame"])
	require.Len(t, got.Effects, 1)
	assert.Equal(t, 80, got.Effects[0].Intensity)
}

func TestCardListingFiltersAndSorts(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "u1")
	dbtest.SeedUser(t, database, "u2")
	repo := NewCardRepository(database)

	common := seedCard(t, repo, "a", "u1")
	common.Title = "Zephyr"
	common.Rarity = model.RarityCommon
	common.Tags = model.StringList{"wind"}
	require.NoError(t, repo.Update(common))

	mythic := seedCard(t, repo, "b", "u1")
	mythic.Title = "Aurora"
	mythic.Rarity = model.RarityMythic
	require.NoError(t, repo.Update(mythic))

	draft := seedCard(t, repo, "c", "u2")
	draft.IsDraft = true
	require.NoError(t, repo.Update(draft))

	byTitle, err := repo.ByOwner("u1", model.CardFilter{Sort: model.CardSortTitle})
	require.NoError(t, err)
	require.Len(t, byTitle, 2)
	assert.Equal(t, "Aurora", byTitle[0].Title)

	byRarity, err := repo.ByOwner("u1", model.CardFilter{Sort: model.CardSortRarity})
	require.NoError(t, err)
	assert.Equal(t, "b", byRarity[0].ID)

	tagged, err := repo.ByOwner("u1", model.CardFilter{Tag: "wind"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "a", tagged[0].ID)

	public, err := repo.Public(model.CardFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, public, 2)

	paged, err := repo.Public(model.CardFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}

func TestCardDeleteMissing(t *testing.T) {
	database := dbtest.Open(t)
	repo := NewCardRepository(database)

	assert.ErrorIs(t, repo.Delete("nope"), ErrCardNotFound)
	_, err := repo.ByID("nope")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCollectionMembershipOrderAndDuplicates(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "u1")
	cards := NewCardRepository(database)
	repo := NewCollectionRepository(database)
	seedCard(t, cards, "c1", "u1")
	seedCard(t, cards, "c2", "u1")

	now := time.Now()
	require.NoError(t, repo.Create(&model.Collection{ID: "col", OwnerID: "u1", Title: "Dragons", Visibility: model.VisibilityPrivate, CreatedAt: now, UpdatedAt: now}))

	added, err := repo.AddCard("col", "c2")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.AddCard("col", "c1")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.AddCard("col", "c2")
	require.NoError(t, err)
	assert.False(t, added)

	members, err := repo.Cards("col")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "c2", members[0].ID)
	assert.Equal(t, "c1", members[1].ID)

	collection, err := repo.ByID("col")
	require.NoError(t, err)
	assert.Equal(t, 2, collection.CardCount)

	require.NoError(t, repo.RemoveCard("col", "c2"))
	assert.ErrorIs(t, repo.RemoveCard("col", "c2"), ErrCardNotFound)

	mine, err := repo.ByOwner("u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].CardCount)
}
