package service

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportRejectsNonPSD(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")

	_, err := env.psd.Import(context.Background(), "ada", bytes.NewReader(pngBytes(t)), "art.psd")
	assert.ErrorIs(t, err, ErrInvalidInput)

	// right magic, broken body
	_, err = env.psd.Import(context.Background(), "ada", bytes.NewReader([]byte("8BPS\x00\x01garbage")), "art.psd")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, env.storage.Keys())
}

func seedImport(t *testing.T, env *testEnv, userID string) *model.PSDImport {
	t.Helper()
	imp := &model.PSDImport{
		ID:            "imp-1",
		UserID:        userID,
		Filename:      "ember_drake.psd",
		SourcePath:    "private/psds/imp-1.psd",
		Width:         750,
		Height:        1050,
		LayerCount:    2,
		CompositePath: "public/composites/imp-1.png",
		CompositeURL:  "https://cdn.example/imp-1.png",
		Layers: model.PSDLayers{
			{ID: "layer-1", Name: "Background", Path: "Background", Visible: true, Opacity: 100, Role: model.LayerRoleBackground},
			{ID: "layer-2", Name: "Dragon", Path: "Dragon", Visible: true, Opacity: 80, Role: model.LayerRoleCharacter},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, repository.NewPSDImportRepository(env.db).Create(imp))
	return imp
}

func TestCreateCardFromImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "ada")
	env.seedAccount(t, "bob")
	imp := seedImport(t, env, "ada")

	_, err := env.psd.CreateCard(ctx, "bob", imp.ID, nil, "")
	assert.ErrorIs(t, err, repository.ErrPSDImportNotFound)

	card, err := env.psd.CreateCard(ctx, "ada", imp.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "ember_drake", card.Title)
	assert.Equal(t, model.CardSourcePSD, card.Source)
	assert.Equal(t, imp.CompositeURL, card.ImageURL)
	assert.True(t, card.IsDraft)
	assert.Equal(t, imp.ID, card.DesignMetadata["psd_import_id"])

	linked, err := env.psd.Get("ada", imp.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.CardID)
	assert.Equal(t, card.ID, *linked.CardID)

	_, err = env.psd.CreateCard(ctx, "ada", imp.ID, nil, "again")
	assert.ErrorIs(t, err, ErrImportHasCard)

	list, err := env.psd.List("ada")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = env.psd.List("bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportLayeredDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")

	data, err := os.ReadFile("../psd/testdata/card.psd")
	require.NoError(t, err)

	imp, err := env.psd.Import(context.Background(), "ada", bytes.NewReader(data), "card.psd")
	require.NoError(t, err)
	assert.Equal(t, 60, imp.Width)
	assert.Equal(t, 84, imp.Height)
	assert.Equal(t, 6, imp.LayerCount)
	assert.NotEmpty(t, imp.CompositeURL)
	assert.Contains(t, env.storage.Keys(), imp.CompositePath)

	byPath := map[string]model.PSDLayer{}
	for _, l := range imp.Layers {
		byPath[l.Path] = l
	}
	assert.NotEmpty(t, byPath["Background"].ImageURL)
	assert.True(t, byPath["Hero Shine"].Clipped)
	// hidden layers keep their manifest entry but no bitmap
	assert.Empty(t, byPath["Foil Sparkles ✦"].ImageURL)
	assert.Empty(t, byPath["Texts/Card Name"].ImageURL)

	stored, err := env.psd.Get("ada", imp.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Layers, 6)
}

// staleImports hides the card link, as a concurrent request that read the
// import before it was linked would see it.
type staleImports struct {
	repository.PSDImportRepository
}

func (r staleImports) ByID(id string) (*model.PSDImport, error) {
	imp, err := r.PSDImportRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	imp.CardID = nil
	return imp, nil
}

func TestCreateCardFromImportLinksOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "ada")
	imp := seedImport(t, env, "ada")

	svc := NewPSDService(staleImports{repository.NewPSDImportRepository(env.db)}, env.files, env.cards, 0)

	first, err := svc.CreateCard(ctx, "ada", imp.ID, nil, "")
	require.NoError(t, err)

	_, err = svc.CreateCard(ctx, "ada", imp.ID, nil, "second")
	assert.ErrorIs(t, err, ErrImportHasCard)

	cards, err := env.cards.ListMine("ada", model.CardFilter{})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, first.ID, cards[0].ID)

	linked, err := env.psd.Get("ada", imp.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, *linked.CardID)
}
