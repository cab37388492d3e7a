package service

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emberDefinition = `---
title: Ember Drake
rarity: Legendary
tags: [Dragon, fire]
visibility: public
draft: false
preset: rainbow-foil
image: https://cdn.example/ember.png
---
Breathes **fire** across the arena.
`

func TestImportDir(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")

	fsys := fstest.MapFS{
		"cards/ember.md":   {Data: []byte(emberDefinition)},
		"cards/broken.md":  {Data: []byte("---\nrarity: shiny\n---\nbody\n")},
		"cards/README.txt": {Data: []byte("ignored")},
	}

	results, err := env.importer.ImportDir(context.Background(), "ada", fsys)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// WalkDir visits in lexical order
	assert.Equal(t, "cards/broken.md", results[0].File)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, "cards/ember.md", results[1].File)
	require.NotEmpty(t, results[1].CardID)

	card, err := env.cards.Get(context.Background(), "", results[1].CardID)
	require.NoError(t, err)
	assert.Equal(t, "Ember Drake", card.Title)
	assert.Equal(t, model.RarityLegendary, card.Rarity)
	assert.Equal(t, model.CardSourceImport, card.Source)
	assert.Equal(t, "Breathes **fire** across the arena.", card.Description)
	assert.Equal(t, "https://cdn.example/ember.png", card.ThumbnailURL)
	assert.ElementsMatch(t, []string{"dragon", "fire"}, []string(card.Tags))
	assert.Len(t, card.Effects, 2)
	assert.Equal(t, "ember.md", card.DesignMetadata["import_file"])
}

func TestImportFileRejectsUnknownPreset(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")

	_, err := env.importer.ImportFile(context.Background(), "ada", "x.md", []byte("---\ntitle: X\npreset: neon\n---\n"))

	assert.ErrorIs(t, err, ErrInvalidInput)
}
