package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBatchProcessesItemsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "ada")

	batch, err := env.upload.CreateBatch(ctx, "ada", []BatchFile{
		{Filename: "ember_drake-final.png", Body: bytes.NewReader(pngBytes(t))},
		{Filename: "notes.txt", Body: strings.NewReader("not an image")},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusPending, batch.Status)
	assert.Equal(t, 2, batch.Total)

	require.NoError(t, env.upload.ProcessBatch(ctx, batch.ID))

	done, err := env.upload.Batch("ada", batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, done.Status)
	assert.Equal(t, 2, done.Processed)
	assert.Equal(t, 1, done.Failed)
	require.Len(t, done.Items, 2)

	first := done.Items[0]
	assert.Equal(t, model.BatchStatusCompleted, first.Status)
	require.NotNil(t, first.CardID)
	card, err := env.cards.Get(ctx, "ada", *first.CardID)
	require.NoError(t, err)
	assert.Equal(t, "ember drake final", card.Title)
	assert.Equal(t, model.CardSourceUpload, card.Source)
	assert.True(t, card.IsDraft)
	assert.NotEmpty(t, card.ImageURL)

	assert.Equal(t, model.BatchStatusFailed, done.Items[1].Status)
	assert.NotEmpty(t, done.Items[1].Error)

	// processing again is a no-op
	require.NoError(t, env.upload.ProcessBatch(ctx, batch.ID))
	unfinished, err := env.upload.Unfinished()
	require.NoError(t, err)
	assert.Empty(t, unfinished)
}

func TestBatchUsesAnalysisWhenRequested(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "ada")
	env.analyzer.err = nil
	env.analyzer.result = &model.CardAnalysis{Title: "Crimson Sentinel", Rarity: model.RarityEpic, Tags: []string{"robot"}}

	analyze := true
	batch, err := env.upload.CreateBatch(ctx, "ada", []BatchFile{
		{Filename: "scan.png", Body: bytes.NewReader(pngBytes(t))},
	}, &analyze)
	require.NoError(t, err)
	require.NoError(t, env.upload.ProcessBatch(ctx, batch.ID))

	done, err := env.upload.Batch("ada", batch.ID)
	require.NoError(t, err)
	require.NotNil(t, done.Items[0].CardID)
	card, err := env.cards.Get(ctx, "ada", *done.Items[0].CardID)
	require.NoError(t, err)
	assert.Equal(t, "Crimson Sentinel", card.Title)
	assert.Equal(t, model.RarityEpic, card.Rarity)
	assert.Equal(t, 1, env.analyzer.calls)
}

func TestCreateBatchLimits(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ada")
	env.seedAccount(t, "bob")
	ctx := context.Background()

	_, err := env.upload.CreateBatch(ctx, "ada", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	files := make([]BatchFile, 4)
	for i := range files {
		files[i] = BatchFile{Filename: "a.png", Body: bytes.NewReader(pngBytes(t))}
	}
	_, err = env.upload.CreateBatch(ctx, "ada", files, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	batch, err := env.upload.CreateBatch(ctx, "ada", files[:1], nil)
	require.NoError(t, err)
	_, err = env.upload.Batch("bob", batch.ID)
	assert.ErrorIs(t, err, repository.ErrBatchNotFound)
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "ember drake", titleFromFilename("ember_drake.png"))
	assert.Equal(t, "Untitled card", titleFromFilename(".png"))
}
