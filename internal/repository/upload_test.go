package repository

import (
	"testing"
	"time"

	"github.com/cardshow/cardshow/internal/db/dbtest"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadBatchProgress(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "u1")
	repo := NewUploadRepository(database)

	now := time.Now()
	batch := &model.UploadBatch{ID: "b1", UserID: "u1", Status: model.BatchStatusPending, Total: 2, CreatedAt: now, UpdatedAt: now}
	items := []*model.UploadBatchItem{
		{ID: "i1", BatchID: "b1", Position: 0, Filename: "a.png", StoragePath: "private/uploads/a.png", MimeType: "image/png", Size: 10, Status: model.BatchStatusPending, UpdatedAt: now},
		{ID: "i2", BatchID: "b1", Position: 1, Filename: "b.txt", StoragePath: "private/uploads/b.txt", MimeType: "text/plain", Size: 5, Status: model.BatchStatusPending, UpdatedAt: now},
	}
	require.NoError(t, repo.CreateBatch(batch, items))

	unfinished, err := repo.Unfinished()
	require.NoError(t, err)
	require.Len(t, unfinished, 1)

	cardID := "c1"
	items[0].Status = model.BatchStatusCompleted
	items[0].CardID = &cardID
	require.NoError(t, repo.FinishItem(items[0]))
	items[1].Status = model.BatchStatusFailed
	items[1].Error = "unsupported file type"
	require.NoError(t, repo.FinishItem(items[1]))
	require.NoError(t, repo.SetBatchStatus("b1", model.BatchStatusCompleted))

	got, err := repo.BatchByID("b1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Processed)
	assert.Equal(t, 1, got.Failed)
	assert.True(t, got.Done())
	assert.NotNil(t, got.CompletedAt)

	stored, err := repo.Items("b1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "unsupported file type", stored[1].Error)

	unfinished, err = repo.Unfinished()
	require.NoError(t, err)
	assert.Empty(t, unfinished)
}
