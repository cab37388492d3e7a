package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrBatchNotFound = errors.New("upload batch not found")

type UploadRepository interface {
	CreateBatch(batch *model.UploadBatch, items []*model.UploadBatchItem) error
	BatchByID(id string) (*model.UploadBatch, error)
	Items(batchID string) ([]*model.UploadBatchItem, error)
	Unfinished() ([]*model.UploadBatch, error)
	SetBatchStatus(id, status string) error
	FinishItem(item *model.UploadBatchItem) error
}

type uploadRepository struct {
	db *sqlx.DB
}

func NewUploadRepository(db *sqlx.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) CreateBatch(batch *model.UploadBatch, items []*model.UploadBatchItem) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO upload_batches (id, user_id, status, total, processed, failed, auto_analyze, created_at, updated_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		batch.ID, batch.UserID, batch.Status, batch.Total, 0, 0, batch.Analyze, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	query := `INSERT INTO upload_batch_items (id, batch_id, position, filename, storage_path, mime_type, size, status, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, item := range items {
		_, err = tx.Exec(query,
			item.ID, item.BatchID, item.Position, item.Filename, item.StoragePath, item.MimeType, item.Size, item.Status, item.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create batch item %d: %w", item.Position, err)
		}
	}

	return tx.Commit()
}

func (r *uploadRepository) BatchByID(id string) (*model.UploadBatch, error) {
	batch := &model.UploadBatch{}
	err := r.db.Get(batch, `SELECT * FROM upload_batches WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrBatchNotFound
	}
	return batch, err
}

func (r *uploadRepository) Items(batchID string) ([]*model.UploadBatchItem, error) {
	var items []*model.UploadBatchItem
	query := `SELECT * FROM upload_batch_items WHERE batch_id = $1 ORDER BY position ASC`

	err := r.db.Select(&items, query, batchID)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Unfinished returns batches interrupted by a restart, oldest first.
func (r *uploadRepository) Unfinished() ([]*model.UploadBatch, error) {
	var batches []*model.UploadBatch
	query := `SELECT * FROM upload_batches WHERE status IN ($1, $2) ORDER BY created_at ASC`

	err := r.db.Select(&batches, query, model.BatchStatusPending, model.BatchStatusProcessing)
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *uploadRepository) SetBatchStatus(id, status string) error {
	now := time.Now()
	var completedAt *time.Time
	if status == model.BatchStatusCompleted || status == model.BatchStatusFailed {
		completedAt = &now
	}

	result, err := r.db.Exec(`UPDATE upload_batches SET status = $1, updated_at = $2, completed_at = $3 WHERE id = $4`,
		status, now, completedAt, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// FinishItem stores the item outcome and bumps the batch progress counters.
func (r *uploadRepository) FinishItem(item *model.UploadBatchItem) error {
	item.UpdatedAt = time.Now()

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE upload_batch_items SET status = $1, card_id = $2, error = $3, updated_at = $4 WHERE id = $5`,
		item.Status, item.CardID, item.Error, item.UpdatedAt, item.ID)
	if err != nil {
		return err
	}

	failed := 0
	if item.Status == model.BatchStatusFailed {
		failed = 1
	}
	_, err = tx.Exec(`UPDATE upload_batches SET processed = processed + 1, failed = failed + $1, updated_at = $2 WHERE id = $3`,
		failed, item.UpdatedAt, item.BatchID)
	if err != nil {
		return err
	}

	return tx.Commit()
}
