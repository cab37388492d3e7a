package model

import "time"

const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

type UploadBatch struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Status      string     `db:"status" json:"status"`
	Total       int        `db:"total" json:"total"`
	Processed   int        `db:"processed" json:"processed"`
	Failed      int        `db:"failed" json:"failed"`
	Analyze     bool       `db:"auto_analyze" json:"auto_analyze"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	Items []*UploadBatchItem `db:"-" json:"items,omitempty"`
}

func (b *UploadBatch) Done() bool {
	return b.Status == BatchStatusCompleted || b.Status == BatchStatusFailed
}

type UploadBatchItem struct {
	ID          string    `db:"id" json:"id"`
	BatchID     string    `db:"batch_id" json:"batch_id"`
	Position    int       `db:"position" json:"position"`
	Filename    string    `db:"filename" json:"filename"`
	StoragePath string    `db:"storage_path" json:"-"`
	MimeType    string    `db:"mime_type" json:"mime_type"`
	Size        int64     `db:"size" json:"size"`
	Status      string    `db:"status" json:"status"`
	CardID      *string   `db:"card_id" json:"card_id,omitempty"`
	Error       string    `db:"error" json:"error,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
