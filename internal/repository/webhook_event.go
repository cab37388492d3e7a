package repository

import (
	"time"

	"github.com/cardshow/cardshow/internal/db"
	"github.com/jmoiron/sqlx"
)

// WebhookEventRepository remembers processed provider events so replays are ignored.
type WebhookEventRepository interface {
	Seen(id string) (bool, error)
	Record(id, eventType string) error
}

type webhookEventRepository struct {
	db *sqlx.DB
}

func NewWebhookEventRepository(db *sqlx.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Seen(id string) (bool, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM webhook_events WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *webhookEventRepository) Record(id, eventType string) error {
	_, err := r.db.Exec(`INSERT INTO webhook_events (id, type, received_at) VALUES ($1, $2, $3)`, id, eventType, time.Now())
	if err != nil && db.IsUniqueViolation(err) {
		return nil
	}
	return err
}
