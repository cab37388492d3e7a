package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrMemoryNotFound = errors.New("memory not found")

type MemoryRepository interface {
	Create(memory *model.Memory) error
	ByID(id string) (*model.Memory, error)
	ByUser(userID string, limit, offset int) ([]*model.Memory, error)
	Public(limit, offset int) ([]*model.Memory, error)
	ByCard(cardID string) ([]*model.Memory, error)
	Update(memory *model.Memory) error
	Delete(id string) error
}

type memoryRepository struct {
	db *sqlx.DB
}

func NewMemoryRepository(db *sqlx.DB) MemoryRepository {
	return &memoryRepository{db: db}
}

func (r *memoryRepository) Create(memory *model.Memory) error {
	query := `INSERT INTO memories (id, user_id, card_id, collection_id, body, body_html, visibility, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		memory.ID,
		memory.UserID,
		memory.CardID,
		memory.CollectionID,
		memory.Body,
		memory.BodyHTML,
		memory.Visibility,
		memory.CreatedAt,
		memory.UpdatedAt,
	)
	return err
}

func (r *memoryRepository) ByID(id string) (*model.Memory, error) {
	memory := &model.Memory{}
	err := r.db.Get(memory, `SELECT * FROM memories WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrMemoryNotFound
	}
	return memory, err
}

func (r *memoryRepository) ByUser(userID string, limit, offset int) ([]*model.Memory, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	return r.list(w, limit, offset)
}

func (r *memoryRepository) Public(limit, offset int) ([]*model.Memory, error) {
	w := &where{}
	w.add("visibility = ?", model.VisibilityPublic)
	return r.list(w, limit, offset)
}

func (r *memoryRepository) ByCard(cardID string) ([]*model.Memory, error) {
	w := &where{}
	w.add("card_id = ?", cardID)
	w.add("visibility = ?", model.VisibilityPublic)
	return r.list(w, 100, 0)
}

func (r *memoryRepository) list(w *where, limit, offset int) ([]*model.Memory, error) {
	var memories []*model.Memory
	query := `SELECT * FROM memories` + w.sql() + ` ORDER BY created_at DESC` + w.page(limit, offset)

	err := r.db.Select(&memories, query, w.args...)
	if err != nil {
		return nil, err
	}
	return memories, nil
}

func (r *memoryRepository) Update(memory *model.Memory) error {
	memory.UpdatedAt = time.Now()
	query := `UPDATE memories SET body = $1, body_html = $2, visibility = $3, updated_at = $4 WHERE id = $5`

	result, err := r.db.Exec(query, memory.Body, memory.BodyHTML, memory.Visibility, memory.UpdatedAt, memory.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMemoryNotFound
	}

	return nil
}

func (r *memoryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMemoryNotFound
	}

	return nil
}
