package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrCardNotFound = errors.New("card not found")
)

type CardRepository interface {
	Create(card *model.Card) error
	ByID(id string) (*model.Card, error)
	ByOwner(ownerID string, filter model.CardFilter) ([]*model.Card, error)
	Public(filter model.CardFilter) ([]*model.Card, error)
	Update(card *model.Card) error
	Delete(id string) error
}

type cardRepository struct {
	db *sqlx.DB
}

func NewCardRepository(db *sqlx.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(card *model.Card) error {
	query := `INSERT INTO cards (id, creator_id, owner_id, title, description, image_url, image_path, thumbnail_url, rarity, tags,
	              design_metadata, effects, visibility, is_draft, edition_size, source, client_updated_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(query,
		card.ID,
		card.CreatorID,
		card.OwnerID,
		card.Title,
		card.Description,
		card.ImageURL,
		card.ImagePath,
		card.ThumbnailURL,
		card.Rarity,
		card.Tags,
		card.DesignMetadata,
		card.Effects,
		card.Visibility,
		card.IsDraft,
		card.EditionSize,
		card.Source,
		card.ClientUpdatedAt,
		card.CreatedAt,
		card.UpdatedAt,
	)
	return err
}

func (r *cardRepository) ByID(id string) (*model.Card, error) {
	card := &model.Card{}
	query := `SELECT * FROM cards WHERE id = $1`

	err := r.db.Get(card, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrCardNotFound
	}

	return card, err
}

func (r *cardRepository) ByOwner(ownerID string, filter model.CardFilter) ([]*model.Card, error) {
	w := &where{}
	w.add("owner_id = ?", ownerID)
	return r.list(w, filter)
}

func (r *cardRepository) Public(filter model.CardFilter) ([]*model.Card, error) {
	w := &where{}
	w.add("visibility = ?", model.VisibilityPublic)
	w.add("is_draft = ?", false)
	return r.list(w, filter)
}

func (r *cardRepository) list(w *where, filter model.CardFilter) ([]*model.Card, error) {
	if filter.Rarity != "" {
		w.add("rarity = ?", filter.Rarity)
	}
	if filter.Tag != "" {
		// tags is a JSON array of strings
		w.add("tags LIKE ?", `%"`+filter.Tag+`"%`)
	}

	query := `SELECT * FROM cards` + w.sql() + cardOrder(filter.Sort) + w.page(filter.Limit, filter.Offset)

	var cards []*model.Card
	err := r.db.Select(&cards, query, w.args...)
	if err != nil {
		return nil, err
	}

	return cards, nil
}

func cardOrder(sort string) string {
	switch sort {
	case model.CardSortTitle:
		return ` ORDER BY title ASC, id ASC`
	case model.CardSortRarity:
		return ` ORDER BY CASE rarity
		    WHEN 'mythic' THEN 0 WHEN 'legendary' THEN 1 WHEN 'epic' THEN 2
		    WHEN 'rare' THEN 3 WHEN 'uncommon' THEN 4 ELSE 5 END ASC, updated_at DESC`
	default:
		return ` ORDER BY updated_at DESC, id ASC`
	}
}

func (r *cardRepository) Update(card *model.Card) error {
	card.UpdatedAt = time.Now()
	query := `UPDATE cards SET owner_id = $1, title = $2, description = $3, image_url = $4, image_path = $5, thumbnail_url = $6,
	              rarity = $7, tags = $8, design_metadata = $9, effects = $10, visibility = $11, is_draft = $12,
	              edition_size = $13, client_updated_at = $14, updated_at = $15
	          WHERE id = $16`

	result, err := r.db.Exec(query,
		card.OwnerID,
		card.Title,
		card.Description,
		card.ImageURL,
		card.ImagePath,
		card.ThumbnailURL,
		card.Rarity,
		card.Tags,
		card.DesignMetadata,
		card.Effects,
		card.Visibility,
		card.IsDraft,
		card.EditionSize,
		card.ClientUpdatedAt,
		card.UpdatedAt,
		card.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCardNotFound
	}

	return nil
}

func (r *cardRepository) Delete(id string) error {
	query := `DELETE FROM cards WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCardNotFound
	}

	return nil
}
