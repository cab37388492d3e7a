package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
)

type CollectionRepository interface {
	Create(collection *model.Collection) error
	ByID(id string) (*model.Collection, error)
	ByOwner(ownerID string) ([]*model.Collection, error)
	Update(collection *model.Collection) error
	Delete(id string) error
	AddCard(collectionID, cardID string) (bool, error)
	RemoveCard(collectionID, cardID string) error
	Cards(collectionID string) ([]*model.Card, error)
}

type collectionRepository struct {
	db *sqlx.DB
}

func NewCollectionRepository(db *sqlx.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

const collectionColumns = `c.*, (SELECT COUNT(*) FROM collection_cards cc WHERE cc.collection_id = c.id) AS card_count`

func (r *collectionRepository) Create(collection *model.Collection) error {
	query := `INSERT INTO collections (id, owner_id, title, description, visibility, cover_image_url, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		collection.ID,
		collection.OwnerID,
		collection.Title,
		collection.Description,
		collection.Visibility,
		collection.CoverImageURL,
		collection.CreatedAt,
		collection.UpdatedAt,
	)
	return err
}

func (r *collectionRepository) ByID(id string) (*model.Collection, error) {
	collection := &model.Collection{}
	query := `SELECT ` + collectionColumns + ` FROM collections c WHERE c.id = $1`

	err := r.db.Get(collection, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrCollectionNotFound
	}

	return collection, err
}

func (r *collectionRepository) ByOwner(ownerID string) ([]*model.Collection, error) {
	var collections []*model.Collection
	query := `SELECT ` + collectionColumns + ` FROM collections c WHERE c.owner_id = $1 ORDER BY c.updated_at DESC`

	err := r.db.Select(&collections, query, ownerID)
	if err != nil {
		return nil, err
	}

	return collections, nil
}

func (r *collectionRepository) Update(collection *model.Collection) error {
	collection.UpdatedAt = time.Now()
	query := `UPDATE collections SET title = $1, description = $2, visibility = $3, cover_image_url = $4, updated_at = $5 WHERE id = $6`

	result, err := r.db.Exec(query,
		collection.Title,
		collection.Description,
		collection.Visibility,
		collection.CoverImageURL,
		collection.UpdatedAt,
		collection.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCollectionNotFound
	}

	return nil
}

func (r *collectionRepository) Delete(id string) error {
	query := `DELETE FROM collections WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCollectionNotFound
	}

	return nil
}

// AddCard appends a card at the end of the collection. It reports false when
// the card was already a member.
func (r *collectionRepository) AddCard(collectionID, cardID string) (bool, error) {
	query := `INSERT INTO collection_cards (collection_id, card_id, position, added_at)
	          VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM collection_cards WHERE collection_id = $3), $4)
	          ON CONFLICT (collection_id, card_id) DO NOTHING`

	result, err := r.db.Exec(query, collectionID, cardID, collectionID, time.Now())
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *collectionRepository) RemoveCard(collectionID, cardID string) error {
	query := `DELETE FROM collection_cards WHERE collection_id = $1 AND card_id = $2`

	result, err := r.db.Exec(query, collectionID, cardID)
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

func (r *collectionRepository) Cards(collectionID string) ([]*model.Card, error) {
	var cards []*model.Card
	query := `SELECT cards.* FROM cards
	          JOIN collection_cards cc ON cc.card_id = cards.id
	          WHERE cc.collection_id = $1
	          ORDER BY cc.position ASC`

	err := r.db.Select(&cards, query, collectionID)
	if err != nil {
		return nil, err
	}

	return cards, nil
}
