package repository

import (
	"database/sql"
	"errors"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPSDImportNotFound = errors.New("psd import not found")
	ErrPSDImportLinked   = errors.New("psd import already linked to a card")
)

type PSDImportRepository interface {
	Create(imp *model.PSDImport) error
	ByID(id string) (*model.PSDImport, error)
	ByUser(userID string) ([]*model.PSDImport, error)
	SetCard(id, cardID string) error
}

type psdImportRepository struct {
	db *sqlx.DB
}

func NewPSDImportRepository(db *sqlx.DB) PSDImportRepository {
	return &psdImportRepository{db: db}
}

func (r *psdImportRepository) Create(imp *model.PSDImport) error {
	query := `INSERT INTO psd_imports (id, user_id, filename, source_path, width, height, layer_count, layers, composite_path, composite_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		imp.ID,
		imp.UserID,
		imp.Filename,
		imp.SourcePath,
		imp.Width,
		imp.Height,
		imp.LayerCount,
		imp.Layers,
		imp.CompositePath,
		imp.CompositeURL,
		imp.CreatedAt,
	)
	return err
}

func (r *psdImportRepository) ByID(id string) (*model.PSDImport, error) {
	imp := &model.PSDImport{}
	err := r.db.Get(imp, `SELECT * FROM psd_imports WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrPSDImportNotFound
	}
	return imp, err
}

func (r *psdImportRepository) ByUser(userID string) ([]*model.PSDImport, error) {
	var imports []*model.PSDImport
	query := `SELECT * FROM psd_imports WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&imports, query, userID)
	if err != nil {
		return nil, err
	}
	return imports, nil
}

func (r *psdImportRepository) SetCard(id, cardID string) error {
	result, err := r.db.Exec(`UPDATE psd_imports SET card_id = $1 WHERE id = $2 AND card_id IS NULL`, cardID, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = r.db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM psd_imports WHERE id = $1)`, id)
	if err != nil {
		return err
	}
	if exists {
		return ErrPSDImportLinked
	}
	return ErrPSDImportNotFound
}
