package repository

import (
	"database/sql"
	"errors"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrFileNotFound = errors.New("file not found")

// FileRepository indexes stored objects (card art, PSD sources and layers,
// avatars) by the record that owns them.
type FileRepository interface {
	Create(file *model.File) error
	ByID(id string) (*model.File, error)
	Latest(ownerType, ownerID, fileType string) (*model.File, error)
	ByOwner(ownerType, ownerID string) ([]*model.File, error)
	ByUser(userID string) ([]*model.File, error)
	Delete(id string) error
	DeleteByOwner(ownerType, ownerID string) ([]string, error)
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *model.File) error {
	_, err := r.db.Exec(`INSERT INTO files (id, user_id, owner_type, owner_id, type, filename, original_name, mime_type, size, storage_path, public, created_at)
	                     VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		file.ID, file.UserID, file.OwnerType, file.OwnerID, file.Type, file.Filename,
		file.OriginalName, file.MimeType, file.Size, file.StoragePath, file.Public, file.CreatedAt)
	return err
}

func (r *fileRepository) ByID(id string) (*model.File, error) {
	return r.one(`SELECT * FROM files WHERE id = $1`, id)
}

// Latest returns the newest file of a type for an owner, e.g. the current
// avatar after several uploads.
func (r *fileRepository) Latest(ownerType, ownerID, fileType string) (*model.File, error) {
	return r.one(`SELECT * FROM files WHERE owner_type = $1 AND owner_id = $2 AND type = $3 ORDER BY created_at DESC LIMIT 1`,
		ownerType, ownerID, fileType)
}

func (r *fileRepository) one(query string, args ...any) (*model.File, error) {
	file := &model.File{}
	err := r.db.Get(file, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// ByOwner lists an owner's files oldest first, so a PSD import reads source,
// layers, then composite.
func (r *fileRepository) ByOwner(ownerType, ownerID string) ([]*model.File, error) {
	files := []*model.File{}
	err := r.db.Select(&files, `SELECT * FROM files WHERE owner_type = $1 AND owner_id = $2 ORDER BY created_at ASC`, ownerType, ownerID)
	return files, err
}

func (r *fileRepository) ByUser(userID string) ([]*model.File, error) {
	files := []*model.File{}
	err := r.db.Select(&files, `SELECT * FROM files WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return files, err
}

func (r *fileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrFileNotFound
	}
	return nil
}

// DeleteByOwner removes the owner's records and returns the storage paths
// they pointed at, so the caller deletes exactly the objects it unlinked.
func (r *fileRepository) DeleteByOwner(ownerType, ownerID string) ([]string, error) {
	var paths []string
	err := r.db.Select(&paths, `DELETE FROM files WHERE owner_type = $1 AND owner_id = $2 RETURNING storage_path`, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	return paths, nil
}
