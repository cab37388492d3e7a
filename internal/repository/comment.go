package repository

import (
	"database/sql"
	"errors"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentRepository interface {
	Create(comment *model.Comment) error
	ByID(id string) (*model.Comment, error)
	ByTarget(targetType, targetID string) ([]*model.Comment, error)
	Delete(id string) error
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(comment *model.Comment) error {
	query := `INSERT INTO comments (id, user_id, target_type, target_id, parent_id, body, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		comment.ID,
		comment.UserID,
		comment.TargetType,
		comment.TargetID,
		comment.ParentID,
		comment.Body,
		comment.CreatedAt,
	)
	return err
}

func (r *commentRepository) ByID(id string) (*model.Comment, error) {
	comment := &model.Comment{}
	err := r.db.Get(comment, `SELECT * FROM comments WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrCommentNotFound
	}
	return comment, err
}

// ByTarget returns all comments of a target oldest first; replies follow their root.
func (r *commentRepository) ByTarget(targetType, targetID string) ([]*model.Comment, error) {
	var comments []*model.Comment
	query := `SELECT * FROM comments WHERE target_type = $1 AND target_id = $2 ORDER BY created_at ASC, id ASC`

	err := r.db.Select(&comments, query, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete removes the comment and, through the foreign key, its replies.
func (r *commentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCommentNotFound
	}

	return nil
}
