package repository

import (
	"database/sql"
	"errors"

	"github.com/cardshow/cardshow/internal/db"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrReactionNotFound  = errors.New("reaction not found")
	ErrDuplicateReaction = errors.New("reaction already exists")
)

type ReactionRepository interface {
	Find(userID, targetType, targetID, reactionType string) (*model.Reaction, error)
	Create(reaction *model.Reaction) error
	Delete(id string) error
	Counts(targetType, targetID string) (map[string]int, error)
	UserTypes(userID, targetType, targetID string) ([]string, error)
}

type reactionRepository struct {
	db *sqlx.DB
}

func NewReactionRepository(db *sqlx.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Find(userID, targetType, targetID, reactionType string) (*model.Reaction, error) {
	reaction := &model.Reaction{}
	query := `SELECT * FROM reactions WHERE user_id = $1 AND target_type = $2 AND target_id = $3 AND type = $4`

	err := r.db.Get(reaction, query, userID, targetType, targetID, reactionType)
	if err == sql.ErrNoRows {
		return nil, ErrReactionNotFound
	}
	return reaction, err
}

func (r *reactionRepository) Create(reaction *model.Reaction) error {
	query := `INSERT INTO reactions (id, user_id, target_type, target_id, type, created_at) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		reaction.ID,
		reaction.UserID,
		reaction.TargetType,
		reaction.TargetID,
		reaction.Type,
		reaction.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateReaction
		}
		return err
	}
	return nil
}

func (r *reactionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM reactions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrReactionNotFound
	}
	return nil
}

func (r *reactionRepository) Counts(targetType, targetID string) (map[string]int, error) {
	var rows []struct {
		Type  string `db:"type"`
		Count int    `db:"count"`
	}
	query := `SELECT type, COUNT(*) AS count FROM reactions WHERE target_type = $1 AND target_id = $2 GROUP BY type`

	err := r.db.Select(&rows, query, targetType, targetID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

func (r *reactionRepository) UserTypes(userID, targetType, targetID string) ([]string, error) {
	var types []string
	query := `SELECT type FROM reactions WHERE user_id = $1 AND target_type = $2 AND target_id = $3 ORDER BY type`

	err := r.db.Select(&types, query, userID, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return types, nil
}
