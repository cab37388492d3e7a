package repository

import (
	"database/sql"
	"errors"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrPreferencesNotFound = errors.New("viewer preferences not found")

type PreferencesRepository interface {
	ByUserID(userID string) (*model.ViewerPreferences, error)
	Upsert(prefs *model.ViewerPreferences) error
}

type preferencesRepository struct {
	db *sqlx.DB
}

func NewPreferencesRepository(db *sqlx.DB) PreferencesRepository {
	return &preferencesRepository{db: db}
}

func (r *preferencesRepository) ByUserID(userID string) (*model.ViewerPreferences, error) {
	prefs := &model.ViewerPreferences{}
	query := `SELECT * FROM viewer_preferences WHERE user_id = $1`

	err := r.db.Get(prefs, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrPreferencesNotFound
	}

	return prefs, err
}

func (r *preferencesRepository) Upsert(prefs *model.ViewerPreferences) error {
	query := `INSERT INTO viewer_preferences (user_id, render_quality, auto_rotate, show_effects, reduced_motion, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (user_id) DO UPDATE SET
	              render_quality = excluded.render_quality,
	              auto_rotate = excluded.auto_rotate,
	              show_effects = excluded.show_effects,
	              reduced_motion = excluded.reduced_motion,
	              updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		prefs.UserID,
		prefs.RenderQuality,
		prefs.AutoRotate,
		prefs.ShowEffects,
		prefs.ReducedMotion,
		prefs.UpdatedAt,
	)
	return err
}
