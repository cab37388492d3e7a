package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrCreatorNotFound       = errors.New("creator profile not found")
	ErrConnectAccountPresent = errors.New("creator already has a connect account")
)

type CreatorRepository interface {
	Create(profile *model.CreatorProfile) error
	ByUserID(userID string) (*model.CreatorProfile, error)
	ByStripeAccountID(accountID string) (*model.CreatorProfile, error)
	Update(profile *model.CreatorProfile) error
	SetStripeAccount(userID, accountID string) error
	UpdateConnectStatus(accountID string, chargesEnabled, payoutsEnabled, onboardingComplete bool) error
}

type creatorRepository struct {
	db *sqlx.DB
}

func NewCreatorRepository(db *sqlx.DB) CreatorRepository {
	return &creatorRepository{db: db}
}

func (r *creatorRepository) Create(profile *model.CreatorProfile) error {
	query := `INSERT INTO creator_profiles (user_id, display_name, bio, avatar_url, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		profile.UserID,
		profile.DisplayName,
		profile.Bio,
		profile.AvatarURL,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	return err
}

func (r *creatorRepository) ByUserID(userID string) (*model.CreatorProfile, error) {
	profile := &model.CreatorProfile{}
	query := `SELECT * FROM creator_profiles WHERE user_id = $1`

	err := r.db.Get(profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrCreatorNotFound
	}

	return profile, err
}

func (r *creatorRepository) ByStripeAccountID(accountID string) (*model.CreatorProfile, error) {
	profile := &model.CreatorProfile{}
	query := `SELECT * FROM creator_profiles WHERE stripe_account_id = $1`

	err := r.db.Get(profile, query, accountID)
	if err == sql.ErrNoRows {
		return nil, ErrCreatorNotFound
	}

	return profile, err
}

func (r *creatorRepository) Update(profile *model.CreatorProfile) error {
	query := `UPDATE creator_profiles SET display_name = $1, bio = $2, avatar_url = $3, updated_at = $4 WHERE user_id = $5`

	result, err := r.db.Exec(query, profile.DisplayName, profile.Bio, profile.AvatarURL, time.Now(), profile.UserID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCreatorNotFound
	}

	return nil
}

// SetStripeAccount attaches a Connect account only if the profile has none yet.
func (r *creatorRepository) SetStripeAccount(userID, accountID string) error {
	query := `UPDATE creator_profiles SET stripe_account_id = $1, updated_at = $2 WHERE user_id = $3 AND stripe_account_id IS NULL`

	result, err := r.db.Exec(query, accountID, time.Now(), userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConnectAccountPresent
	}

	return nil
}

func (r *creatorRepository) UpdateConnectStatus(accountID string, chargesEnabled, payoutsEnabled, onboardingComplete bool) error {
	query := `UPDATE creator_profiles
	          SET charges_enabled = $1, payouts_enabled = $2, onboarding_complete = $3, updated_at = $4
	          WHERE stripe_account_id = $5`

	result, err := r.db.Exec(query, chargesEnabled, payoutsEnabled, onboardingComplete, time.Now(), accountID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCreatorNotFound
	}

	return nil
}
