package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cardshow/cardshow/internal/db"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUserHasRecords = errors.New("account still owns cards or sale records")
)

// UserRepository stores login identities. Profile data lives with the
// creator profile.
type UserRepository interface {
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByEmail(email string) (*model.User, error)
	SetPasswordHash(id, hash string) error
	MarkEmailVerified(id string, at time.Time) error
	Delete(id string) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Emails are stored lower case so lookups never depend on how a user typed
// their address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	_, err := r.db.Exec(`INSERT INTO users (id, email, password_hash, email_verified_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.EmailVerifiedAt, user.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE id = $1`, id)
}

func (r *userRepository) ByEmail(email string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE email = $1`, normalizeEmail(email))
}

func (r *userRepository) one(query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.db.Get(user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) SetPasswordHash(id, hash string) error {
	return r.exec(`UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
}

// MarkEmailVerified keeps the first verification time.
func (r *userRepository) MarkEmailVerified(id string, at time.Time) error {
	_, err := r.db.Exec(`UPDATE users SET email_verified_at = $1 WHERE id = $2 AND email_verified_at IS NULL`, at, id)
	return err
}

// Delete removes the login. Cards, listings and ledger rows reference their
// user without cascading, so an account holding any of them is refused.
func (r *userRepository) Delete(id string) error {
	err := r.exec(`DELETE FROM users WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrUserHasRecords
	}
	return err
}

// exec runs a single-row write and reports ErrUserNotFound when nothing matched.
func (r *userRepository) exec(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
