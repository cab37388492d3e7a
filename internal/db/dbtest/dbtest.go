// Package dbtest opens throwaway migrated databases for repository and service tests.
package dbtest

import (
	"testing"

	"github.com/cardshow/cardshow/internal/db"
	"github.com/jmoiron/sqlx"
)

// Open returns an in-memory SQLite database with all migrations applied.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	database, err := db.Init("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	err = db.RunMigrations(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

// SeedUser inserts a bare user row so foreign keys hold in fixture data.
func SeedUser(t testing.TB, database *sqlx.DB, id string) {
	t.Helper()
	_, err := database.Exec(`INSERT INTO users (id, email, created_at) VALUES ($1, $2, CURRENT_TIMESTAMP)`, id, id+"@example.com")
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}
