package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsCreatesSchema(t *testing.T) {
	database, err := Init("sqlite", ":memory:")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(database.DB, "sqlite"))

	for _, table := range []string{"users", "cards", "collections", "listings", "earnings", "payouts", "memories", "reactions", "psd_imports", "upload_batch_items"} {
		var name string
		err := database.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	require.NoError(t, MigrateDown(database.DB, "sqlite"))
	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'psd_imports'`))
	assert.Zero(t, count)
}

func TestOpenListingIndexRejectsSecondOpenListing(t *testing.T) {
	database, err := Init("sqlite", ":memory:")
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, RunMigrations(database.DB, "sqlite"))

	database.MustExec(`INSERT INTO users (id, email, created_at) VALUES ('u1', 'a@example.com', CURRENT_TIMESTAMP)`)
	database.MustExec(`INSERT INTO cards (id, creator_id, owner_id, title, created_at, updated_at) VALUES ('c1', 'u1', 'u1', 'Card', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	insert := `INSERT INTO listings (id, card_id, seller_id, price_cents, currency, status, created_at, updated_at)
	           VALUES ($1, 'c1', 'u1', 500, 'usd', $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`

	_, err = database.Exec(insert, "l1", "cancelled")
	require.NoError(t, err)
	_, err = database.Exec(insert, "l2", "active")
	require.NoError(t, err)
	_, err = database.Exec(insert, "l3", "pending")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key"`)))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.False(t, IsForeignKeyViolation(nil))
	assert.True(t, IsForeignKeyViolation(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")))
	assert.True(t, IsForeignKeyViolation(errors.New(`ERROR: update or delete on table "users" violates foreign key constraint "cards_creator_id_fkey"`)))
	assert.False(t, IsForeignKeyViolation(errors.New("UNIQUE constraint failed: users.email")))
}
