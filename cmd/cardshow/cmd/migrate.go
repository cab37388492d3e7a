package cmd

import (
	"database/sql"
	"fmt"

	"github.com/cardshow/cardshow/internal/config"
	"github.com/cardshow/cardshow/internal/db"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(db.RunMigrations)
		},
	})
	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(db.MigrateDown)
		},
	})
	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(db.MigrationStatus)
		},
	})

	return migrate
}

func withDatabase(fn func(*sql.DB, string) error) error {
	driver, connection := config.Database()

	database, err := db.Init(driver, connection)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	return fn(database.DB, driver)
}
