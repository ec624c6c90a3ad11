package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/db"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		databaseURL, logger, err := migrationConfig()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return db.Migrate(databaseURL, logger)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		databaseURL, logger, err := migrationConfig()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return db.Rollback(databaseURL, migrateSteps, logger)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrationConfig() (string, *zap.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return "", nil, err
	}
	if cfg.DatabaseURL == "" {
		return "", nil, fmt.Errorf("DATABASE_URL environment variable or database_url config is required")
	}
	return cfg.DatabaseURL, logger, nil
}
