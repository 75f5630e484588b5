package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/retroboard/go/internal/dbconfig"
	"github.com/mcdev12/retroboard/go/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := setupDatabase(cmd.Context(), cfg.DB)
		if err != nil {
			return err
		}
		defer database.Close()

		return storage.Migrate(cmd.Context(), database, cfg.DB.Driver)
	},
}

func setupDatabase(ctx context.Context, cfg dbconfig.Config) (*sql.DB, error) {
	database, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	log.Info().
		Str("driver", cfg.Driver).
		Str("dsn", cfg.Redacted()).
		Msg("connected to database")
	return database, nil
}
