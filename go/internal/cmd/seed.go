package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/retroboard/go/internal/dbconfig"
	"github.com/mcdev12/retroboard/go/internal/tools/seed"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo sessions into a Postgres database",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DB.Driver != dbconfig.DriverPostgres {
			return fmt.Errorf("seed requires DB_DRIVER=%s, got %q", dbconfig.DriverPostgres, cfg.DB.Driver)
		}

		sessions, err := seed.Load(file)
		if err != nil {
			return err
		}

		pool, err := pgxpool.New(cmd.Context(), cfg.DB.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer pool.Close()

		summary, err := seed.Run(cmd.Context(), pool, sessions, time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Printf(
			"Sessions seed complete: %d total, %d inserted, %d skipped, %d cards\n",
			summary.Total, summary.Inserted, summary.Skipped, summary.Cards,
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "JSON seed file (built-in demo sessions when empty)")
}
