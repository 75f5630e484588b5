package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/mcdev12/retroboard/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemas embed.FS

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg dbconfig.Config) (*sql.DB, error) {
	return OpenDSN(ctx, cfg.Driver, cfg.DSN())
}

// OpenDSN connects with an explicit driver name and DSN.
func OpenDSN(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != dbconfig.DriverPostgres && driver != dbconfig.DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if driver == dbconfig.DriverSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		database.SetMaxOpenConns(1)
	}

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}

// Migrate applies the schema for driver. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	ddl, err := schemas.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", driver, err)
	}

	applied := 0
	for _, stmt := range strings.Split(string(ddl), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", applied+1, err)
		}
		applied++
	}

	log.Info().Str("driver", driver).Int("statements", applied).Msg("schema applied")
	return nil
}
