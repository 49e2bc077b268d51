package rdb

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/pannpers/go-logging/logging"
)

//go:embed migrations/versions/*.sql
var migrationFS embed.FS

// RunMigrations applies pending migrations using goose v3's Provider API
// against db's underlying *sql.DB connection.
func RunMigrations(ctx context.Context, db *Database, logger *logging.Logger) error {
	logger.Info(ctx, "starting database migrations")

	migrations, err := fs.Sub(migrationFS, "migrations/versions")
	if err != nil {
		return fmt.Errorf("failed to create migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB.DB, migrations)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if len(results) == 0 {
		logger.Info(ctx, "no pending migrations to apply")
		return nil
	}

	for _, r := range results {
		logger.Info(ctx, "applied migration",
			slog.String("file", r.Source.Path),
			slog.String("duration", r.Duration.String()),
		)
	}

	logger.Info(ctx, "database migrations completed", slog.Int("applied", len(results)))
	return nil
}
