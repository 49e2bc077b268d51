// Package rdb is the relational storage layer: leaderboard, profile,
// submission, moderation, and telemetry-event persistence.
//
// Corresponds to spec.md §6.3. Backed by embedded SQLite
// (modernc.org/sqlite, a cgo-free driver) through bun, matching the
// teacher's ORM choice but — unlike the teacher, which declares bun only
// decoratively via bun.BaseModel tags while issuing raw pgx SQL — actually
// issuing every query through *bun.DB.
package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pannpers/go-logging/logging"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/liverty-music/backend/pkg/config"
)

// Database wraps the bun handle over an embedded SQLite file.
type Database struct {
	DB     *bun.DB
	logger *logging.Logger
}

// New opens (creating if necessary) the SQLite file at cfg.Stats.SqlitePath
// in WAL mode and verifies connectivity.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Database, error) {
	dsn := cfg.Stats.SqlitePath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite tolerates exactly one writer; a single shared connection
	// avoids SQLITE_BUSY under bun's connection pooling.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	database := &Database{DB: db, logger: logger}

	if err := database.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info(ctx, "database connection established successfully",
		slog.String("path", cfg.Stats.SqlitePath),
	)

	return database, nil
}

const pingTimeout = 5 * time.Second

// Ping verifies the database connection.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	d.logger.Info(context.Background(), "closing database connection")
	return d.DB.Close()
}
