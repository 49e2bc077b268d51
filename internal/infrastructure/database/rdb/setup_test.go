package rdb_test

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/infrastructure/database/rdb"
	"github.com/liverty-music/backend/pkg/config"
)

var testDB *rdb.Database

func TestMain(m *testing.M) {
	if !flag.Parsed() {
		flag.Parse()
	}

	testDB = setupTestDatabase()

	code := m.Run()

	if testDB != nil {
		if err := testDB.Close(); err != nil {
			panic("failed to close test database: " + err.Error())
		}
	}

	os.Exit(code)
}

func setupTestDatabase() *rdb.Database {
	dir, err := os.MkdirTemp("", "rdb-test-*")
	if err != nil {
		panic("failed to create temp dir: " + err.Error())
	}

	cfg := &config.Config{
		Stats: config.StatsConfig{
			SqlitePath: filepath.Join(dir, "test.db"),
		},
	}

	logger, _ := logging.New()
	ctx := context.Background()

	db, err := rdb.New(ctx, cfg, logger)
	if err != nil {
		panic("failed to open test database: " + err.Error())
	}

	if err := rdb.RunMigrations(ctx, db, logger); err != nil {
		panic("failed to run migrations: " + err.Error())
	}

	return db
}

// cleanDatabase truncates every table so each test starts from an empty
// schema without paying to reopen and re-migrate the database file.
func cleanDatabase() {
	ctx := context.Background()
	tables := []string{
		"events",
		"moderation_flags",
		"save_submissions",
		"user_profile",
		"leaderboard_details",
		"leaderboard_rks",
	}

	for _, table := range tables {
		if _, err := testDB.DB.NewDelete().Table(table).Where("1 = 1").Exec(ctx); err != nil {
			panic("failed to clean table " + table + ": " + err.Error())
		}
	}
}
