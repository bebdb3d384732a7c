// Package db owns the SQLite document store backing itinvault. It plays the
// role of the remote scenario store: per-row atomic reads and writes, simple
// equality queries with ordering and limits, nothing more. All SQL lives in
// this package.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/itinvault/itinvault/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/itinvault.db.
// The baseDir parameter allows tests to use t.TempDir() instead of
// ~/.itinvault.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "itinvault.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS scenarios (
		  id                    TEXT PRIMARY KEY,
		  owner_id              TEXT NOT NULL,
		  name                  TEXT NOT NULL,
		  description           TEXT NOT NULL DEFAULT '',
		  current_version       INTEGER NOT NULL DEFAULT 0,
		  created_at            INTEGER NOT NULL,
		  updated_at            INTEGER NOT NULL,
		  last_autosave_at      INTEGER NOT NULL DEFAULT 0,
		  summary_markdown      TEXT,
		  summary_generated_at  INTEGER,
		  summary_version       INTEGER
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_scenarios_owner_name
		ON scenarios(owner_id, name);

		CREATE INDEX IF NOT EXISTS idx_scenarios_owner_updated
		ON scenarios(owner_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS versions (
		  scenario_id     TEXT NOT NULL,
		  version_number  INTEGER NOT NULL,
		  itinerary_json  TEXT NOT NULL,
		  is_named        INTEGER NOT NULL DEFAULT 0,
		  version_name    TEXT NOT NULL DEFAULT '',
		  data_hash       TEXT NOT NULL DEFAULT '',
		  created_at      INTEGER NOT NULL,
		  PRIMARY KEY (scenario_id, version_number)
		);

		CREATE INDEX IF NOT EXISTS idx_versions_scenario_unnamed
		ON versions(scenario_id, version_number DESC)
		WHERE is_named = 0;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
