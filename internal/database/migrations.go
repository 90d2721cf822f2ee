// Package database handles database migrations.
package database

import (
	"fmt"
)

// migrate runs all database migrations.
func (db *DB) migrate() error {
	// Create migrations table if not exists
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	// Run migrations
	migrations := getAllMigrations()
	for _, m := range migrations {
		if m.version > currentVersion {
			if err := db.runMigration(m); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
		}
	}

	return nil
}

type migration struct {
	version int
	sql     string
}

func (db *DB) runMigration(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.sql); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

func getAllMigrations() []migration {
	return []migration{
		{
			version: 1,
			sql:     migration001InitialSchema,
		},
	}
}

const migration001InitialSchema = `
-- Negotiations table
-- One row per negotiation request, terminal outcome included
CREATE TABLE IF NOT EXISTS negotiations (
    id TEXT PRIMARY KEY,                    -- request UUID
    success INTEGER NOT NULL,               -- 1 = slot found
    stage TEXT NOT NULL,                    -- terminal stage name
    urgency TEXT NOT NULL,
    target_date TEXT NOT NULL,              -- YYYY-MM-DD in target timezone
    slot_start TEXT,                        -- RFC3339, NULL on failure
    slot_end TEXT,
    duration_minutes INTEGER NOT NULL,
    consensus_score REAL NOT NULL DEFAULT 0,
    participant_count INTEGER NOT NULL,
    participants TEXT NOT NULL,             -- JSON array of emails
    reasoning TEXT,
    failure_reason TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_negotiations_created ON negotiations(created_at);
CREATE INDEX IF NOT EXISTS idx_negotiations_stage ON negotiations(stage);

-- Negotiation audit table
-- One row per audit-trail line, ordered by seq within a negotiation
CREATE TABLE IF NOT EXISTS negotiation_audit (
    negotiation_id TEXT NOT NULL REFERENCES negotiations(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    line TEXT NOT NULL,
    PRIMARY KEY (negotiation_id, seq)
);
`
