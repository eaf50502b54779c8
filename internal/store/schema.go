package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS, making migration idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		name       TEXT PRIMARY KEY,
		next_run   INTEGER,
		last_run   INTEGER,
		enabled    INTEGER NOT NULL DEFAULT 1,
		fail_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_next_run
		ON jobs(next_run) WHERE enabled = 1`,

	`CREATE TABLE IF NOT EXISTS runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		job_name     TEXT    NOT NULL,
		scheduled_at INTEGER NOT NULL,
		triggered_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		duration_ms  INTEGER NOT NULL,
		status       TEXT    NOT NULL,
		response     TEXT,
		error        TEXT,
		attempts     INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_job_triggered
		ON runs(job_name, triggered_at)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, so migrate is safe to call on every open.
func migrate(db *sql.DB) error {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("store: record schema version: %w", err)
	}

	return nil
}
