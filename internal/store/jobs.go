package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/cronx/internal/job"
)

// SaveJobState implements Store.
func (s *sqliteStore) SaveJobState(ctx context.Context, state job.State) error {
	if s.closed {
		return errClosed
	}

	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (name, next_run, last_run, enabled, fail_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			next_run   = excluded.next_run,
			last_run   = excluded.last_run,
			enabled    = excluded.enabled,
			fail_count = excluded.fail_count,
			updated_at = excluded.updated_at`,
		state.Name, nullableInt64(state.NextRun), nullableInt64(state.LastRun),
		boolToInt(state.Enabled), state.FailCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("store: save job state %q: %w", state.Name, err)
	}
	return nil
}

// GetJobState implements Store.
func (s *sqliteStore) GetJobState(ctx context.Context, name string) (job.State, bool, error) {
	if s.closed {
		return job.State{}, false, errClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT name, next_run, last_run, enabled, fail_count
		FROM jobs WHERE name = ?`, name)

	state, err := scanJobState(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return job.State{}, false, nil
		}
		return job.State{}, false, fmt.Errorf("store: get job state %q: %w", name, err)
	}
	return state, true, nil
}

// GetAllJobStates implements Store.
func (s *sqliteStore) GetAllJobStates(ctx context.Context) ([]job.State, error) {
	if s.closed {
		return nil, errClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, next_run, last_run, enabled, fail_count
		FROM jobs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: get all job states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []job.State
	for rows.Next() {
		state, err := scanJobState(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan job state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan job states rows: %w", err)
	}
	return states, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanJobState can serve both.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobState(row rowScanner) (job.State, error) {
	var (
		name       string
		nextRun    sql.NullInt64
		lastRun    sql.NullInt64
		enabledInt int
		failCount  int
	)

	if err := row.Scan(&name, &nextRun, &lastRun, &enabledInt, &failCount); err != nil {
		return job.State{}, err
	}

	state := job.State{
		Name:      name,
		Enabled:   enabledInt != 0,
		FailCount: failCount,
	}
	if nextRun.Valid {
		v := nextRun.Int64
		state.NextRun = &v
	}
	if lastRun.Valid {
		v := lastRun.Int64
		state.LastRun = &v
	}
	return state, nil
}

func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
