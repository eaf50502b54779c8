package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/cronx/internal/job"
)

// RecordRun implements Store.
func (s *sqliteStore) RecordRun(ctx context.Context, r job.RunRecord) (int64, error) {
	if s.closed {
		return 0, errClosed
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (job_name, scheduled_at, triggered_at, completed_at, duration_ms, status, response, error, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobName, r.ScheduledAt, r.TriggeredAt, r.CompletedAt, r.DurationMs,
		string(r.Status), nullableString(r.Response), nullableString(r.Error), r.Attempts,
	)
	if err != nil {
		return 0, fmt.Errorf("store: record run for %q: %w", r.JobName, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: record run id for %q: %w", r.JobName, err)
	}
	return id, nil
}

// GetRecentRuns implements Store.
func (s *sqliteStore) GetRecentRuns(ctx context.Context, name string, limit int) ([]job.RunRecord, error) {
	if s.closed {
		return nil, errClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_name, scheduled_at, triggered_at, completed_at, duration_ms, status, response, error, attempts
		FROM runs WHERE job_name = ?
		ORDER BY triggered_at DESC
		LIMIT ?`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("store: get recent runs for %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	return scanRunRecords(rows)
}

// Prune implements Store.
func (s *sqliteStore) Prune(ctx context.Context, olderThanMs int64) (int, error) {
	if s.closed {
		return 0, errClosed
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE triggered_at < ?`, olderThanMs)
	if err != nil {
		return 0, fmt.Errorf("store: prune runs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: prune runs rows affected: %w", err)
	}
	return int(n), nil
}

func scanRunRecords(rows *sql.Rows) ([]job.RunRecord, error) {
	var records []job.RunRecord
	for rows.Next() {
		var (
			r        job.RunRecord
			status   string
			response sql.NullString
			errText  sql.NullString
		)

		if err := rows.Scan(&r.ID, &r.JobName, &r.ScheduledAt, &r.TriggeredAt, &r.CompletedAt,
			&r.DurationMs, &status, &response, &errText, &r.Attempts); err != nil {
			return nil, fmt.Errorf("store: scan run record: %w", err)
		}

		r.Status = job.RunStatus(status)
		r.Response = response.String
		r.Error = errText.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan run records rows: %w", err)
	}
	return records, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
