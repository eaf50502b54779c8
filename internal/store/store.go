// Package store provides durable key/value and append-log persistence
// for job scheduling state and run history, backed by an embedded
// SQLite database. The Store is the single writer of persisted state;
// its callers are the Scheduler (job state) and the Runner (run records).
package store

import (
	"context"

	"github.com/flemzord/cronx/internal/job"
)

// Store is the persistence contract the Scheduler and Runner depend on.
// Implementations must be safe for serialized access by a single caller;
// concurrent mutators are not required to be supported.
type Store interface {
	// SaveJobState upserts s by name, overwriting next_run, last_run,
	// enabled, and fail_count.
	SaveJobState(ctx context.Context, s job.State) error

	// GetJobState returns the persisted state for name, or (State{}, false)
	// if none exists.
	GetJobState(ctx context.Context, name string) (job.State, bool, error)

	// GetAllJobStates returns every persisted state, sorted by name.
	GetAllJobStates(ctx context.Context) ([]job.State, error)

	// RecordRun appends r to the run history log and returns its assigned id.
	RecordRun(ctx context.Context, r job.RunRecord) (int64, error)

	// GetRecentRuns returns up to limit of the most recently triggered runs
	// for name, newest first.
	GetRecentRuns(ctx context.Context, name string, limit int) ([]job.RunRecord, error)

	// Prune deletes run records triggered before olderThanMs. It returns the
	// number of rows removed.
	Prune(ctx context.Context, olderThanMs int64) (int, error)

	// Close tears down the store. It is idempotent: a second Close is a
	// no-op. Every other operation fails loudly once the store is closed.
	Close() error
}
