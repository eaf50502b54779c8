// Package executor defines the contract between the Runner and the
// external collaborator that turns a job's action into an observable
// effect on an AI-agent runtime. The Runner depends only on this
// interface, never on a concrete implementation — see
// internal/executor/network and internal/executor/filedrop for the two
// shapes this repository ships.
package executor

import (
	"context"

	"github.com/flemzord/cronx/internal/job"
)

// TriggerRequest is the input to Trigger.
type TriggerRequest struct {
	Message  string
	Priority job.Priority

	// Context carries the job's opaque delivery hints (recipient,
	// thinking level) through to the executor untouched.
	Context map[string]string
}

// TriggerResult is the output of Trigger.
type TriggerResult struct {
	Success bool
	Message string
	Err     error
}

// Executor is the outbound contract a Job's fire is realized through.
type Executor interface {
	// Trigger invokes the external agent runtime with the job's action.
	// Implementations must honor ctx's deadline — the Runner sets one
	// per attempt from the job's retry.timeout.
	Trigger(ctx context.Context, req TriggerRequest) (TriggerResult, error)

	// Notify sends a best-effort informational message. Its return value
	// is never required to be checked by the caller.
	Notify(ctx context.Context, message string, priority job.Priority) error
}
