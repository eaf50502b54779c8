// Package runner executes a single fire of a Job: it drives the
// attempt-and-retry loop against an executor.Executor, classifies the
// outcome, and appends the resulting RunRecord-shaped Result. The
// Scheduler owns when a fire happens; the Runner only knows how to run
// one.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/cronx/internal/executor"
	"github.com/flemzord/cronx/internal/job"
	"github.com/flemzord/cronx/internal/metrics"
	"github.com/flemzord/cronx/internal/store"
)

// Result is the outcome of running a single Job fire.
type Result struct {
	Status     job.RunStatus
	Attempts   int
	Err        error
	DurationMs int64
	StartedAt  time.Time
	Response   string
}

// Runner drives a Job's attempt loop against an Executor.
type Runner struct {
	exec    executor.Executor
	store   store.Store
	logger  *slog.Logger
	metrics metrics.Recorder

	// now and sleep are overridable for tests; they default to time.Now
	// and time.Sleep respectively.
	now   func() time.Time
	sleep func(time.Duration)
}

// New constructs a Runner backed by exec. st may be nil, in which case
// Run skips appending a RunRecord — useful for tests that only care
// about the returned Result.
func New(exec executor.Executor, st store.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{exec: exec, store: st, logger: logger, now: time.Now, sleep: time.Sleep}
}

// WithMetrics wires rec into the Runner and returns it. Call before the
// first Run; a nil recorder leaves metrics off.
func (r *Runner) WithMetrics(rec metrics.Recorder) *Runner {
	r.metrics = rec
	return r
}

// Run executes j's action, retrying per j's retry policy, and returns the
// fire's outcome. It never returns an error of its own: every failure
// mode is captured in the returned Result, so the Scheduler has nothing
// to catch.
func (r *Runner) Run(ctx context.Context, j job.Job) Result {
	retry := j.EffectiveRetry()
	startTime := r.now()

	status := job.StatusFailed
	var lastErr error
	var response string
	attempts := 0

	for attempts < retry.Attempts {
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(retry.TimeoutSecond)*time.Second)
		result, err := r.exec.Trigger(attemptCtx, executor.TriggerRequest{
			Message:  j.Action.Message,
			Priority: j.Action.Priority,
			Context:  actionContext(j.Action),
		})
		cancel()

		switch {
		case err == nil && result.Success:
			status = job.StatusSuccess
			response = result.Message
			lastErr = nil
			r.logger.Debug("runner: attempt succeeded", "job", j.Name, "attempt", attempts)
		case err == nil && !result.Success:
			lastErr = result.Err
			if lastErr == nil {
				lastErr = fmt.Errorf("runner: attempt failed with no detail")
			}
			r.logger.Warn("runner: attempt failed", "job", j.Name, "attempt", attempts, "error", lastErr)
		case executor.IsTimeout(err) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			status = job.StatusTimeout
			lastErr = executor.ErrTimeout
			r.logger.Warn("runner: attempt timed out", "job", j.Name, "attempt", attempts)
		case executor.IsFatal(err):
			status = job.StatusFailed
			lastErr = err
			r.logger.Error("runner: attempt hit fatal error", "job", j.Name, "attempt", attempts, "error", err)
		default:
			lastErr = err
			r.logger.Warn("runner: attempt errored", "job", j.Name, "attempt", attempts, "error", err)
		}

		if status == job.StatusSuccess || status == job.StatusTimeout || executor.IsFatal(err) {
			break
		}

		if attempts < retry.Attempts {
			r.sleep(backoffDelay(attempts, retry.Backoff))
		}
	}

	now := r.now()
	res := Result{
		Status:     status,
		Attempts:   attempts,
		Err:        lastErr,
		DurationMs: now.Sub(startTime).Milliseconds(),
		StartedAt:  startTime,
		Response:   response,
	}

	// scheduledAt and triggeredAt are both set to startTime: the Scheduler's
	// intended fire time and the Runner's actual start are not distinguished.
	r.recordRun(ctx, j, res, startTime, now)

	if r.metrics != nil {
		r.metrics.FireCompleted(j.Name, status, now.Sub(startTime), attempts)
	}

	if status != job.StatusSuccess && j.OnFailure != job.OnFailureSilent {
		r.notifyFailure(ctx, j, res)
	}

	return res
}

// recordRun appends a RunRecord for this fire. A store error is logged
// and swallowed; it must never surface as the fire's own outcome.
func (r *Runner) recordRun(ctx context.Context, j job.Job, res Result, startTime, completedAt time.Time) {
	if r.store == nil {
		return
	}

	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}

	record := job.RunRecord{
		JobName:     j.Name,
		ScheduledAt: startTime.UnixMilli(),
		TriggeredAt: startTime.UnixMilli(),
		CompletedAt: completedAt.UnixMilli(),
		DurationMs:  res.DurationMs,
		Status:      res.Status,
		Response:    res.Response,
		Error:       errText,
		Attempts:    res.Attempts,
	}

	if _, err := r.store.RecordRun(ctx, record); err != nil {
		r.logger.Error("runner: failed to record run", "job", j.Name, "error", err)
	}
}

// notifyFailure sends a best-effort failure notification via the
// executor. Its own failure is logged and swallowed; it never affects
// the fire's recorded status.
func (r *Runner) notifyFailure(ctx context.Context, j job.Job, res Result) {
	message := fmt.Sprintf("job %q failed after %d attempt(s): %v", j.Name, res.Attempts, res.Err)
	priority := j.Action.Priority
	if j.OnFailure == job.OnFailureEscalate {
		message = "[ESCALATE] " + message
		priority = job.PriorityHigh
	}

	if err := r.exec.Notify(ctx, message, priority); err != nil {
		r.logger.Warn("runner: failure notification did not go through", "job", j.Name, "error", err)
	}
}

// backoffDelay returns the sleep between attempts for each backoff kind.
func backoffDelay(attempt int, kind job.BackoffKind) time.Duration {
	switch kind {
	case job.BackoffLinear:
		return time.Duration(attempt) * time.Second
	case job.BackoffExponential:
		return time.Duration(1<<uint(attempt)) * time.Second
	default: // job.BackoffFixed and any unset value
		return 1 * time.Second
	}
}

func actionContext(a job.Action) map[string]string {
	if a.Recipient == "" && a.ThinkingLevel == "" {
		return nil
	}
	ctx := make(map[string]string, 2)
	if a.Recipient != "" {
		ctx["recipient"] = a.Recipient
	}
	if a.ThinkingLevel != "" {
		ctx["thinkingLevel"] = a.ThinkingLevel
	}
	return ctx
}
