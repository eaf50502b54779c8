package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/cronx/internal/executor"
	"github.com/flemzord/cronx/internal/job"
)

type recordingStore struct {
	mu      sync.Mutex
	records []job.RunRecord
}

func (s *recordingStore) SaveJobState(context.Context, job.State) error { return nil }

func (s *recordingStore) GetJobState(context.Context, string) (job.State, bool, error) {
	return job.State{}, false, nil
}

func (s *recordingStore) GetAllJobStates(context.Context) ([]job.State, error) { return nil, nil }

func (s *recordingStore) RecordRun(_ context.Context, r job.RunRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = int64(len(s.records) + 1)
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *recordingStore) GetRecentRuns(context.Context, string, int) ([]job.RunRecord, error) {
	return nil, nil
}

func (s *recordingStore) Prune(context.Context, int64) (int, error) { return 0, nil }

func (s *recordingStore) Close() error { return nil }

type fakeExecutor struct {
	mu sync.Mutex

	triggerFn func(call int) (executor.TriggerResult, error)
	calls     int

	notifyMessages  []string
	notifyPriority  []job.Priority
	notifyShouldErr error
}

func (f *fakeExecutor) Trigger(_ context.Context, _ executor.TriggerRequest) (executor.TriggerResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.triggerFn(call)
}

func (f *fakeExecutor) Notify(_ context.Context, message string, priority job.Priority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifyMessages = append(f.notifyMessages, message)
	f.notifyPriority = append(f.notifyPriority, priority)
	return f.notifyShouldErr
}

func baseJob(strategy job.StrategyKind) job.Job {
	return job.Job{
		Name:     "nudge",
		Strategy: strategy,
		Action:   job.Action{Message: "hello", Priority: job.PriorityNormal},
		Enabled:  true,
	}
}

func noSleep(time.Duration) {}

func TestRunner_SuccessOnFirstAttempt(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(int) (executor.TriggerResult, error) {
		return executor.TriggerResult{Success: true, Message: "ok"}, nil
	}}

	r := New(exec, nil, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	res := r.Run(context.Background(), j)

	if res.Status != job.StatusSuccess {
		t.Fatalf("status = %v, want success", res.Status)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", res.Attempts)
	}
	if len(exec.notifyMessages) != 0 {
		t.Fatalf("expected no notifications on success, got %v", exec.notifyMessages)
	}
}

func TestRunner_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(call int) (executor.TriggerResult, error) {
		if call < 3 {
			return executor.TriggerResult{Success: false, Err: errors.New("not yet")}, nil
		}
		return executor.TriggerResult{Success: true}, nil
	}}

	r := New(exec, nil, nil)
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	j := baseJob(job.StrategyInterval)
	attempts := 3
	j.Retry = &job.RetryConfig{Attempts: attempts, Backoff: job.BackoffFixed, TimeoutSecond: 30}

	res := r.Run(context.Background(), j)

	if res.Status != job.StatusSuccess {
		t.Fatalf("status = %v, want success", res.Status)
	}
	if res.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", res.Attempts)
	}
	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(slept))
	}
	for _, d := range slept {
		if d != time.Second {
			t.Fatalf("backoff = %v, want 1s (fixed)", d)
		}
	}
}

func TestRunner_AttemptCapNeverExceeded(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(int) (executor.TriggerResult, error) {
		return executor.TriggerResult{Success: false, Err: errors.New("nope")}, nil
	}}

	r := New(exec, nil, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	j.Retry = &job.RetryConfig{Attempts: 3, Backoff: job.BackoffFixed, TimeoutSecond: 30}
	j.OnFailure = job.OnFailureSilent

	res := r.Run(context.Background(), j)

	if res.Status != job.StatusFailed {
		t.Fatalf("status = %v, want failed", res.Status)
	}
	if res.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", res.Attempts)
	}
}

func TestRunner_TimeoutIsTerminal(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(int) (executor.TriggerResult, error) {
		return executor.TriggerResult{}, executor.ErrTimeout
	}}

	r := New(exec, nil, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	j.Retry = &job.RetryConfig{Attempts: 5, Backoff: job.BackoffFixed, TimeoutSecond: 30}
	j.OnFailure = job.OnFailureSilent

	res := r.Run(context.Background(), j)

	if res.Status != job.StatusTimeout {
		t.Fatalf("status = %v, want timeout", res.Status)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry after timeout)", res.Attempts)
	}
}

func TestRunner_FatalErrorIsTerminal(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(int) (executor.TriggerResult, error) {
		return executor.TriggerResult{}, &executor.FatalError{Err: executor.ErrPermissionDenied}
	}}

	r := New(exec, nil, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	j.Retry = &job.RetryConfig{Attempts: 5, Backoff: job.BackoffFixed, TimeoutSecond: 30}
	j.OnFailure = job.OnFailureSilent

	res := r.Run(context.Background(), j)

	if res.Status != job.StatusFailed {
		t.Fatalf("status = %v, want failed", res.Status)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on fatal error)", res.Attempts)
	}
}

func TestRunner_EscalateNotifiesAtHighPriorityWithPrefix(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(int) (executor.TriggerResult, error) {
		return executor.TriggerResult{Success: false, Err: errors.New("boom")}, nil
	}}

	r := New(exec, nil, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	j.Retry = &job.RetryConfig{Attempts: 1, Backoff: job.BackoffFixed, TimeoutSecond: 30}
	j.OnFailure = job.OnFailureEscalate

	res := r.Run(context.Background(), j)

	if res.Status != job.StatusFailed {
		t.Fatalf("status = %v, want failed", res.Status)
	}
	if len(exec.notifyMessages) != 1 {
		t.Fatalf("notify calls = %d, want 1", len(exec.notifyMessages))
	}
	if !strings.HasPrefix(exec.notifyMessages[0], "[ESCALATE]") {
		t.Fatalf("message = %q, want prefix [ESCALATE]", exec.notifyMessages[0])
	}
	if exec.notifyPriority[0] != job.PriorityHigh {
		t.Fatalf("priority = %v, want high", exec.notifyPriority[0])
	}
}

func TestRunner_SilentOnFailureSendsNoNotification(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(int) (executor.TriggerResult, error) {
		return executor.TriggerResult{Success: false, Err: errors.New("boom")}, nil
	}}

	r := New(exec, nil, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	j.Retry = &job.RetryConfig{Attempts: 1, Backoff: job.BackoffFixed, TimeoutSecond: 30}
	j.OnFailure = job.OnFailureSilent

	r.Run(context.Background(), j)

	if len(exec.notifyMessages) != 0 {
		t.Fatalf("expected no notification, got %v", exec.notifyMessages)
	}
}

func TestRunner_NotificationFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{
		triggerFn: func(int) (executor.TriggerResult, error) {
			return executor.TriggerResult{Success: false, Err: errors.New("boom")}, nil
		},
		notifyShouldErr: errors.New("notify transport down"),
	}

	r := New(exec, nil, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	j.Retry = &job.RetryConfig{Attempts: 1, Backoff: job.BackoffFixed, TimeoutSecond: 30}
	j.OnFailure = job.OnFailureNotify

	res := r.Run(context.Background(), j)

	if res.Status != job.StatusFailed {
		t.Fatalf("status = %v, want failed despite notification failure", res.Status)
	}
}

func TestRunner_RecordsRunInStore(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{triggerFn: func(int) (executor.TriggerResult, error) {
		return executor.TriggerResult{Success: true, Message: "done"}, nil
	}}
	st := &recordingStore{}

	r := New(exec, st, nil)
	r.sleep = noSleep

	j := baseJob(job.StrategyInterval)
	r.Run(context.Background(), j)

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.records) != 1 {
		t.Fatalf("records = %d, want 1", len(st.records))
	}
	rec := st.records[0]
	if rec.JobName != "nudge" || rec.Status != job.StatusSuccess {
		t.Fatalf("record = %+v", rec)
	}
	if rec.ScheduledAt != rec.TriggeredAt {
		t.Fatalf("scheduledAt (%d) != triggeredAt (%d)", rec.ScheduledAt, rec.TriggeredAt)
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		attempt int
		kind    job.BackoffKind
		want    time.Duration
	}{
		{1, job.BackoffFixed, time.Second},
		{5, job.BackoffFixed, time.Second},
		{2, job.BackoffLinear, 2 * time.Second},
		{3, job.BackoffLinear, 3 * time.Second},
		{1, job.BackoffExponential, 2 * time.Second},
		{2, job.BackoffExponential, 4 * time.Second},
		{3, job.BackoffExponential, 8 * time.Second},
	}
	for _, c := range cases {
		got := backoffDelay(c.attempt, c.kind)
		if got != c.want {
			t.Errorf("backoffDelay(%d, %s) = %v, want %v", c.attempt, c.kind, got, c.want)
		}
	}
}
