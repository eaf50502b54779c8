// Package scheduler owns the set of configured jobs, arms one timer per
// job, and drives each fire through a Runner when its timer elapses.
// Each job gets its own timer rather than a single global "next job"
// timer, so cancellation on Stop and per-job ordering stay simple.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/cronx/internal/job"
	"github.com/flemzord/cronx/internal/metrics"
	"github.com/flemzord/cronx/internal/rng"
	"github.com/flemzord/cronx/internal/runner"
	"github.com/flemzord/cronx/internal/store"
	"github.com/flemzord/cronx/internal/strategy"
)

// Status is the externally observable snapshot GetStatus returns for a
// single job.
type Status struct {
	Name    string
	NextRun *int64
	LastRun *int64
	Enabled bool
}

// entry is the Scheduler's per-job bookkeeping: the immutable Job, its
// Strategy instance, the mutable persisted State, and the currently
// armed timer.
type entry struct {
	job      job.Job
	strategy *strategy.Strategy
	state    job.State
	timer    *time.Timer
}

// Scheduler owns the name -> (Job, Strategy, State, Timer) map and the
// running flag.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	running bool

	store   store.Store
	runner  *runner.Runner
	logger  *slog.Logger
	metrics metrics.Recorder

	seed string
	now  func() time.Time
}

// New constructs a Scheduler for jobs, deriving one RNG per job from
// seed (empty seed means each job gets a non-deterministic source). An
// RNG is never shared across jobs.
func New(jobs []job.Job, st store.Store, rnr *runner.Runner, seed string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		entries: make(map[string]*entry, len(jobs)),
		store:   st,
		runner:  rnr,
		logger:  logger,
		seed:    seed,
		now:     time.Now,
	}

	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		if _, exists := s.entries[j.Name]; exists {
			return nil, fmt.Errorf("scheduler: duplicate job name %q", j.Name)
		}

		src := s.sourceFor(j.Name)
		strat, err := strategy.New(j, src)
		if err != nil {
			return nil, fmt.Errorf("scheduler: build strategy for %q: %w", j.Name, err)
		}

		s.entries[j.Name] = &entry{job: j, strategy: strat}
		s.order = append(s.order, j.Name)
	}

	return s, nil
}

// WithMetrics wires rec into the Scheduler and returns it. Call before
// Start; a nil recorder leaves metrics off.
func (s *Scheduler) WithMetrics(rec metrics.Recorder) *Scheduler {
	s.metrics = rec
	return s
}

func (s *Scheduler) sourceFor(name string) rng.Source {
	if s.seed == "" {
		return rng.NewCrypto()
	}
	return rng.NewSeeded(s.seed + ":" + name)
}

// Start is idempotent when already running. On first start it loads or
// initializes every job's state from the Store and arms a timer for
// every enabled job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	for _, name := range s.order {
		e := s.entries[name]

		st, found, err := s.store.GetJobState(ctx, name)
		if err != nil {
			return fmt.Errorf("scheduler: load state for %q: %w", name, err)
		}
		if !found {
			nextRun, err := e.strategy.CalculateNextRun(nil, s.now())
			if err != nil {
				return fmt.Errorf("scheduler: initial next run for %q: %w", name, err)
			}
			st = job.State{Name: name, NextRun: &nextRun, LastRun: nil, Enabled: e.job.Enabled, FailCount: 0}
			if err := s.store.SaveJobState(ctx, st); err != nil {
				return fmt.Errorf("scheduler: persist initial state for %q: %w", name, err)
			}
		}
		e.state = st
	}

	s.running = true

	for _, name := range s.order {
		e := s.entries[name]
		if e.state.Enabled {
			s.arm(ctx, e)
		}
	}

	s.logger.Info("scheduler: started", "jobs", len(s.order))
	return nil
}

// Stop is idempotent. It cancels all timers and persists the current
// state map; an in-flight fire is allowed to complete, and its
// completion no-ops the re-arm because running is now false.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	for _, name := range s.order {
		e := s.entries[name]
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		if err := s.store.SaveJobState(ctx, e.state); err != nil {
			s.logger.Error("scheduler: persist state on stop failed", "job", name, "error", err)
		}
	}

	s.logger.Info("scheduler: stopped")
	return nil
}

// GetStatus returns a snapshot of every job's state in insertion order.
func (s *Scheduler) GetStatus() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.order))
	for _, name := range s.order {
		e := s.entries[name]
		out = append(out, Status{
			Name:    name,
			NextRun: e.state.NextRun,
			LastRun: e.state.LastRun,
			Enabled: e.state.Enabled,
		})
	}
	return out
}

// arm schedules e's timer to fire at max(0, state.nextRun - now). Callers
// must hold s.mu.
func (s *Scheduler) arm(ctx context.Context, e *entry) {
	var delay time.Duration
	if e.state.NextRun != nil {
		delay = time.Until(time.UnixMilli(*e.state.NextRun))
		if delay < 0 {
			delay = 0
		}
	}

	e.timer = time.AfterFunc(delay, func() {
		s.executeJob(ctx, e)
	})
}

// executeJob drives one timer expiry for e's job. It runs on the
// timer's own goroutine; different jobs' fires may run concurrently,
// but a single job's timer is only re-armed after this returns, so there
// is never more than one fire in flight per job.
func (s *Scheduler) executeJob(ctx context.Context, e *entry) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if e.strategy.Kind() == job.StrategyProbabilistic && !e.strategy.ShouldRun() {
		if s.metrics != nil {
			s.metrics.CheckSkipped(e.job.Name)
		}
		s.mu.Lock()
		next := e.strategy.GetNextCheckTime(s.now())
		e.state.NextRun = &next
		s.persistAndRearm(ctx, e)
		s.mu.Unlock()
		return
	}

	result := s.runJobSafely(ctx, e.job)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	nowMs := now.UnixMilli()
	e.state.LastRun = &nowMs
	if result.Status == job.StatusSuccess {
		e.state.FailCount = 0
	} else {
		e.state.FailCount++
	}

	next, err := e.strategy.CalculateNextRun(e.state.LastRun, now)
	if err != nil {
		s.logger.Error("scheduler: computing next run failed, job will not be re-armed", "job", e.job.Name, "error", err)
		return
	}
	e.state.NextRun = &next

	s.persistAndRearm(ctx, e)
}

// runJobSafely invokes the Runner and recovers from a panic escaping it;
// a job-local fault must never crash the scheduler.
func (s *Scheduler) runJobSafely(ctx context.Context, j job.Job) (result runner.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler: runner panicked, treating fire as failed", "job", j.Name, "panic", r)
			result = runner.Result{Status: job.StatusFailed, Err: fmt.Errorf("scheduler: recovered panic: %v", r)}
		}
	}()
	return s.runner.Run(ctx, j)
}

// persistAndRearm saves e's state and, if the scheduler is still running
// and the job is enabled, arms its next timer. Callers must hold s.mu.
func (s *Scheduler) persistAndRearm(ctx context.Context, e *entry) {
	if err := s.store.SaveJobState(ctx, e.state); err != nil {
		s.logger.Error("scheduler: persist state failed", "job", e.job.Name, "error", err)
	}

	if s.running && e.state.Enabled {
		s.arm(ctx, e)
	}
}
