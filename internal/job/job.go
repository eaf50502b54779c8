// Package job defines the data model shared by the scheduling core:
// the immutable Job a user configures, the mutable JobState the
// scheduler persists across restarts, and the RunRecord the runner
// appends to the store after every fire.
package job

import (
	"fmt"
	"regexp"
)

// windowTimePattern matches the HH:MM time-of-day format window bounds use.
var windowTimePattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// StrategyKind selects which of the three scheduling strategies a Job uses.
type StrategyKind string

// StrategyKind values.
const (
	StrategyWindow        StrategyKind = "window"
	StrategyInterval      StrategyKind = "interval"
	StrategyProbabilistic StrategyKind = "probabilistic"
)

// Priority is the urgency hint passed opaquely to the executor.
type Priority string

// Priority values.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// BackoffKind selects how the runner spaces out retry attempts.
type BackoffKind string

// BackoffKind values.
const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// OnFailure selects how the runner reacts to a fire that did not succeed.
type OnFailure string

// OnFailure values.
const (
	OnFailureNotify   OnFailure = "notify"
	OnFailureSilent   OnFailure = "silent"
	OnFailureEscalate OnFailure = "escalate"
)

// RunStatus is the terminal outcome of a single fire.
type RunStatus string

// RunStatus values.
const (
	StatusSuccess RunStatus = "success"
	StatusFailed  RunStatus = "failed"
	StatusTimeout RunStatus = "timeout"
)

// WindowConfig parameterizes the Window strategy: a daily time-of-day
// interval in a given IANA zone, plus the distribution used to pick a
// point inside that interval.
type WindowConfig struct {
	// Start and End are "HH:MM" in TZ. End <= Start means the window
	// spans midnight.
	Start string
	End   string
	TZ    string

	Distribution WindowDistribution
}

// WindowDistribution selects how a timestamp is drawn from inside the window.
type WindowDistribution string

// WindowDistribution values.
const (
	DistUniform  WindowDistribution = "uniform"
	DistGaussian WindowDistribution = "gaussian"
	DistWeighted WindowDistribution = "weighted"
)

// IntervalConfig parameterizes the Interval strategy: a randomized gap
// between Min and Max seconds, optionally jittered.
type IntervalConfig struct {
	MinSeconds int
	MaxSeconds int
	Jitter     float64 // in [0, 1]
}

// ProbabilisticConfig parameterizes the Probabilistic strategy: a fixed
// check cadence and a per-check probability of firing.
type ProbabilisticConfig struct {
	CheckIntervalSeconds int
	Probability          float64 // in [0, 1]
}

// RetryConfig controls the runner's attempt loop for a single fire.
type RetryConfig struct {
	Attempts      int
	Backoff       BackoffKind
	TimeoutSecond int
}

// DefaultRetryConfig is used when a Job does not specify its own retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Backoff: BackoffExponential, TimeoutSecond: 30}
}

// Action is the message handed to the executor when a Job fires.
type Action struct {
	Message  string
	Priority Priority

	// Recipient and ThinkingLevel are opaque delivery hints passed through
	// to the executor untouched; the core never interprets them.
	Recipient     string
	ThinkingLevel string
}

// Job is the immutable, validated input to the scheduling core.
type Job struct {
	Name     string
	Strategy StrategyKind

	Window        WindowConfig
	Interval      IntervalConfig
	Probabilistic ProbabilisticConfig

	Action Action

	Enabled   bool
	Retry     *RetryConfig // nil means DefaultRetryConfig()
	OnFailure OnFailure
}

// EffectiveRetry returns the Job's retry policy, falling back to
// DefaultRetryConfig when none was configured.
func (j Job) EffectiveRetry() RetryConfig {
	if j.Retry != nil {
		return *j.Retry
	}
	return DefaultRetryConfig()
}

// Validate re-asserts the loader's validation rules so the core never
// schedules a malformed Job, even if the upstream loader let one through.
func (j Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("job: name is required")
	}

	switch j.Strategy {
	case StrategyWindow:
		if !windowTimePattern.MatchString(j.Window.Start) {
			return fmt.Errorf("job %q: window.start %q does not match HH:MM", j.Name, j.Window.Start)
		}
		if !windowTimePattern.MatchString(j.Window.End) {
			return fmt.Errorf("job %q: window.end %q does not match HH:MM", j.Name, j.Window.End)
		}
		if j.Window.TZ == "" {
			return fmt.Errorf("job %q: window.tz is required", j.Name)
		}
	case StrategyInterval:
		if j.Interval.MinSeconds < 1 {
			return fmt.Errorf("job %q: interval.min must be >= 1", j.Name)
		}
		if j.Interval.MaxSeconds < j.Interval.MinSeconds {
			return fmt.Errorf("job %q: interval.max must be >= interval.min", j.Name)
		}
		if j.Interval.Jitter < 0 || j.Interval.Jitter > 1 {
			return fmt.Errorf("job %q: interval.jitter must be in [0, 1]", j.Name)
		}
	case StrategyProbabilistic:
		if j.Probabilistic.CheckIntervalSeconds < 1 {
			return fmt.Errorf("job %q: probabilistic.checkInterval must be >= 1", j.Name)
		}
		if j.Probabilistic.Probability < 0 || j.Probabilistic.Probability > 1 {
			return fmt.Errorf("job %q: probabilistic.probability must be in [0, 1]", j.Name)
		}
	default:
		return fmt.Errorf("job %q: unknown strategy %q", j.Name, j.Strategy)
	}

	if j.Retry != nil {
		if j.Retry.Attempts < 1 {
			return fmt.Errorf("job %q: retry.attempts must be >= 1", j.Name)
		}
		if j.Retry.TimeoutSecond < 1 {
			return fmt.Errorf("job %q: retry.timeout must be >= 1", j.Name)
		}
		switch j.Retry.Backoff {
		case BackoffFixed, BackoffLinear, BackoffExponential:
		default:
			return fmt.Errorf("job %q: retry.backoff %q is invalid", j.Name, j.Retry.Backoff)
		}
	}

	switch j.OnFailure {
	case "", OnFailureNotify, OnFailureSilent, OnFailureEscalate:
	default:
		return fmt.Errorf("job %q: onFailure %q is invalid", j.Name, j.OnFailure)
	}

	switch j.Action.Priority {
	case "", PriorityLow, PriorityNormal, PriorityHigh:
	default:
		return fmt.Errorf("job %q: action.priority %q is invalid", j.Name, j.Action.Priority)
	}

	return nil
}

// State is the mutable, persisted scheduling state for a Job.
type State struct {
	Name      string
	NextRun   *int64 // ms since epoch; nil if never scheduled or disabled
	LastRun   *int64 // ms since epoch
	Enabled   bool
	FailCount int
}

// RunRecord is one append-only entry in the run history log.
type RunRecord struct {
	ID          int64
	JobName     string
	ScheduledAt int64 // ms since epoch
	TriggeredAt int64 // ms since epoch
	CompletedAt int64 // ms since epoch
	DurationMs  int64
	Status      RunStatus
	Response    string // serialized JSON, or raw text
	Error       string
	Attempts    int
}
