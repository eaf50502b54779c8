package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/flemzord/cronx/internal/job"
)

// minAuthHeaderLen is the shortest credential the network executor will
// accept; anything shorter is almost certainly a typo, not a key.
const minAuthHeaderLen = 8

// Validate checks the structural validity of a Config: the store path,
// the executor selection and its transport rules, and job-list basics.
// Per-job parameter rules live on job.Job.Validate and are applied by
// ToJobs. All problems are collected and reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.StorePath == "" {
		errs = append(errs, errors.New("config: storePath is required"))
	}

	if len(cfg.Jobs) == 0 {
		errs = append(errs, errors.New("config: at least one job must be configured"))
	}

	seen := make(map[string]bool, len(cfg.Jobs))
	for i, jc := range cfg.Jobs {
		if jc.Name == "" {
			errs = append(errs, fmt.Errorf("config: jobs[%d]: name is required", i))
			continue
		}
		if seen[jc.Name] {
			errs = append(errs, fmt.Errorf("config: duplicate job name %q", jc.Name))
		}
		seen[jc.Name] = true
	}

	errs = append(errs, validateExecutor(&cfg.Executor)...)

	return errors.Join(errs...)
}

func validateExecutor(ec *ExecutorConfig) []error {
	var errs []error

	switch ec.Kind {
	case "network":
		if ec.Network == nil {
			return []error{errors.New("config: executor.kind is \"network\" but executor.network is missing")}
		}
		errs = append(errs, validateEndpointURL("executor.network.triggerUrl", ec.Network.TriggerURL)...)
		errs = append(errs, validateEndpointURL("executor.network.notifyUrl", ec.Network.NotifyURL)...)
		if ah := ec.Network.AuthHeader; ah != "" && len(ah) < minAuthHeaderLen {
			errs = append(errs, fmt.Errorf("config: executor.network.authHeader must be at least %d characters", minAuthHeaderLen))
		}
		if ec.Network.RatePerSecond < 0 {
			errs = append(errs, errors.New("config: executor.network.ratePerSecond must not be negative"))
		}
	case "filedrop":
		if ec.Filedrop == nil {
			return []error{errors.New("config: executor.kind is \"filedrop\" but executor.filedrop is missing")}
		}
		// Command stays optional: without one, a fire succeeds when the
		// external runtime picks the trigger file up.
		if ec.Filedrop.TriggerDir == "" {
			errs = append(errs, errors.New("config: executor.filedrop.triggerDir is required"))
		}
	case "":
		errs = append(errs, errors.New("config: executor.kind is required (\"network\" or \"filedrop\")"))
	default:
		errs = append(errs, fmt.Errorf("config: unknown executor.kind %q (supported: \"network\", \"filedrop\")", ec.Kind))
	}

	return errs
}

// validateEndpointURL enforces HTTPS on executor endpoints, with a
// loopback exception for local development.
func validateEndpointURL(field, raw string) []error {
	if raw == "" {
		return []error{fmt.Errorf("config: %s is required", field)}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("config: %s: invalid URL: %w", field, err)}
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if host := u.Hostname(); host == "localhost" || host == "127.0.0.1" {
			return nil
		}
		return []error{fmt.Errorf("config: %s: plain HTTP is only allowed for localhost/127.0.0.1, got host %q", field, u.Hostname())}
	default:
		return []error{fmt.Errorf("config: %s: unsupported scheme %q", field, u.Scheme)}
	}
}

// ToJobs converts the configured job list into validated job.Job values.
// It assumes Validate(cfg) already passed; each converted Job is still
// run through job.Validate so a malformed entry is rejected with its
// own error rather than reaching the scheduler.
func ToJobs(cfg *Config) ([]job.Job, error) {
	jobs := make([]job.Job, 0, len(cfg.Jobs))
	var errs []error

	for _, jc := range cfg.Jobs {
		j, err := jc.toJob()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := j.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: %w", err))
			continue
		}
		jobs = append(jobs, j)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (jc JobConfig) toJob() (job.Job, error) {
	j := job.Job{
		Name:     jc.Name,
		Strategy: job.StrategyKind(jc.Strategy),
		Action: job.Action{
			Message:       jc.Action.Message,
			Priority:      job.Priority(jc.Action.Priority),
			Recipient:     jc.Action.Recipient,
			ThinkingLevel: jc.Action.ThinkingLevel,
		},
		Enabled:   true,
		OnFailure: job.OnFailure(jc.OnFailure),
	}

	if jc.Enabled != nil {
		j.Enabled = *jc.Enabled
	}

	switch j.Strategy {
	case job.StrategyWindow:
		if jc.Window == nil {
			return job.Job{}, fmt.Errorf("config: job %q: strategy is \"window\" but window block is missing", jc.Name)
		}
		j.Window = job.WindowConfig{
			Start:        jc.Window.Start,
			End:          jc.Window.End,
			TZ:           jc.Window.TZ,
			Distribution: job.WindowDistribution(jc.Window.Distribution),
		}
		if j.Window.Distribution == "" {
			j.Window.Distribution = job.DistWeighted
		}
	case job.StrategyInterval:
		if jc.Interval == nil {
			return job.Job{}, fmt.Errorf("config: job %q: strategy is \"interval\" but interval block is missing", jc.Name)
		}
		j.Interval = job.IntervalConfig{
			MinSeconds: jc.Interval.MinSeconds,
			MaxSeconds: jc.Interval.MaxSeconds,
			Jitter:     jc.Interval.Jitter,
		}
	case job.StrategyProbabilistic:
		if jc.Probabilistic == nil {
			return job.Job{}, fmt.Errorf("config: job %q: strategy is \"probabilistic\" but probabilistic block is missing", jc.Name)
		}
		j.Probabilistic = job.ProbabilisticConfig{
			CheckIntervalSeconds: jc.Probabilistic.CheckIntervalSeconds,
			Probability:          jc.Probabilistic.Probability,
		}
	}

	if jc.Retry != nil {
		j.Retry = &job.RetryConfig{
			Attempts:      jc.Retry.Attempts,
			Backoff:       job.BackoffKind(jc.Retry.Backoff),
			TimeoutSecond: jc.Retry.TimeoutSecond,
		}
	}

	return j, nil
}
