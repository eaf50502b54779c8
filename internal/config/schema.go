// Package config loads a YAML job list into validated cronx Job values.
// It is the only place YAML appears in this repository: the scheduling
// core itself takes typed Go structs and never parses configuration.
package config

// Config is the top-level configuration structure: a seed for
// deterministic scheduling, an executor to dispatch fires through, a
// store path, and the list of jobs to run.
type Config struct {
	// Seed, if set, makes every strategy's RNG deterministic — the same
	// seed and job list always produce the same schedule. Empty means
	// each job draws from a non-deterministic source.
	Seed string `yaml:"seed,omitempty"`

	// StorePath is the sqlite database file the Store persists to.
	StorePath string `yaml:"storePath"`

	Executor ExecutorConfig `yaml:"executor"`
	Jobs     []JobConfig    `yaml:"jobs"`
}

// ExecutorConfig selects and parameterizes one of the two executor
// shapes this repository ships.
type ExecutorConfig struct {
	// Kind is "network" or "filedrop".
	Kind string `yaml:"kind"`

	Network  *NetworkExecutorConfig  `yaml:"network,omitempty"`
	Filedrop *FiledropExecutorConfig `yaml:"filedrop,omitempty"`
}

// NetworkExecutorConfig parameterizes internal/executor/network.
type NetworkExecutorConfig struct {
	TriggerURL    string  `yaml:"triggerUrl"`
	NotifyURL     string  `yaml:"notifyUrl"`
	AuthHeader    string  `yaml:"authHeader,omitempty"`
	RatePerSecond float64 `yaml:"ratePerSecond,omitempty"`
}

// FiledropExecutorConfig parameterizes internal/executor/filedrop.
type FiledropExecutorConfig struct {
	TriggerDir    string   `yaml:"triggerDir"`
	Command       string   `yaml:"command"`
	Args          []string `yaml:"args,omitempty"`
	NotifyCommand string   `yaml:"notifyCommand,omitempty"`
	NotifyArgs    []string `yaml:"notifyArgs,omitempty"`
}

// JobConfig is the YAML shape of a single job, converted and validated
// into a job.Job by ToJobs.
type JobConfig struct {
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"`

	Window        *WindowConfig        `yaml:"window,omitempty"`
	Interval      *IntervalConfig      `yaml:"interval,omitempty"`
	Probabilistic *ProbabilisticConfig `yaml:"probabilistic,omitempty"`

	Action ActionConfig `yaml:"action"`

	Enabled   *bool        `yaml:"enabled,omitempty"`
	Retry     *RetryConfig `yaml:"retry,omitempty"`
	OnFailure string       `yaml:"onFailure,omitempty"`
}

// WindowConfig is the YAML shape of job.WindowConfig.
type WindowConfig struct {
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
	TZ           string `yaml:"tz"`
	Distribution string `yaml:"distribution,omitempty"`
}

// IntervalConfig is the YAML shape of job.IntervalConfig.
type IntervalConfig struct {
	MinSeconds int     `yaml:"min"`
	MaxSeconds int     `yaml:"max"`
	Jitter     float64 `yaml:"jitter,omitempty"`
}

// ProbabilisticConfig is the YAML shape of job.ProbabilisticConfig.
type ProbabilisticConfig struct {
	CheckIntervalSeconds int     `yaml:"checkInterval"`
	Probability          float64 `yaml:"probability"`
}

// RetryConfig is the YAML shape of job.RetryConfig.
type RetryConfig struct {
	Attempts      int    `yaml:"attempts"`
	Backoff       string `yaml:"backoff"`
	TimeoutSecond int    `yaml:"timeout"`
}

// ActionConfig is the YAML shape of job.Action.
type ActionConfig struct {
	Message       string `yaml:"message"`
	Priority      string `yaml:"priority,omitempty"`
	Recipient     string `yaml:"recipient,omitempty"`
	ThinkingLevel string `yaml:"thinkingLevel,omitempty"`
}
