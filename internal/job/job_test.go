package job

import "testing"

func TestJob_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{
			name: "valid interval",
			job: Job{
				Name:     "nudge",
				Strategy: StrategyInterval,
				Interval: IntervalConfig{MinSeconds: 60, MaxSeconds: 120, Jitter: 0.2},
			},
		},
		{
			name: "missing name",
			job: Job{
				Strategy: StrategyInterval,
				Interval: IntervalConfig{MinSeconds: 1, MaxSeconds: 2},
			},
			wantErr: true,
		},
		{
			name: "interval max below min",
			job: Job{
				Name:     "bad",
				Strategy: StrategyInterval,
				Interval: IntervalConfig{MinSeconds: 100, MaxSeconds: 10},
			},
			wantErr: true,
		},
		{
			name: "interval jitter out of range",
			job: Job{
				Name:     "bad",
				Strategy: StrategyInterval,
				Interval: IntervalConfig{MinSeconds: 1, MaxSeconds: 2, Jitter: 1.5},
			},
			wantErr: true,
		},
		{
			name: "window bad time format",
			job: Job{
				Name:     "bad",
				Strategy: StrategyWindow,
				Window:   WindowConfig{Start: "9am", End: "17:00", TZ: "UTC"},
			},
			wantErr: true,
		},
		{
			name: "window missing tz",
			job: Job{
				Name:     "bad",
				Strategy: StrategyWindow,
				Window:   WindowConfig{Start: "09:00", End: "17:00"},
			},
			wantErr: true,
		},
		{
			name: "valid window",
			job: Job{
				Name:     "ok",
				Strategy: StrategyWindow,
				Window:   WindowConfig{Start: "09:00", End: "17:00", TZ: "Asia/Jakarta", Distribution: DistWeighted},
			},
		},
		{
			name: "probabilistic probability out of range",
			job: Job{
				Name:          "bad",
				Strategy:      StrategyProbabilistic,
				Probabilistic: ProbabilisticConfig{CheckIntervalSeconds: 60, Probability: 1.1},
			},
			wantErr: true,
		},
		{
			name: "unknown strategy",
			job: Job{
				Name:     "bad",
				Strategy: "bogus",
			},
			wantErr: true,
		},
		{
			name: "invalid retry backoff",
			job: Job{
				Name:     "bad",
				Strategy: StrategyInterval,
				Interval: IntervalConfig{MinSeconds: 1, MaxSeconds: 2},
				Retry:    &RetryConfig{Attempts: 3, Backoff: "bogus", TimeoutSecond: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid onFailure",
			job: Job{
				Name:      "bad",
				Strategy:  StrategyInterval,
				Interval:  IntervalConfig{MinSeconds: 1, MaxSeconds: 2},
				OnFailure: "bogus",
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.job.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestJob_EffectiveRetry(t *testing.T) {
	t.Parallel()

	var j Job
	got := j.EffectiveRetry()
	want := DefaultRetryConfig()
	if got != want {
		t.Fatalf("EffectiveRetry() = %+v, want %+v", got, want)
	}

	custom := RetryConfig{Attempts: 1, Backoff: BackoffFixed, TimeoutSecond: 5}
	j.Retry = &custom
	if got := j.EffectiveRetry(); got != custom {
		t.Fatalf("EffectiveRetry() = %+v, want %+v", got, custom)
	}
}
