package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/flemzord/cronx/internal/job"
)

func TestPrometheus_FireCompleted(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.FireCompleted("nudge", job.StatusSuccess, 1500*time.Millisecond, 2)
	p.FireCompleted("nudge", job.StatusFailed, 100*time.Millisecond, 3)

	if got := testutil.ToFloat64(p.fires.WithLabelValues("nudge", "success")); got != 1 {
		t.Fatalf("fires{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.fires.WithLabelValues("nudge", "failed")); got != 1 {
		t.Fatalf("fires{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.attempts.WithLabelValues("nudge")); got != 5 {
		t.Fatalf("attempts = %v, want 5", got)
	}
}

func TestPrometheus_CheckSkipped(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.CheckSkipped("maybe")
	p.CheckSkipped("maybe")

	if got := testutil.ToFloat64(p.skips.WithLabelValues("maybe")); got != 2 {
		t.Fatalf("skips = %v, want 2", got)
	}
}
