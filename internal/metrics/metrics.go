// Package metrics exposes fire and attempt counters for the scheduling
// core. The Runner and Scheduler talk to the Recorder interface and
// tolerate a nil recorder, so metrics stay optional wiring rather than
// a core dependency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/cronx/internal/job"
)

// Recorder receives scheduling events as they happen.
type Recorder interface {
	// FireCompleted is called once per fire with its terminal outcome.
	FireCompleted(jobName string, status job.RunStatus, duration time.Duration, attempts int)

	// CheckSkipped is called when a probabilistic job's timer fired but
	// ShouldRun declined the tick.
	CheckSkipped(jobName string)
}

// Prometheus is a Recorder backed by prometheus collectors.
type Prometheus struct {
	fires    *prometheus.CounterVec
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skips    *prometheus.CounterVec

	registry *prometheus.Registry
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus constructs a Prometheus recorder with its own registry,
// so tests and multiple schedulers never fight over collector names.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		fires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cronx",
			Name:      "fires_total",
			Help:      "Fires completed, by job and terminal status.",
		}, []string{"job", "status"}),

		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cronx",
			Name:      "attempts_total",
			Help:      "Executor attempts made across all fires, by job.",
		}, []string{"job"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cronx",
			Name:      "fire_duration_seconds",
			Help:      "Wall-clock duration of a fire, including retries and backoff.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"job", "status"}),

		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cronx",
			Name:      "checks_skipped_total",
			Help:      "Probabilistic ticks where ShouldRun declined to fire.",
		}, []string{"job"}),

		registry: prometheus.NewRegistry(),
	}

	p.registry.MustRegister(p.fires, p.attempts, p.duration, p.skips)
	return p
}

// FireCompleted implements Recorder.
func (p *Prometheus) FireCompleted(jobName string, status job.RunStatus, duration time.Duration, attempts int) {
	p.fires.WithLabelValues(jobName, string(status)).Inc()
	p.attempts.WithLabelValues(jobName).Add(float64(attempts))
	p.duration.WithLabelValues(jobName, string(status)).Observe(duration.Seconds())
}

// CheckSkipped implements Recorder.
func (p *Prometheus) CheckSkipped(jobName string) {
	p.skips.WithLabelValues(jobName).Inc()
}

// Handler returns an http.Handler serving this recorder's registry in
// the prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
