// Package strategy implements the three pure next-run functions CRONX's
// scheduler consults: Window, Interval, and Probabilistic. Each strategy
// is a tagged variant over job.StrategyKind rather than a class
// hierarchy — the Scheduler checks the Kind before calling the
// probabilistic-only methods.
package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/flemzord/cronx/internal/job"
	"github.com/flemzord/cronx/internal/rng"
)

// segmentWeights partitions a Window into seven equal segments with a
// fixed bell-shaped weighting, so the weighted distribution clusters
// fires toward the middle of the window.
var segmentWeights = []float64{0.05, 0.10, 0.20, 0.30, 0.20, 0.10, 0.05}

// Strategy computes the next run time for a single Job. It is owned by
// exactly one Job instance and holds its own RNG; it must not be shared
// across goroutines.
type Strategy struct {
	kind job.StrategyKind

	window        job.WindowConfig
	interval      job.IntervalConfig
	probabilistic job.ProbabilisticConfig

	loc *time.Location
	src rng.Source
}

// New builds a Strategy for j, deriving its RNG from src. Pass a fresh
// rng.Source per strategy instance — never share one across jobs.
func New(j job.Job, src rng.Source) (*Strategy, error) {
	s := &Strategy{
		kind:          j.Strategy,
		window:        j.Window,
		interval:      j.Interval,
		probabilistic: j.Probabilistic,
		src:           src,
	}

	if j.Strategy == job.StrategyWindow {
		loc, err := time.LoadLocation(j.Window.TZ)
		if err != nil {
			return nil, fmt.Errorf("strategy: load timezone %q: %w", j.Window.TZ, err)
		}
		s.loc = loc
	}

	return s, nil
}

// Kind reports which of the three strategies this instance implements.
func (s *Strategy) Kind() job.StrategyKind { return s.kind }

// CalculateNextRun returns the next fire time in ms since epoch, given the
// job's last run (nil if it has never fired) and the current time.
func (s *Strategy) CalculateNextRun(lastRun *int64, now time.Time) (int64, error) {
	switch s.kind {
	case job.StrategyWindow:
		return s.nextWindowRun(now)
	case job.StrategyInterval:
		return s.nextIntervalRun(lastRun, now), nil
	case job.StrategyProbabilistic:
		return s.GetNextCheckTime(now), nil
	default:
		return 0, fmt.Errorf("strategy: unknown kind %q", s.kind)
	}
}

// ShouldRun decides, for a probabilistic strategy, whether this tick
// should actually fire the job. probability <= 0 always returns false and
// probability >= 1 always returns true, in both cases without consuming a
// draw.
func (s *Strategy) ShouldRun() bool {
	p := s.probabilistic.Probability
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.src.Float64() < p
}

// GetNextCheckTime returns now plus the probabilistic strategy's check
// interval, in ms since epoch.
func (s *Strategy) GetNextCheckTime(now time.Time) int64 {
	return now.Add(time.Duration(s.probabilistic.CheckIntervalSeconds) * time.Second).UnixMilli()
}

// nextIntervalRun draws a randomized gap in [min, max] seconds, applies
// jitter, and anchors it at lastRun, rebasing to now when that would land
// in the past.
func (s *Strategy) nextIntervalRun(lastRun *int64, now time.Time) int64 {
	base := rng.Uniform(s.src, float64(s.interval.MinSeconds), float64(s.interval.MaxSeconds))

	var intervalSeconds float64
	if s.interval.Jitter > 0 {
		intervalSeconds = rng.Jittered(s.src, base, s.interval.Jitter)
		if intervalSeconds < 0 {
			intervalSeconds = 0
		}
	} else {
		intervalSeconds = base
	}

	dMs := int64(math.Floor(intervalSeconds * 1000))
	nowMs := now.UnixMilli()

	if lastRun == nil {
		return nowMs + dMs
	}

	fromLast := *lastRun + dMs
	fromNow := nowMs + dMs
	if fromLast > fromNow {
		return fromLast
	}
	return fromNow
}

// nextWindowRun picks a point inside today's window, rolling both bounds
// to tomorrow when today's window has already closed.
func (s *Strategy) nextWindowRun(now time.Time) (int64, error) {
	nowInLoc := now.In(s.loc)

	startH, startM, err := parseHHMM(s.window.Start)
	if err != nil {
		return 0, fmt.Errorf("strategy: parse window.start: %w", err)
	}
	endH, endM, err := parseHHMM(s.window.End)
	if err != nil {
		return 0, fmt.Errorf("strategy: parse window.end: %w", err)
	}

	windowStart := time.Date(nowInLoc.Year(), nowInLoc.Month(), nowInLoc.Day(), startH, startM, 0, 0, s.loc)
	windowEnd := time.Date(nowInLoc.Year(), nowInLoc.Month(), nowInLoc.Day(), endH, endM, 0, 0, s.loc)

	if !windowEnd.After(windowStart) {
		windowEnd = windowEnd.AddDate(0, 0, 1)
	}

	if nowInLoc.After(windowEnd) {
		windowStart = windowStart.AddDate(0, 0, 1)
		windowEnd = windowEnd.AddDate(0, 0, 1)
	}

	picked := s.pickWithinWindow(windowStart, windowEnd)
	return picked.UnixMilli(), nil
}

// pickWithinWindow picks an absolute timestamp inside [start, end]
// according to the configured distribution.
func (s *Strategy) pickWithinWindow(start, end time.Time) time.Time {
	startMs := float64(start.UnixMilli())
	endMs := float64(end.UnixMilli())

	switch s.window.Distribution {
	case job.DistGaussian:
		mid := (startMs + endMs) / 2
		stddev := (endMs - startMs) / 6
		z := rng.Gaussian(s.src)
		picked := mid + z*stddev
		if picked < startMs {
			picked = startMs
		}
		if picked > endMs {
			picked = endMs
		}
		return msToTime(picked)
	case job.DistWeighted:
		segment := rng.Weighted(s.src, segmentWeights)
		segWidth := (endMs - startMs) / float64(len(segmentWeights))
		segStart := startMs + float64(segment)*segWidth
		segEnd := segStart + segWidth
		return msToTime(rng.Uniform(s.src, segStart, segEnd))
	default: // job.DistUniform and any unset value
		return msToTime(rng.Uniform(s.src, startMs, endMs))
	}
}

func msToTime(ms float64) time.Time {
	return time.UnixMilli(int64(math.Floor(ms)))
}

func parseHHMM(s string) (hour, minute int, err error) {
	var t time.Time
	t, err = time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
