package metrics

import "time"

// RunSummary describes one completed planning run.
type RunSummary struct {
	RunID       string
	Fingerprint string
	Strategy    string
	Horizon     int
	Operators   int
	Desks       int
	Assignments int
	Unassigned  int

	// ShortSeats is the total headcount missing across all shortage entries.
	ShortSeats     int
	Shortages      int
	BreakOverrides int
	Rejections     int
	Rounds         int
	Points         float64
	CacheHit       bool
	Duration       time.Duration
	Time           time.Time
}

// MetricsSink records planning runs for observability purposes.
type MetricsSink interface {
	RecordRun(s RunSummary) error
}

// ShortageEvent is one desk slot left below requirement.
type ShortageEvent struct {
	RunID     string
	Desk      string
	Day       int
	Slot      string
	Missing   int
	Forfeited int
	Time      time.Time
}

// ShortageRecorder is implemented by sinks able to record individual shortages.
type ShortageRecorder interface {
	RecordShortages(evs []ShortageEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunSummary) error            { return nil }
func (NopSink) RecordShortages([]ShortageEvent) error { return nil }
