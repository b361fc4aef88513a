// Package runlog keeps an append-only history of planning runs.
package runlog

import (
	"context"
	"fmt"
	"time"
)

// Record captures one planning run.
type Record struct {
	RunID       string    `json:"run_id"`
	Timestamp   time.Time `json:"timestamp"`
	Fingerprint string    `json:"fingerprint"`
	Strategy    string    `json:"strategy"`
	Horizon     int       `json:"horizon"`
	Operators   int       `json:"operators"`
	Assignments int       `json:"assignments"`
	Unassigned  int       `json:"unassigned"`
	Shortages   int       `json:"shortages"`
	ShortSeats  int       `json:"short_seats"`
	Overrides   int       `json:"break_overrides"`
	Points      string    `json:"points"`
	CacheHit    bool      `json:"cache_hit"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero values match anything.
type Query struct {
	Start       time.Time
	End         time.Time
	Fingerprint string
	Strategy    string
	// Limit keeps only the most recent matches when positive.
	Limit int
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Fingerprint != "" && r.Fingerprint != q.Fingerprint {
		return false
	}
	if q.Strategy != "" && r.Strategy != q.Strategy {
		return false
	}
	return true
}

func (q Query) trim(rs []Record) []Record {
	if q.Limit > 0 && len(rs) > q.Limit {
		return rs[len(rs)-q.Limit:]
	}
	return rs
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// Config selects the store backend.
type Config struct {
	// Type is one of "", "none", "jsonl" or "rotating".
	Type       string `json:"type"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills unset rotation limits.
func (c *Config) SetDefaults() {
	if c.Type == "rotating" {
		if c.MaxSizeMB == 0 {
			c.MaxSizeMB = 10
		}
		if c.MaxBackups == 0 {
			c.MaxBackups = 3
		}
		if c.MaxAgeDays == 0 {
			c.MaxAgeDays = 30
		}
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Type {
	case "", "none":
		return nil
	case "jsonl", "rotating":
		if c.Path == "" {
			return fmt.Errorf("runlog: path required for %s store", c.Type)
		}
		if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
			return fmt.Errorf("runlog: rotation limits must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("runlog: unknown store type %q", c.Type)
	}
}

// Open builds the store described by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	default:
		return NopStore{}, nil
	}
}
