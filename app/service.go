// Package app wires the planner and its outer layers from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kilianp07/shiftmatch/config"
	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/fingerprint"
	"github.com/kilianp07/shiftmatch/core/matching"
	coremetrics "github.com/kilianp07/shiftmatch/core/metrics"
	coremon "github.com/kilianp07/shiftmatch/core/monitoring"
	"github.com/kilianp07/shiftmatch/core/planner"
	"github.com/kilianp07/shiftmatch/core/runlog"
	"github.com/kilianp07/shiftmatch/infra/logger"
	_ "github.com/kilianp07/shiftmatch/infra/metrics"
	"github.com/kilianp07/shiftmatch/infra/monitoring"
	"github.com/kilianp07/shiftmatch/pkg/export"
	"github.com/kilianp07/shiftmatch/pkg/ingest"
)

// Service holds a configured planner and the resources it publishes to.
type Service struct {
	Planner  *planner.Planner
	Calendar *calendar.Template
	cfg      *config.Config
	sink     coremetrics.MetricsSink
	store    runlog.Store
	monitor  coremon.Monitor
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config, out io.Writer) (*Service, error) {
	if out == nil {
		out = os.Stdout
	}
	logg, err := logger.NewWithConfig("planner", cfg.Log, out)
	if err != nil {
		return nil, err
	}
	cal, err := cfg.Calendar.Template()
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	strategy, err := matching.ParseStrategy(cfg.Planner.Strategy)
	if err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sentry: %w", err)
	}

	opts := []planner.Option{
		planner.WithLogger(logg),
		planner.WithStrategy(strategy),
		planner.WithSink(sink),
		planner.WithStore(store),
		planner.WithMonitor(mon),
		planner.WithConcurrency(!cfg.Planner.Sequential),
	}
	if cfg.Planner.Cache {
		opts = append(opts, planner.WithCache(fingerprint.NewMemoryCache[*planner.Report]()))
	}
	p, err := planner.New(cal, cfg.Constraints, cfg.Points, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Service{
		Planner:  p,
		Calendar: cal,
		cfg:      cfg,
		sink:     sink,
		store:    store,
		monitor:  mon,
		log:      logg,
	}, nil
}

// LoadInput reads the desk and operator CSV files. A non-positive horizon
// falls back to the configured one.
func (s *Service) LoadInput(desksPath, operatorsPath string, horizon int) (planner.Input, error) {
	if horizon <= 0 {
		horizon = s.cfg.Planner.Horizon
	}
	df, err := os.Open(desksPath)
	if err != nil {
		return planner.Input{}, err
	}
	defer func() { _ = df.Close() }()
	tab, err := ingest.ReadDesks(df, s.Calendar)
	if err != nil {
		return planner.Input{}, fmt.Errorf("%s: %w", desksPath, err)
	}
	of, err := os.Open(operatorsPath)
	if err != nil {
		return planner.Input{}, err
	}
	defer func() { _ = of.Close() }()
	ops, err := ingest.ReadOperators(of, s.Calendar, tab.Desks)
	if err != nil {
		return planner.Input{}, fmt.Errorf("%s: %w", operatorsPath, err)
	}
	return planner.Input{
		Desks:        tab.Desks,
		Requirements: tab.Requirements(horizon),
		Operators:    ops,
		Horizon:      horizon,
	}, nil
}

// Plan runs the planner.
func (s *Service) Plan(ctx context.Context, in planner.Input) (*planner.Report, error) {
	return s.Planner.Plan(ctx, in)
}

// Export writes every output of rep into dir and returns the file paths.
func (s *Service) Export(rep *planner.Report, dir string, chart bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	label := s.cfg.Planner.BreakLabel
	writers := map[string]func(io.Writer) error{
		"schedule.csv":         func(w io.Writer) error { return export.WriteScheduleCSV(w, rep, label) },
		"points.csv":           func(w io.Writer) error { return export.WriteLedgerCSV(w, rep.Ledger) },
		"points_breakdown.csv": func(w io.Writer) error { return export.WriteLedgerBreakdownCSV(w, rep.Ledger, rep.Slots) },
		"shortages.csv":        func(w io.Writer) error { return export.WriteShortagesCSV(w, rep) },
		"violations.csv":       func(w io.Writer) error { return export.WriteViolationsCSV(w, rep) },
		"report.json":          func(w io.Writer) error { return export.WriteJSON(w, rep) },
	}
	for day := 0; day < rep.Schedule.Horizon; day++ {
		d := day
		writers[fmt.Sprintf("pivot_day%d.csv", d)] = func(w io.Writer) error {
			return export.WritePivotCSV(w, rep, d, label)
		}
	}
	if chart {
		writers["coverage.html"] = func(w io.Writer) error { return export.RenderCoverageChart(w, rep) }
	}
	names := fingerprint.SortedKeys(writers)
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := writeFile(path, writers[name]); err != nil {
			return paths, fmt.Errorf("%s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	return fn(f)
}

// History returns the most recent runs recorded in the run log.
func (s *Service) History(ctx context.Context, limit int) ([]runlog.Record, error) {
	return s.store.Query(ctx, runlog.Query{Limit: limit})
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.monitor.Flush(2 * time.Second)
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return s.store.Close()
}
