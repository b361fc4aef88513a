package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kilianp07/shiftmatch/core/matching"
	coremetrics "github.com/kilianp07/shiftmatch/core/metrics"
	"github.com/kilianp07/shiftmatch/infra/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromSink records planning runs in Prometheus collectors.
type PromSink struct {
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
	assigned  prometheus.Gauge
	missing   prometheus.Gauge
	overrides prometheus.Counter
	shortages *prometheus.CounterVec

	// textfile, when set, receives the gathered registry after every run.
	textfile string
	gatherer prometheus.Gatherer
	listener net.Listener
	server   *http.Server
}

// newRegistry returns a private registry carrying the matching engine
// collectors next to the run collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	matching.MustRegisterMetrics(reg)
	return reg
}

// NewTextfileSink registers run metrics on a private registry that is written
// to path after every run, for the node exporter textfile collector.
func NewTextfileSink(path string) (*PromSink, error) {
	if path == "" {
		return nil, errors.New("prometheus textfile path is empty")
	}
	reg := newRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, err
	}
	s.textfile = path
	s.gatherer = reg
	return s, nil
}

// NewServedSink registers run metrics on a private registry exposed on
// addr under /metrics until Close is called.
func NewServedSink(addr string) (*PromSink, error) {
	if addr == "" {
		return nil, errors.New("prometheus listen address is empty")
	}
	reg := newRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	// A dedicated ServeMux keeps the default one untouched.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.gatherer = reg
	s.listener = ln
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.New("prom-sink").Errorf("metrics server: %v", err)
		}
	}()
	return s, nil
}

// Addr returns the address the metrics server listens on, or "" when the
// sink does not serve.
func (s *PromSink) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops the metrics server, if any.
func (s *PromSink) Close() {
	if s.server == nil {
		return
	}
	srv := s.server
	s.server = nil
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.New("prom-sink").Errorf("metrics server shutdown: %v", err)
	}
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// Collectors already registered by an earlier sink are reused. A nil
// registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftmatch_runs_total",
		Help: "Planning runs by strategy and cache outcome",
	}, []string{"strategy", "cache"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shiftmatch_run_duration_seconds",
		Help:    "Wall time of a planning run",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.assigned, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shiftmatch_last_run_assignments",
		Help: "Assignments produced by the last run",
	})); err != nil {
		return nil, err
	}
	if s.missing, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shiftmatch_last_run_missing_seats",
		Help: "Headcount missing across all desks in the last run",
	})); err != nil {
		return nil, err
	}
	if s.overrides, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shiftmatch_break_overrides_total",
		Help: "Assignments overwritten by a mandatory break",
	})); err != nil {
		return nil, err
	}
	if s.shortages, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftmatch_shortage_seats_total",
		Help: "Missing headcount per desk",
	}, []string{"desk"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run collectors.
func (s *PromSink) RecordRun(r coremetrics.RunSummary) error {
	cache := "miss"
	if r.CacheHit {
		cache = "hit"
	}
	s.runs.WithLabelValues(r.Strategy, cache).Inc()
	s.duration.Observe(r.Duration.Seconds())
	s.assigned.Set(float64(r.Assignments))
	s.missing.Set(float64(r.ShortSeats))
	s.overrides.Add(float64(r.BreakOverrides))
	if s.textfile != "" {
		return prometheus.WriteToTextfile(s.textfile, s.gatherer)
	}
	return nil
}

// RecordShortages adds the missing headcount of every shortage.
func (s *PromSink) RecordShortages(evs []coremetrics.ShortageEvent) error {
	for _, ev := range evs {
		s.shortages.WithLabelValues(ev.Desk).Add(float64(ev.Missing))
	}
	return nil
}
