// Package planner runs one complete planning computation: input validation,
// matching, break injection, shortage accounting and points. Reports are
// cached by input fingerprint and every run is published to the configured
// metrics sinks and run log.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/shiftmatch/core/breaks"
	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/fingerprint"
	"github.com/kilianp07/shiftmatch/core/logger"
	"github.com/kilianp07/shiftmatch/core/matching"
	"github.com/kilianp07/shiftmatch/core/metrics"
	"github.com/kilianp07/shiftmatch/core/model"
	"github.com/kilianp07/shiftmatch/core/monitoring"
	"github.com/kilianp07/shiftmatch/core/points"
	"github.com/kilianp07/shiftmatch/core/runlog"
)

// Input is the raw planning request. Desk and operator order break ties.
type Input struct {
	Desks        []string
	Requirements []model.DeskRequirement
	Operators    []model.Operator
	Horizon      int
}

// Report is everything a run produces.
type Report struct {
	RunID        string                      `json:"run_id"`
	Fingerprint  fingerprint.Fingerprint     `json:"fingerprint"`
	Strategy     matching.Strategy           `json:"strategy"`
	GeneratedAt  time.Time                   `json:"generated_at"`
	Duration     time.Duration               `json:"duration"`
	CacheHit     bool                        `json:"cache_hit"`
	Slots        []calendar.TimeSlot         `json:"slots"`
	Desks        []string                    `json:"desks"`
	Requirements []model.DeskRequirement     `json:"requirements"`
	Operators    []model.Operator            `json:"operators"`
	Schedule     *model.Schedule             `json:"schedule"`
	Shortages    []model.Shortage            `json:"shortages"`
	Violations   []model.ConstraintViolation `json:"violations"`
	Ledger       *points.Ledger              `json:"ledger"`
	Fairness     points.Summary              `json:"fairness"`
	States       []matching.OperatorState    `json:"states"`
	Rounds       int                         `json:"rounds"`
	Proposals    int                         `json:"proposals"`
}

// ShortSeats returns the total headcount missing across all shortages.
func (r *Report) ShortSeats() int {
	n := 0
	for _, s := range r.Shortages {
		n += s.Required - s.Assigned
	}
	return n
}

// Overrides returns the break-forced violations of the report.
func (r *Report) Overrides() []model.ConstraintViolation {
	var out []model.ConstraintViolation
	for _, v := range r.Violations {
		if v.Overridden {
			out = append(out, v)
		}
	}
	return out
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the planner logger. A nil logger discards output.
func WithLogger(l logger.Logger) Option { return func(p *Planner) { p.logger = logger.OrNop(l) } }

// WithStrategy selects the matching strategy.
func WithStrategy(s matching.Strategy) Option { return func(p *Planner) { p.strategy = s } }

// WithCache enables report caching. A nil cache disables it.
func WithCache(c fingerprint.Cache[*Report]) Option { return func(p *Planner) { p.cache = c } }

// WithSink sets the metrics sink. A nil sink keeps the no-op one.
func WithSink(s metrics.MetricsSink) Option {
	return func(p *Planner) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithStore sets the run log. A nil store keeps the no-op one.
func WithStore(s runlog.Store) Option {
	return func(p *Planner) {
		if s != nil {
			p.store = s
		}
	}
}

// WithMonitor sets the error monitor. A nil monitor discards reports.
func WithMonitor(m monitoring.Monitor) Option {
	return func(p *Planner) { p.monitor = monitoring.OrNop(m) }
}

// WithConcurrency toggles concurrent proposal evaluation in the engine.
func WithConcurrency(on bool) Option { return func(p *Planner) { p.concurrent = on } }

// Planner orchestrates runs. It is safe for concurrent use when its cache,
// sink and store are.
type Planner struct {
	cal        *calendar.Template
	consCfg    constraint.Config
	set        *constraint.Set
	ptsCfg     points.Config
	calc       *points.Calculator
	injector   *breaks.Injector
	strategy   matching.Strategy
	concurrent bool
	cache      fingerprint.Cache[*Report]
	sink       metrics.MetricsSink
	store      runlog.Store
	monitor    monitoring.Monitor
	logger     logger.Logger
	now        func() time.Time
}

// New builds a planner over a slot template, a constraint configuration and
// a points configuration. Bad configuration returns a *model.ConfigError.
func New(cal *calendar.Template, cons constraint.Config, pts points.Config, opts ...Option) (*Planner, error) {
	if cal == nil {
		return nil, errors.New("planner: nil calendar provided to New")
	}
	set, err := constraint.Build(cons)
	if err != nil {
		return nil, err
	}
	pts.SetDefaults()
	calc, err := points.NewCalculator(cal, pts)
	if err != nil {
		return nil, &model.ConfigError{Record: "points", Reason: "invalid configuration", Err: err}
	}
	inj, err := breaks.New(cal, set.BreakThreshold())
	if err != nil {
		return nil, err
	}
	p := &Planner{
		cal:        cal,
		consCfg:    cons,
		set:        set,
		ptsCfg:     pts,
		calc:       calc,
		injector:   inj,
		strategy:   matching.StrategyDA,
		concurrent: true,
		sink:       metrics.NopSink{},
		store:      runlog.NopStore{},
		monitor:    monitoring.NopMonitor{},
		logger:     logger.Nop{},
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if _, err := matching.ParseStrategy(string(p.strategy)); err != nil {
		return nil, &model.ConfigError{Record: "planner", Reason: "invalid strategy", Err: err}
	}
	return p, nil
}

// Calendar returns the slot template of the planner.
func (p *Planner) Calendar() *calendar.Template { return p.cal }

// Constraints returns the active constraint set.
func (p *Planner) Constraints() *constraint.Set { return p.set }

// Plan runs the full pipeline for in. Configuration errors are returned as
// *model.ConfigError before any matching happens; engine defects wrap
// matching.ErrInvariant.
func (p *Planner) Plan(ctx context.Context, in Input) (rep *Report, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := p.now()
	runID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			p.monitor.CapturePanic(r)
			panic(r)
		}
	}()

	ops, req, err := p.Validate(in)
	if err != nil {
		return nil, err
	}
	fp := p.Fingerprint(in)
	p.logger.Infof("run %s: planning %d operators over %d desks for %d days (fingerprint %s)",
		runID, len(ops), len(in.Desks), in.Horizon, fp.Short())

	if p.cache != nil {
		if cached, ok := p.cache.Get(fp); ok {
			hit := *cached
			hit.RunID = runID
			hit.CacheHit = true
			hit.GeneratedAt = start
			hit.Duration = p.now().Sub(start)
			p.logger.Infof("run %s: served from cache (original run %s)", runID, cached.RunID)
			p.publish(ctx, &hit, nil)
			return &hit, nil
		}
	}

	rep, err = p.compute(runID, fp, ops, req, in.Horizon)
	if err != nil {
		p.fail(ctx, runID, fp, start, err)
		return nil, err
	}
	rep.GeneratedAt = start
	rep.Duration = p.now().Sub(start)
	if n := len(rep.Shortages); n > 0 {
		p.logger.Warnf("run %s: %d desk slots short by %d seats", runID, n, rep.ShortSeats())
	}
	p.logger.Infof("run %s: %d assignments, %d unassigned, %d overrides in %s",
		runID, len(rep.Schedule.Assignments), len(rep.Schedule.Unassigned), len(rep.Overrides()), rep.Duration)
	if p.cache != nil {
		p.cache.Put(fp, rep)
	}
	p.publish(ctx, rep, nil)
	return rep, nil
}

func (p *Planner) compute(runID string, fp fingerprint.Fingerprint, ops []model.Operator, req *model.Requirements, horizon int) (*Report, error) {
	eng, err := matching.NewEngine(p.cal, p.set,
		matching.WithStrategy(p.strategy),
		matching.WithConcurrency(p.concurrent),
		matching.WithLogger(p.logger),
	)
	if err != nil {
		return nil, err
	}
	res, err := eng.Run(matching.Input{Operators: ops, Requirements: req, Horizon: horizon})
	if err != nil {
		return nil, fmt.Errorf("planner: matching: %w", err)
	}
	br := p.injector.Apply(res.Schedule, ops)
	sched := br.Schedule

	if vs := constraint.Audit(sched, p.set, p.cal, ops); len(vs) > 0 {
		return nil, fmt.Errorf("planner: audit found %d violations, first %v: %w", len(vs), vs[0], matching.ErrInvariant)
	}
	ledger, err := p.calc.Compute(sched, ops)
	if err != nil {
		return nil, fmt.Errorf("planner: points: %w", err)
	}
	shortages, err := Shortages(p.cal, req, sched)
	if err != nil {
		return nil, err
	}
	violations := make([]model.ConstraintViolation, 0, len(res.Rejections)+len(br.Overrides))
	violations = append(violations, res.Rejections...)
	violations = append(violations, br.Overrides...)

	return &Report{
		RunID:        runID,
		Fingerprint:  fp,
		Strategy:     p.strategy,
		Slots:        p.cal.Slots(),
		Desks:        req.Desks(),
		Requirements: req.Rows(),
		Operators:    ops,
		Schedule:     sched,
		Shortages:    shortages,
		Violations:   violations,
		Ledger:       ledger,
		Fairness:     ledger.Summary(),
		States:       res.States,
		Rounds:       res.Rounds,
		Proposals:    res.Proposals,
	}, nil
}

// Shortages lists every desk slot staffed below its requirement, in calendar
// then desk order. Seats vacated by break overrides count as forfeited.
func Shortages(cal *calendar.Template, req *model.Requirements, s *model.Schedule) ([]model.Shortage, error) {
	refs, err := cal.SlotsFor(s.Horizon)
	if err != nil {
		return nil, err
	}
	type key struct {
		ref  calendar.Ref
		desk string
	}
	staffed := make(map[key]int)
	forfeited := make(map[key]int)
	for _, a := range s.Assignments {
		if a.IsBreak() {
			forfeited[key{a.Ref(), a.Displaced}]++
			continue
		}
		staffed[key{a.Ref(), a.Desk}]++
	}
	var out []model.Shortage
	desks := req.Desks()
	for _, ref := range refs {
		for _, d := range desks {
			need := req.Required(d, ref.Day, ref.Slot)
			k := key{ref, d}
			if got := staffed[k]; got < need {
				out = append(out, model.Shortage{
					Desk:      d,
					Day:       ref.Day,
					Slot:      ref.Slot,
					Required:  need,
					Assigned:  got,
					Forfeited: min(forfeited[k], need-got),
				})
			}
		}
	}
	return out, nil
}

// Invalidate drops the cached report of in, if any.
func (p *Planner) Invalidate(in Input) bool {
	if p.cache == nil {
		return false
	}
	return p.cache.Invalidate(p.Fingerprint(in))
}

// Purge drops every cached report.
func (p *Planner) Purge() {
	if p.cache != nil {
		p.cache.Purge()
	}
}

func (p *Planner) fail(ctx context.Context, runID string, fp fingerprint.Fingerprint, start time.Time, err error) {
	p.logger.Errorf("run %s failed: %v", runID, err)
	if errors.Is(err, matching.ErrInvariant) {
		p.monitor.CaptureException(err, map[string]string{"run_id": runID, "fingerprint": string(fp)})
	}
	p.publish(ctx, &Report{RunID: runID, Fingerprint: fp, Strategy: p.strategy, GeneratedAt: start, Duration: p.now().Sub(start)}, err)
}

// publish sends the run to the sinks and the run log. Failures there never
// fail the run.
func (p *Planner) publish(ctx context.Context, rep *Report, runErr error) {
	rec := runlog.Record{
		RunID:       rep.RunID,
		Timestamp:   rep.GeneratedAt,
		Fingerprint: string(rep.Fingerprint),
		Strategy:    string(rep.Strategy),
		Operators:   len(rep.Operators),
		Shortages:   len(rep.Shortages),
		ShortSeats:  rep.ShortSeats(),
		Overrides:   len(rep.Overrides()),
		CacheHit:    rep.CacheHit,
		DurationMS:  rep.Duration.Milliseconds(),
		Points:      "0",
	}
	if rep.Schedule != nil {
		rec.Horizon = rep.Schedule.Horizon
		rec.Assignments = len(rep.Schedule.Assignments)
		rec.Unassigned = len(rep.Schedule.Unassigned)
	}
	if rep.Ledger != nil {
		rec.Points = totalPoints(rep.Ledger).String()
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := p.store.Append(ctx, rec); err != nil {
		p.logger.Warnf("run %s: run log append failed: %v", rep.RunID, err)
	}
	if runErr != nil {
		return
	}

	if sr, ok := p.sink.(metrics.ShortageRecorder); ok && len(rep.Shortages) > 0 {
		evs := make([]metrics.ShortageEvent, len(rep.Shortages))
		for i, s := range rep.Shortages {
			evs[i] = metrics.ShortageEvent{
				RunID:     rep.RunID,
				Desk:      s.Desk,
				Day:       s.Day,
				Slot:      p.cal.Slot(s.Slot).ID,
				Missing:   s.Required - s.Assigned,
				Forfeited: s.Forfeited,
				Time:      rep.GeneratedAt,
			}
		}
		if err := sr.RecordShortages(evs); err != nil {
			p.logger.Warnf("run %s: recording shortages failed: %v", rep.RunID, err)
		}
	}
	sum := metrics.RunSummary{
		RunID:          rep.RunID,
		Fingerprint:    string(rep.Fingerprint),
		Strategy:       string(rep.Strategy),
		Horizon:        rec.Horizon,
		Operators:      len(rep.Operators),
		Desks:          len(rep.Desks),
		Assignments:    rec.Assignments,
		Unassigned:     rec.Unassigned,
		ShortSeats:     rec.ShortSeats,
		Shortages:      rec.Shortages,
		BreakOverrides: rec.Overrides,
		Rejections:     len(rep.Violations) - rec.Overrides,
		Rounds:         rep.Rounds,
		Points:         rep.Fairness.Total,
		CacheHit:       rep.CacheHit,
		Duration:       rep.Duration,
		Time:           rep.GeneratedAt,
	}
	if err := p.sink.RecordRun(sum); err != nil {
		p.logger.Warnf("run %s: recording metrics failed: %v", rep.RunID, err)
	}
}
