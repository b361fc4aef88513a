package matching

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/logger"
	"github.com/kilianp07/shiftmatch/core/model"
)

// ErrInvariant signals an engine defect. A run that returns it produced no
// usable schedule.
var ErrInvariant = errors.New("matching: internal invariant violated")

// Strategy selects how a single slot market is cleared.
type Strategy string

const (
	// StrategyDA runs deferred acceptance rounds.
	StrategyDA Strategy = "da"
	// StrategyGreedy lets operators pick their first feasible desk in input order.
	StrategyGreedy Strategy = "greedy"
)

// ParseStrategy accepts "da", "greedy" or the empty string (da).
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyDA:
		return StrategyDA, nil
	case StrategyGreedy:
		return StrategyGreedy, nil
	}
	return "", fmt.Errorf("matching: unknown strategy %q", s)
}

// Input is everything a matching run consumes. Operator order breaks ties.
type Input struct {
	Operators    []model.Operator
	Requirements *model.Requirements
	Horizon      int
}

// OperatorState holds the rolling counters of one operator after a run.
type OperatorState struct {
	Operator   string        `json:"operator"`
	Hours      float64       `json:"hours"`
	Streak     int           `json:"streak"`
	Nights     int           `json:"nights"`
	Slots      int           `json:"slots"`
	LastWorked *calendar.Ref `json:"last_worked,omitempty"`
}

func (s *OperatorState) record(ref calendar.Ref, slot calendar.TimeSlot) {
	switch {
	case s.LastWorked == nil || s.LastWorked.Day < ref.Day-1:
		s.Streak = 1
	case s.LastWorked.Day == ref.Day-1:
		s.Streak++
	}
	s.Hours += slot.Hours()
	s.Slots++
	if slot.Night() {
		s.Nights++
	}
	r := ref
	s.LastWorked = &r
}

// Result is the draft schedule produced by the engine.
type Result struct {
	Schedule *model.Schedule
	// Rejections lists the constraint violations of operators that ended a
	// slot unassigned because of them.
	Rejections []model.ConstraintViolation
	States     []OperatorState
	Rounds     int
	Proposals  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.logger = logger.OrNop(l) } }

// WithStrategy selects the slot clearing strategy.
func WithStrategy(s Strategy) Option { return func(e *Engine) { e.strategy = s } }

// WithConcurrency toggles concurrent evaluation of the proposals of a round.
func WithConcurrency(on bool) Option { return func(e *Engine) { e.concurrent = on } }

// Engine matches operators to desks slot by slot in calendar order.
type Engine struct {
	cal         *calendar.Template
	constraints *constraint.Set
	strategy    Strategy
	concurrent  bool
	logger      logger.Logger
}

// NewEngine returns an engine over the given template and constraint set. A
// nil set means no constraint is active.
func NewEngine(cal *calendar.Template, set *constraint.Set, opts ...Option) (*Engine, error) {
	if cal == nil {
		return nil, fmt.Errorf("matching: nil calendar provided to NewEngine")
	}
	if set == nil {
		set = constraint.NewSet()
	}
	e := &Engine{
		cal:         cal,
		constraints: set,
		strategy:    StrategyDA,
		concurrent:  true,
		logger:      logger.Nop{},
	}
	for _, o := range opts {
		o(e)
	}
	if _, err := ParseStrategy(string(e.strategy)); err != nil {
		return nil, err
	}
	return e, nil
}

// run state shared by all slots of one invocation.
type runState struct {
	ops     []model.Operator
	hist    []constraint.History
	states  []OperatorState
	sched   *model.Schedule
	rejects []model.ConstraintViolation
	rounds  int
	props   int
}

// Run matches every (day, slot) of the horizon. Shortfalls are recorded in the
// result; only invariant violations and bad input return an error.
func (e *Engine) Run(in Input) (*Result, error) {
	if in.Requirements == nil {
		return nil, fmt.Errorf("matching: nil requirements")
	}
	refs, err := e.cal.SlotsFor(in.Horizon)
	if err != nil {
		return nil, err
	}
	rs := &runState{
		ops:    in.Operators,
		hist:   make([]constraint.History, len(in.Operators)),
		states: make([]OperatorState, len(in.Operators)),
		sched:  &model.Schedule{Horizon: in.Horizon},
	}
	for i, op := range in.Operators {
		rs.hist[i] = constraint.NewHistory(e.cal, nil)
		rs.states[i].Operator = op.Name
	}
	for _, ref := range refs {
		if err := e.matchSlot(rs, in.Requirements, ref); err != nil {
			return nil, err
		}
	}
	roundsPerRun.Observe(float64(rs.rounds))
	return &Result{
		Schedule:   rs.sched,
		Rejections: rs.rejects,
		States:     rs.states,
		Rounds:     rs.rounds,
		Proposals:  rs.props,
	}, nil
}

// suitor is an eligible operator in one slot market.
type suitor struct {
	op         int
	prefs      []string
	next       int
	violations []model.ConstraintViolation
}

type proposal struct {
	suitor int
	desk   string
}

func (e *Engine) matchSlot(rs *runState, req *model.Requirements, ref calendar.Ref) error {
	desks := req.Desks()
	capacity := make(map[string]int, len(desks))
	for _, d := range desks {
		capacity[d] = req.Required(d, ref.Day, ref.Slot)
	}

	var pool []*suitor
	reason := make(map[int]model.ReasonCode)
	for i, op := range rs.ops {
		if !op.Available(ref.Day, ref.Slot) {
			reason[i] = model.ReasonUnavailable
			continue
		}
		var prefs []string
		for _, d := range op.Preferences() {
			if capacity[d] > 0 {
				prefs = append(prefs, d)
			}
		}
		if len(prefs) == 0 {
			reason[i] = model.ReasonNoEligibleDesk
			continue
		}
		pool = append(pool, &suitor{op: i, prefs: prefs})
	}

	var held map[string][]int
	switch e.strategy {
	case StrategyGreedy:
		held = e.greedy(rs, ref, pool, capacity)
	default:
		held = e.deferredAcceptance(rs, ref, pool, capacity, desks)
	}

	matched := make(map[int]string)
	for _, d := range desks {
		for _, s := range held[d] {
			matched[pool[s].op] = d
		}
	}
	if err := e.checkSlot(rs, ref, held, pool, capacity); err != nil {
		return err
	}

	for _, s := range pool {
		if _, ok := matched[s.op]; ok {
			continue
		}
		if len(s.violations) > 0 {
			reason[s.op] = model.ReasonConstraintExhausted
			rs.rejects = append(rs.rejects, s.violations...)
		} else {
			reason[s.op] = model.ReasonNoEligibleDesk
		}
	}

	slot := e.cal.Slot(ref.Slot)
	for i, op := range rs.ops {
		if d, ok := matched[i]; ok {
			a := model.Assignment{Operator: op.Name, Day: ref.Day, Slot: ref.Slot, Desk: d}
			rs.sched.Assignments = append(rs.sched.Assignments, a)
			rs.hist[i].Add(a)
			rs.states[i].record(ref, slot)
			continue
		}
		rs.sched.Unassigned = append(rs.sched.Unassigned, model.Unassigned{
			Operator: op.Name, Day: ref.Day, Slot: ref.Slot, Reason: reason[i],
		})
	}
	e.logger.Debugw("slot matched", map[string]any{
		"day":         ref.Day,
		"slot":        slot.ID,
		"eligible":    len(pool),
		"matched":     len(matched),
		"operators":   len(rs.ops),
		"strategy":    string(e.strategy),
		"constraints": e.constraints.Len(),
	})
	return nil
}

// deferredAcceptance clears one slot market. It returns, per desk, the pool
// indices of the operators holding a seat.
func (e *Engine) deferredAcceptance(rs *runState, ref calendar.Ref, pool []*suitor, capacity map[string]int, desks []string) map[string][]int {
	held := make(map[string][]int, len(desks))
	pending := make([]int, len(pool))
	for i := range pool {
		pending[i] = i
	}
	for len(pending) > 0 {
		var props []proposal
		for _, s := range pending {
			if pool[s].next < len(pool[s].prefs) {
				props = append(props, proposal{suitor: s, desk: pool[s].prefs[pool[s].next]})
			}
		}
		if len(props) == 0 {
			break
		}
		rs.rounds++
		rs.props += len(props)

		verdicts := e.evaluate(rs, ref, pool, props)
		var rejected []int
		incoming := make(map[string][]int)
		for i, p := range props {
			if v := verdicts[i]; v != nil {
				pool[p.suitor].violations = append(pool[p.suitor].violations, *v)
				pool[p.suitor].next++
				rejected = append(rejected, p.suitor)
				proposalsTotal.WithLabelValues(outcomeConstraint).Inc()
				constraintRejections.WithLabelValues(v.Kind).Inc()
				continue
			}
			incoming[p.desk] = append(incoming[p.desk], p.suitor)
		}
		for _, d := range desks {
			if len(incoming[d]) == 0 {
				continue
			}
			cands := append(append([]int(nil), held[d]...), incoming[d]...)
			e.rank(rs, pool, d, cands)
			keep := capacity[d]
			if keep > len(cands) {
				keep = len(cands)
			}
			held[d] = cands[:keep]
			for _, s := range cands[keep:] {
				pool[s].next++
				rejected = append(rejected, s)
				proposalsTotal.WithLabelValues(outcomeCapacity).Inc()
			}
		}
		sort.Ints(rejected)
		pending = rejected
	}
	for _, d := range desks {
		proposalsTotal.WithLabelValues(outcomeAccepted).Add(float64(len(held[d])))
	}
	return held
}

// greedy assigns operators in input order to their first feasible desk.
func (e *Engine) greedy(rs *runState, ref calendar.Ref, pool []*suitor, capacity map[string]int) map[string][]int {
	held := make(map[string][]int)
	left := make(map[string]int, len(capacity))
	for d, c := range capacity {
		left[d] = c
	}
	rs.rounds++
	for i, s := range pool {
		op := rs.ops[s.op]
		for ; s.next < len(s.prefs); s.next++ {
			d := s.prefs[s.next]
			if left[d] == 0 {
				proposalsTotal.WithLabelValues(outcomeCapacity).Inc()
				continue
			}
			rs.props++
			c := constraint.Candidate{Ref: ref, Desk: d}
			if v := e.constraints.Validate(op, c, rs.hist[s.op]); v != nil {
				s.violations = append(s.violations, *v)
				proposalsTotal.WithLabelValues(outcomeConstraint).Inc()
				constraintRejections.WithLabelValues(v.Kind).Inc()
				continue
			}
			held[d] = append(held[d], i)
			left[d]--
			proposalsTotal.WithLabelValues(outcomeAccepted).Inc()
			break
		}
	}
	return held
}

// evaluate validates the proposals of one round. Histories are not written
// during a round, so proposals are checked concurrently and results stored
// by index.
func (e *Engine) evaluate(rs *runState, ref calendar.Ref, pool []*suitor, props []proposal) []*model.ConstraintViolation {
	out := make([]*model.ConstraintViolation, len(props))
	check := func(i int) {
		s := pool[props[i].suitor]
		c := constraint.Candidate{Ref: ref, Desk: props[i].desk}
		out[i] = e.constraints.Validate(rs.ops[s.op], c, rs.hist[s.op])
	}
	if !e.concurrent || len(props) < 2 || e.constraints.Len() == 0 {
		for i := range props {
			check(i)
		}
		return out
	}
	var wg sync.WaitGroup
	for i := range props {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			check(i)
		}(i)
	}
	wg.Wait()
	return out
}

// rank orders suitors by desk priority: home-desk operators first, then input
// order.
func (e *Engine) rank(rs *runState, pool []*suitor, desk string, cands []int) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := pool[cands[i]].op, pool[cands[j]].op
		ha, hb := rs.ops[a].Home == desk, rs.ops[b].Home == desk
		if ha != hb {
			return ha
		}
		return a < b
	})
}

// checkSlot verifies capacity, uniqueness, qualification and constraint
// satisfaction of the slot outcome before it is committed.
func (e *Engine) checkSlot(rs *runState, ref calendar.Ref, held map[string][]int, pool []*suitor, capacity map[string]int) error {
	seen := make(map[int]string)
	for d, list := range held {
		if len(list) > capacity[d] {
			return fmt.Errorf("%w: desk %s holds %d > %d at %s", ErrInvariant, d, len(list), capacity[d], ref)
		}
		for _, s := range list {
			op := rs.ops[pool[s].op]
			if prev, dup := seen[pool[s].op]; dup {
				return fmt.Errorf("%w: operator %s holds %s and %s at %s", ErrInvariant, op.Name, prev, d, ref)
			}
			seen[pool[s].op] = d
			if !op.Qualifies(d) {
				return fmt.Errorf("%w: operator %s not qualified for %s", ErrInvariant, op.Name, d)
			}
			if v := e.constraints.Validate(op, constraint.Candidate{Ref: ref, Desk: d}, rs.hist[pool[s].op]); v != nil {
				return fmt.Errorf("%w: accepted assignment breaks %s", ErrInvariant, v.Error())
			}
		}
	}
	return nil
}
