package constraint

import (
	"errors"
	"sort"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/factory"
	"github.com/kilianp07/shiftmatch/core/model"
)

// ErrUnknownKind is wrapped by configuration errors naming an unsupported kind.
var ErrUnknownKind = errors.New("unknown constraint kind")

// Spec enables a kind and carries its parameters.
type Spec struct {
	Enabled bool           `json:"enabled"`
	Params  map[string]any `json:"params"`
}

// Config maps kind names to their settings. Absent kinds are inactive.
type Config map[string]Spec

// DefaultConfig returns every kind enabled with the stock labour limits.
func DefaultConfig() Config {
	return Config{
		string(KindMinRestHours):          {Enabled: true, Params: map[string]any{"hours": 11.0}},
		string(KindMaxConsecutiveDays):    {Enabled: true, Params: map[string]any{"days": 6}},
		string(KindMaxWeeklyHours):        {Enabled: true, Params: map[string]any{"hours": 40.0}},
		string(KindMaxNightShiftsPerWeek): {Enabled: true, Params: map[string]any{"count": 2}},
		string(KindDayOffAfterNight):      {Enabled: true},
		string(KindMandatoryBreak):        {Enabled: true, Params: map[string]any{"slots": 5}},
	}
}

var registry = factory.NewRegistry[Constraint]()

func init() {
	registry.MustRegister(string(KindMinRestHours), func(p map[string]any) (Constraint, error) {
		var c MinRestHours
		if err := factory.Decode(p, &c); err != nil {
			return nil, err
		}
		if c.Hours <= 0 {
			return nil, errors.New("hours must be positive")
		}
		return c, nil
	})
	registry.MustRegister(string(KindMaxConsecutiveDays), func(p map[string]any) (Constraint, error) {
		var c MaxConsecutiveDays
		if err := factory.Decode(p, &c); err != nil {
			return nil, err
		}
		if c.Days <= 0 {
			return nil, errors.New("days must be positive")
		}
		return c, nil
	})
	registry.MustRegister(string(KindMaxWeeklyHours), func(p map[string]any) (Constraint, error) {
		var c MaxWeeklyHours
		if err := factory.Decode(p, &c); err != nil {
			return nil, err
		}
		if c.Hours <= 0 {
			return nil, errors.New("hours must be positive")
		}
		return c, nil
	})
	registry.MustRegister(string(KindMaxNightShiftsPerWeek), func(p map[string]any) (Constraint, error) {
		var c MaxNightShiftsPerWeek
		if err := factory.Decode(p, &c); err != nil {
			return nil, err
		}
		if c.Count <= 0 {
			return nil, errors.New("count must be positive")
		}
		return c, nil
	})
	registry.MustRegister(string(KindDayOffAfterNight), func(p map[string]any) (Constraint, error) {
		if len(p) > 0 {
			return nil, errors.New("takes no parameters")
		}
		return RequiredDayOffAfterNight{}, nil
	})
	registry.MustRegister(string(KindMandatoryBreak), func(p map[string]any) (Constraint, error) {
		var c MandatoryBreak
		if err := factory.Decode(p, &c); err != nil {
			return nil, err
		}
		if c.Slots <= 0 {
			return nil, errors.New("slots must be positive")
		}
		return c, nil
	})
}

// Set is the conjunction of the active constraints.
type Set struct {
	items []Constraint
}

// NewSet orders cs by kind. Passing no constraint yields an empty set that
// admits every candidate.
func NewSet(cs ...Constraint) *Set {
	rank := make(map[Kind]int, len(Kinds))
	for i, k := range Kinds {
		rank[k] = i
	}
	items := append([]Constraint(nil), cs...)
	sort.SliceStable(items, func(i, j int) bool { return rank[items[i].Kind()] < rank[items[j].Kind()] })
	return &Set{items: items}
}

// Build turns configuration into a Set. Unknown kinds and bad parameters are
// reported as *model.ConfigError.
func Build(cfg Config) (*Set, error) {
	names := make([]string, 0, len(cfg))
	for n := range cfg {
		names = append(names, n)
	}
	sort.Strings(names)
	var cs []Constraint
	for _, n := range names {
		spec := cfg[n]
		if !registry.Has(n) {
			return nil, &model.ConfigError{Record: "constraint " + n, Reason: "not supported", Err: ErrUnknownKind}
		}
		if !spec.Enabled {
			continue
		}
		c, err := registry.Create(factory.ModuleConfig{Type: n, Conf: spec.Params})
		if err != nil {
			return nil, &model.ConfigError{Record: "constraint " + n, Reason: "invalid parameters", Err: err}
		}
		cs = append(cs, c)
	}
	return NewSet(cs...), nil
}

// Validate returns the first violation in kind order, or nil.
func (s *Set) Validate(op model.Operator, c Candidate, h History) *model.ConstraintViolation {
	if s == nil {
		return nil
	}
	for _, item := range s.items {
		if v := item.Validate(op, c, h); v != nil {
			return v
		}
	}
	return nil
}

// Kinds returns the active kinds in evaluation order.
func (s *Set) Kinds() []Kind {
	if s == nil {
		return nil
	}
	out := make([]Kind, len(s.items))
	for i, c := range s.items {
		out[i] = c.Kind()
	}
	return out
}

// Len returns the number of active constraints.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// BreakThreshold returns the mandatory break threshold, or 0 when inactive.
func (s *Set) BreakThreshold() int {
	if s == nil {
		return 0
	}
	for _, c := range s.items {
		if b, ok := c.(MandatoryBreak); ok {
			return b.Threshold()
		}
	}
	return 0
}

// Audit replays a finished schedule and returns every violation of a regular
// assignment. Break assignments are exempt.
func Audit(s *model.Schedule, set *Set, cal *calendar.Template, ops []model.Operator) []model.ConstraintViolation {
	var out []model.ConstraintViolation
	byOp := s.ByOperator()
	for _, op := range ops {
		h := NewHistory(cal, nil)
		for _, a := range byOp[op.Name] {
			if a.Kind == model.KindRegular {
				if v := set.Validate(op, Candidate{Ref: a.Ref(), Desk: a.Desk}, h); v != nil {
					out = append(out, *v)
				}
			}
			h.Add(a)
		}
	}
	return out
}

// Description documents one kind for catalogue listings.
type Description struct {
	Kind     Kind
	Summary  string
	Defaults map[string]any
}

// Catalogue describes every supported kind with its default parameters.
func Catalogue() []Description {
	defaults := DefaultConfig()
	summaries := map[Kind]string{
		KindMinRestHours:          "minimum hours between the end of one shift and the start of the next",
		KindMaxConsecutiveDays:    "maximum consecutive days with at least one assignment",
		KindMaxWeeklyHours:        "rolling 7-day ceiling on assigned hours",
		KindMaxNightShiftsPerWeek: "rolling 7-day ceiling on night-slot assignments",
		KindDayOffAfterNight:      "no assignment on the day after a night shift",
		KindMandatoryBreak:        "break slot forced after N contiguous worked slots",
	}
	out := make([]Description, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, Description{Kind: k, Summary: summaries[k], Defaults: defaults[string(k)].Params})
	}
	return out
}
