// Package points derives the cross-desk compensation ledger from a final
// schedule. Work on a desk other than the operator's home desk earns points;
// home-desk work and breaks earn nothing.
package points

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/model"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Config controls how many points a slot away from home is worth.
type Config struct {
	// Unit is credited per foreign slot, or per hour with ScaleByDuration.
	Unit            float64            `json:"unit"`
	ScaleByDuration bool               `json:"scale_by_duration"`
	Multipliers     map[string]float64 `json:"multipliers"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Unit == 0 {
		c.Unit = 1
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Unit < 0 {
		return errors.New("points: unit must not be negative")
	}
	for d, m := range c.Multipliers {
		if m < 0 {
			return fmt.Errorf("points: multiplier for %s must not be negative", d)
		}
	}
	return nil
}

// Entry is the points earned by one assignment.
type Entry struct {
	Operator string          `json:"operator"`
	Day      int             `json:"day"`
	Slot     int             `json:"slot"`
	Desk     string          `json:"desk"`
	Points   decimal.Decimal `json:"points"`
}

// Total is the sum credited to an operator.
type Total struct {
	Operator string          `json:"operator"`
	Home     string          `json:"home"`
	Points   decimal.Decimal `json:"points"`
}

// DeskTotal is the sum credited to operators of a home desk.
type DeskTotal struct {
	Desk   string          `json:"desk"`
	Points decimal.Decimal `json:"points"`
}

// Ledger lists every earning assignment and the resulting totals. Totals
// follow operator input order and include operators with zero points.
type Ledger struct {
	Entries    []Entry     `json:"entries"`
	Totals     []Total     `json:"totals"`
	ByHomeDesk []DeskTotal `json:"by_home_desk"`
}

// Summary describes how evenly points are spread across operators.
type Summary struct {
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
}

// Calculator computes ledgers. It keeps no state between calls.
type Calculator struct {
	cal  *calendar.Template
	unit decimal.Decimal
	cfg  Config
	mult map[string]decimal.Decimal
}

// NewCalculator validates cfg and returns a Calculator.
func NewCalculator(cal *calendar.Template, cfg Config) (*Calculator, error) {
	if cal == nil {
		return nil, errors.New("points: nil calendar provided to NewCalculator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mult := make(map[string]decimal.Decimal, len(cfg.Multipliers))
	for d, m := range cfg.Multipliers {
		mult[d] = decimal.NewFromFloat(m)
	}
	return &Calculator{cal: cal, unit: decimal.NewFromFloat(cfg.Unit), cfg: cfg, mult: mult}, nil
}

// Value returns the points one assignment earns for op.
func (c *Calculator) Value(op model.Operator, a model.Assignment) decimal.Decimal {
	if a.IsBreak() || a.Desk == op.Home {
		return decimal.Zero
	}
	v := c.unit
	if c.cfg.ScaleByDuration {
		v = v.Mul(decimal.NewFromFloat(c.cal.Slot(a.Slot).Hours()))
	}
	if m, ok := c.mult[a.Desk]; ok {
		v = v.Mul(m)
	}
	return v
}

// Compute builds the ledger of s from scratch.
func (c *Calculator) Compute(s *model.Schedule, ops []model.Operator) (*Ledger, error) {
	byName := make(map[string]int, len(ops))
	for i, op := range ops {
		byName[op.Name] = i
	}
	sums := make([]decimal.Decimal, len(ops))
	l := &Ledger{}
	for _, a := range s.Assignments {
		i, ok := byName[a.Operator]
		if !ok {
			return nil, fmt.Errorf("points: assignment for unknown operator %s", a.Operator)
		}
		v := c.Value(ops[i], a)
		if v.IsZero() {
			continue
		}
		l.Entries = append(l.Entries, Entry{Operator: a.Operator, Day: a.Day, Slot: a.Slot, Desk: a.Desk, Points: v})
		sums[i] = sums[i].Add(v)
	}
	desk := make(map[string]decimal.Decimal)
	var homes []string
	for i, op := range ops {
		l.Totals = append(l.Totals, Total{Operator: op.Name, Home: op.Home, Points: sums[i]})
		if _, seen := desk[op.Home]; !seen {
			homes = append(homes, op.Home)
		}
		desk[op.Home] = desk[op.Home].Add(sums[i])
	}
	sort.Strings(homes)
	for _, h := range homes {
		l.ByHomeDesk = append(l.ByHomeDesk, DeskTotal{Desk: h, Points: desk[h]})
	}
	return l, nil
}

// Of returns the total of operator name, or zero.
func (l *Ledger) Of(name string) decimal.Decimal {
	for _, t := range l.Totals {
		if t.Operator == name {
			return t.Points
		}
	}
	return decimal.Zero
}

// Summary computes spread statistics over operator totals.
func (l *Ledger) Summary() Summary {
	if len(l.Totals) == 0 {
		return Summary{}
	}
	xs := make([]float64, len(l.Totals))
	for i, t := range l.Totals {
		xs[i] = t.Points.InexactFloat64()
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	s := Summary{Mean: mean, StdDev: std, Max: xs[0], Min: xs[0]}
	for _, x := range xs {
		s.Total += x
		if x > s.Max {
			s.Max = x
		}
		if x < s.Min {
			s.Min = x
		}
	}
	return s
}
