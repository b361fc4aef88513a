package planner

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/fingerprint"
	"github.com/kilianp07/shiftmatch/core/model"
	"github.com/kilianp07/shiftmatch/core/points"
)

// Validate checks in against the planner calendar and returns the indexed
// operators and the requirement set. Every failure is a *model.ConfigError
// naming the offending record.
func (p *Planner) Validate(in Input) ([]model.Operator, *model.Requirements, error) {
	if in.Horizon <= 0 {
		return nil, nil, &model.ConfigError{
			Record: "horizon",
			Reason: fmt.Sprintf("got %d days", in.Horizon),
			Err:    calendar.ErrInvalidHorizon,
		}
	}
	req, err := model.NewRequirements(in.Desks, in.Requirements)
	if err != nil {
		return nil, nil, err
	}
	for _, row := range in.Requirements {
		if row.Slot >= p.cal.Len() {
			return nil, nil, &model.ConfigError{
				Record: fmt.Sprintf("requirement %s day %d slot %d", row.Desk, row.Day, row.Slot),
				Reason: fmt.Sprintf("slot outside the %d-slot day", p.cal.Len()),
			}
		}
		if row.Day >= in.Horizon {
			return nil, nil, &model.ConfigError{
				Record: fmt.Sprintf("requirement %s day %d slot %d", row.Desk, row.Day, row.Slot),
				Reason: fmt.Sprintf("day beyond the %d-day horizon", in.Horizon),
			}
		}
	}
	known := req.Known()
	seen := make(map[string]bool, len(in.Operators))
	ops := make([]model.Operator, len(in.Operators))
	for i, op := range in.Operators {
		op.Index = i
		if err := op.Validate(known); err != nil {
			return nil, nil, err
		}
		if seen[op.Name] {
			return nil, nil, &model.ConfigError{Record: "operator " + op.Name, Reason: "duplicate operator name"}
		}
		seen[op.Name] = true
		ops[i] = op
	}
	return ops, req, nil
}

// Fingerprint hashes everything that determines the report of in: the input
// in order, the horizon, the slot template, the constraint and points
// configuration and the strategy.
func (p *Planner) Fingerprint(in Input) fingerprint.Fingerprint {
	b := fingerprint.NewBuilder()
	b.Strings(in.Desks)
	b.Int(len(in.Requirements))
	for _, r := range in.Requirements {
		b.String(r.Desk).Int(r.Day).Int(r.Slot).Int(r.Required)
	}
	b.Int(len(in.Operators))
	for _, op := range in.Operators {
		b.String(op.Name).String(op.Home).Strings(op.Qualified)
		b.Int(op.Availability.Earliest).Int(op.Availability.Latest)
		days := make([]int, 0, len(op.DayAvailability))
		for d := range op.DayAvailability {
			days = append(days, d)
		}
		sort.Ints(days)
		b.Int(len(days))
		for _, d := range days {
			w := op.DayAvailability[d]
			b.Int(d).Int(w.Earliest).Int(w.Latest)
		}
	}
	b.Int(in.Horizon)

	b.Int(p.cal.Len())
	for _, s := range p.cal.Slots() {
		b.String(s.ID).Int(int(s.Start)).Int(int(s.Duration)).String(string(s.Label))
	}
	for _, kind := range fingerprint.SortedKeys(p.consCfg) {
		spec := p.consCfg[kind]
		b.String(kind).Bool(spec.Enabled)
		for _, k := range fingerprint.SortedKeys(spec.Params) {
			b.String(k).String(fmt.Sprint(spec.Params[k]))
		}
	}
	b.Float(p.ptsCfg.Unit).Bool(p.ptsCfg.ScaleByDuration)
	for _, d := range fingerprint.SortedKeys(p.ptsCfg.Multipliers) {
		b.String(d).Float(p.ptsCfg.Multipliers[d])
	}
	b.String(string(p.strategy))
	return b.Sum()
}

func totalPoints(l *points.Ledger) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range l.Totals {
		sum = sum.Add(t.Points)
	}
	return sum
}
