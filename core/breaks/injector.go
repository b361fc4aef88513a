// Package breaks enforces mandatory rest after a run of contiguous worked
// slots by overwriting the next assignment with a break.
package breaks

import (
	"fmt"
	"sort"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/model"
)

// Injector rewrites draft schedules.
type Injector struct {
	cal       *calendar.Template
	threshold int
}

// New returns an injector that forces a break after threshold contiguous
// worked slots. A threshold of zero or less disables it.
func New(cal *calendar.Template, threshold int) (*Injector, error) {
	if cal == nil {
		return nil, fmt.Errorf("breaks: nil calendar provided to New")
	}
	return &Injector{cal: cal, threshold: threshold}, nil
}

// Enabled reports whether the injector rewrites anything.
func (in *Injector) Enabled() bool { return in.threshold > 0 }

// Result is the corrected schedule and the overrides applied to it.
type Result struct {
	Schedule  *model.Schedule
	Overrides []model.ConstraintViolation
}

// Apply returns a new schedule in which, for every operator, the assignment
// following threshold contiguous worked slots becomes a break. The input is
// not modified. Operators are visited in the given order.
func (in *Injector) Apply(s *model.Schedule, ops []model.Operator) Result {
	out := &model.Schedule{
		Horizon:     s.Horizon,
		Assignments: make([]model.Assignment, len(s.Assignments)),
		Unassigned:  append([]model.Unassigned(nil), s.Unassigned...),
	}
	copy(out.Assignments, s.Assignments)
	if !in.Enabled() {
		return Result{Schedule: out}
	}

	pos := make(map[string][]int)
	for i, a := range out.Assignments {
		pos[a.Operator] = append(pos[a.Operator], i)
	}
	for _, list := range pos {
		sort.SliceStable(list, func(x, y int) bool {
			return out.Assignments[list[x]].Ref().Before(out.Assignments[list[y]].Ref())
		})
	}
	var overrides []model.ConstraintViolation
	for _, op := range ops {
		run := 0
		var prev *calendar.Ref
		for _, i := range pos[op.Name] {
			a := &out.Assignments[i]
			ref := a.Ref()
			if prev == nil || !in.cal.Contiguous(*prev, ref) {
				run = 0
			}
			prev = &ref
			if a.IsBreak() {
				run = 0
				continue
			}
			if run >= in.threshold {
				overrides = append(overrides, model.ConstraintViolation{
					Kind:        string(constraint.KindMandatoryBreak),
					Operator:    op.Name,
					Day:         a.Day,
					Slot:        a.Slot,
					Desk:        a.Desk,
					Explanation: fmt.Sprintf("break forced after %d contiguous slots", run),
					Overridden:  true,
				})
				a.Displaced = a.Desk
				a.Desk = ""
				a.Kind = model.KindBreak
				run = 0
				continue
			}
			run++
		}
	}
	return Result{Schedule: out, Overrides: overrides}
}
