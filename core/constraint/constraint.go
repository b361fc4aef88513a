package constraint

import (
	"fmt"
	"time"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/model"
)

// Kind names a constraint variant. The set of kinds is closed.
type Kind string

const (
	KindMinRestHours          Kind = "min_rest_hours"
	KindMaxConsecutiveDays    Kind = "max_consecutive_days"
	KindMaxWeeklyHours        Kind = "max_weekly_hours"
	KindMaxNightShiftsPerWeek Kind = "max_night_shifts_per_week"
	KindDayOffAfterNight      Kind = "required_day_off_after_night"
	KindMandatoryBreak        Kind = "mandatory_break_after_consecutive_slots"
)

// Kinds lists every kind in evaluation order.
var Kinds = []Kind{
	KindMinRestHours,
	KindMaxConsecutiveDays,
	KindMaxWeeklyHours,
	KindMaxNightShiftsPerWeek,
	KindDayOffAfterNight,
	KindMandatoryBreak,
}

// weekDays is the length of the rolling window used by weekly limits.
const weekDays = 7

// Candidate is a proposed assignment.
type Candidate struct {
	Ref  calendar.Ref
	Desk string
}

// Constraint is a hard rule checked against an operator's confirmed history.
// Validate returns nil when the candidate is admissible. Implementations must
// be pure: the result depends only on op, c and h.
type Constraint interface {
	Kind() Kind
	Validate(op model.Operator, c Candidate, h History) *model.ConstraintViolation
}

func violation(k Kind, op model.Operator, c Candidate, format string, args ...any) *model.ConstraintViolation {
	return &model.ConstraintViolation{
		Kind:        string(k),
		Operator:    op.Name,
		Day:         c.Ref.Day,
		Slot:        c.Ref.Slot,
		Desk:        c.Desk,
		Explanation: fmt.Sprintf(format, args...),
	}
}

// MinRestHours requires a rest period between two shifts. A candidate that
// directly continues the previous assignment on the same day belongs to the
// same shift; across a day boundary the gap is always measured.
type MinRestHours struct {
	Hours float64 `json:"hours"`
}

func (MinRestHours) Kind() Kind { return KindMinRestHours }

func (r MinRestHours) Validate(op model.Operator, c Candidate, h History) *model.ConstraintViolation {
	last, ok := h.LastBefore(c.Ref)
	if !ok {
		return nil
	}
	cal := h.Calendar()
	gap := cal.AbsStart(c.Ref) - cal.AbsEnd(last.Ref())
	if gap == 0 && last.Day == c.Ref.Day {
		return nil
	}
	need := time.Duration(r.Hours * float64(time.Hour))
	if gap < need {
		return violation(KindMinRestHours, op, c, "rest of %s since day %d slot %d is below %.1fh",
			gap, last.Day, last.Slot, r.Hours)
	}
	return nil
}

// MaxConsecutiveDays caps the run of consecutive worked days.
type MaxConsecutiveDays struct {
	Days int `json:"days"`
}

func (MaxConsecutiveDays) Kind() Kind { return KindMaxConsecutiveDays }

func (r MaxConsecutiveDays) Validate(op model.Operator, c Candidate, h History) *model.ConstraintViolation {
	if s := h.Streak(c.Ref.Day); s > r.Days {
		return violation(KindMaxConsecutiveDays, op, c, "%d consecutive days exceeds %d", s, r.Days)
	}
	return nil
}

// MaxWeeklyHours caps assigned hours over a rolling seven day window ending on
// the candidate day.
type MaxWeeklyHours struct {
	Hours float64 `json:"hours"`
}

func (MaxWeeklyHours) Kind() Kind { return KindMaxWeeklyHours }

func (r MaxWeeklyHours) Validate(op model.Operator, c Candidate, h History) *model.ConstraintViolation {
	worked := h.Hours(c.Ref.Day-weekDays+1, c.Ref.Day)
	total := worked + h.Calendar().Slot(c.Ref.Slot).Duration
	if total > time.Duration(r.Hours*float64(time.Hour)) {
		return violation(KindMaxWeeklyHours, op, c, "%.1fh in 7 days exceeds %.1fh", total.Hours(), r.Hours)
	}
	return nil
}

// MaxNightShiftsPerWeek caps night-slot assignments over a rolling seven day
// window.
type MaxNightShiftsPerWeek struct {
	Count int `json:"count"`
}

func (MaxNightShiftsPerWeek) Kind() Kind { return KindMaxNightShiftsPerWeek }

func (r MaxNightShiftsPerWeek) Validate(op model.Operator, c Candidate, h History) *model.ConstraintViolation {
	if !h.Calendar().Slot(c.Ref.Slot).Night() {
		return nil
	}
	if n := h.Nights(c.Ref.Day-weekDays+1, c.Ref.Day) + 1; n > r.Count {
		return violation(KindMaxNightShiftsPerWeek, op, c, "%d night shifts in 7 days exceeds %d", n, r.Count)
	}
	return nil
}

// RequiredDayOffAfterNight forbids work on the day after a night shift.
type RequiredDayOffAfterNight struct{}

func (RequiredDayOffAfterNight) Kind() Kind { return KindDayOffAfterNight }

func (RequiredDayOffAfterNight) Validate(op model.Operator, c Candidate, h History) *model.ConstraintViolation {
	if h.Nights(c.Ref.Day-1, c.Ref.Day-1) > 0 {
		return violation(KindDayOffAfterNight, op, c, "day %d follows a night shift", c.Ref.Day)
	}
	return nil
}

// MandatoryBreak never rejects a candidate. Its threshold is enforced by the
// break injector after matching.
type MandatoryBreak struct {
	Slots int `json:"slots"`
}

func (MandatoryBreak) Kind() Kind { return KindMandatoryBreak }

func (MandatoryBreak) Validate(model.Operator, Candidate, History) *model.ConstraintViolation {
	return nil
}

// Threshold returns the number of contiguous slots after which a break is due.
func (b MandatoryBreak) Threshold() int { return b.Slots }
