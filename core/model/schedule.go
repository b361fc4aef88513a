package model

import (
	"fmt"
	"sort"

	"github.com/kilianp07/shiftmatch/core/calendar"
)

// AssignmentKind distinguishes desk work from injected breaks.
type AssignmentKind int

const (
	KindRegular AssignmentKind = iota
	KindBreak
)

func (k AssignmentKind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindBreak:
		return "break"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k AssignmentKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Assignment places an operator on a desk for one slot. Break assignments have
// no desk; Displaced keeps the desk chosen by the matcher before the override.
type Assignment struct {
	Operator  string         `json:"operator"`
	Day       int            `json:"day"`
	Slot      int            `json:"slot"`
	Desk      string         `json:"desk,omitempty"`
	Kind      AssignmentKind `json:"kind"`
	Displaced string         `json:"displaced,omitempty"`
}

// Ref returns the calendar position of the assignment.
func (a Assignment) Ref() calendar.Ref { return calendar.Ref{Day: a.Day, Slot: a.Slot} }

// IsBreak reports whether the assignment is the break sentinel.
func (a Assignment) IsBreak() bool { return a.Kind == KindBreak }

// ReasonCode explains why an operator holds no assignment in a slot.
type ReasonCode string

const (
	ReasonNoEligibleDesk      ReasonCode = "no_eligible_desk"
	ReasonConstraintExhausted ReasonCode = "constraint_exhausted"
	ReasonUnavailable         ReasonCode = "unavailable"
)

// Unassigned records an operator left without a desk in a slot.
type Unassigned struct {
	Operator string     `json:"operator"`
	Day      int        `json:"day"`
	Slot     int        `json:"slot"`
	Reason   ReasonCode `json:"reason"`
}

// ConstraintViolation is produced by constraint validation. Overridden marks
// break-forced overrides.
type ConstraintViolation struct {
	Kind        string `json:"kind"`
	Operator    string `json:"operator"`
	Day         int    `json:"day"`
	Slot        int    `json:"slot"`
	Desk        string `json:"desk,omitempty"`
	Explanation string `json:"explanation"`
	Overridden  bool   `json:"overridden,omitempty"`
}

func (v ConstraintViolation) Error() string {
	return fmt.Sprintf("%s: operator %s day %d slot %d: %s", v.Kind, v.Operator, v.Day, v.Slot, v.Explanation)
}

// Shortage is a desk slot staffed below its requirement. Forfeited counts the
// seats vacated by break overrides.
type Shortage struct {
	Desk      string `json:"desk"`
	Day       int    `json:"day"`
	Slot      int    `json:"slot"`
	Required  int    `json:"required"`
	Assigned  int    `json:"assigned"`
	Forfeited int    `json:"forfeited,omitempty"`
}

// Schedule is the outcome of a run. It must not be modified once returned.
type Schedule struct {
	Horizon     int          `json:"horizon"`
	Assignments []Assignment `json:"assignments"`
	Unassigned  []Unassigned `json:"unassigned"`
}

// SortAssignments orders assignments by day, slot then operator rank.
func SortAssignments(as []Assignment, rank map[string]int) {
	sort.SliceStable(as, func(i, j int) bool {
		a, b := as[i], as[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return rank[a.Operator] < rank[b.Operator]
	})
}

// ByOperator groups assignments per operator, keeping calendar order.
func (s *Schedule) ByOperator() map[string][]Assignment {
	out := make(map[string][]Assignment)
	for _, a := range s.Assignments {
		out[a.Operator] = append(out[a.Operator], a)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Ref().Before(list[j].Ref()) })
	}
	return out
}

// Lookup returns the assignment of op at ref, if any.
func (s *Schedule) Lookup(op string, ref calendar.Ref) (Assignment, bool) {
	for _, a := range s.Assignments {
		if a.Operator == op && a.Day == ref.Day && a.Slot == ref.Slot {
			return a, true
		}
	}
	return Assignment{}, false
}

// Staffed counts regular assignments per desk at ref.
func (s *Schedule) Staffed(ref calendar.Ref) map[string]int {
	out := make(map[string]int)
	for _, a := range s.Assignments {
		if a.Kind == KindRegular && a.Day == ref.Day && a.Slot == ref.Slot {
			out[a.Desk]++
		}
	}
	return out
}
