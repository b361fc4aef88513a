package constraint

import (
	"sort"
	"time"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/model"
)

// History is the confirmed assignment record of one operator, in calendar
// order. Break assignments are kept: they extend a shift for rest purposes and
// mark the day as worked, but carry no hours and no night.
type History struct {
	cal   *calendar.Template
	items []model.Assignment
}

// NewHistory builds a history from assignments of a single operator.
func NewHistory(cal *calendar.Template, as []model.Assignment) History {
	items := make([]model.Assignment, len(as))
	copy(items, as)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Ref().Before(items[j].Ref()) })
	return History{cal: cal, items: items}
}

// Add appends a confirmed assignment. Assignments must arrive in calendar order.
func (h *History) Add(a model.Assignment) { h.items = append(h.items, a) }

// Len returns the number of recorded assignments.
func (h History) Len() int { return len(h.items) }

// Items returns a copy of the recorded assignments.
func (h History) Items() []model.Assignment {
	out := make([]model.Assignment, len(h.items))
	copy(out, h.items)
	return out
}

// Calendar returns the slot template the history refers to.
func (h History) Calendar() *calendar.Template { return h.cal }

// LastBefore returns the latest assignment strictly before ref.
func (h History) LastBefore(ref calendar.Ref) (model.Assignment, bool) {
	for i := len(h.items) - 1; i >= 0; i-- {
		if h.items[i].Ref().Before(ref) {
			return h.items[i], true
		}
	}
	return model.Assignment{}, false
}

// Worked reports whether any assignment falls on day.
func (h History) Worked(day int) bool {
	for _, a := range h.items {
		if a.Day == day {
			return true
		}
	}
	return false
}

// Hours sums regular work in days [from, to].
func (h History) Hours(from, to int) time.Duration {
	var total time.Duration
	for _, a := range h.items {
		if a.Kind == model.KindRegular && a.Day >= from && a.Day <= to {
			total += h.cal.Slot(a.Slot).Duration
		}
	}
	return total
}

// Nights counts regular night-slot work in days [from, to].
func (h History) Nights(from, to int) int {
	n := 0
	for _, a := range h.items {
		if a.Kind == model.KindRegular && a.Day >= from && a.Day <= to && h.cal.Slot(a.Slot).Night() {
			n++
		}
	}
	return n
}

// Streak counts consecutive worked days ending at day, counting day itself
// as worked.
func (h History) Streak(day int) int {
	streak := 1
	for d := day - 1; d >= 0 && h.Worked(d); d-- {
		streak++
	}
	return streak
}
