package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidHorizon is returned when the horizon length is not positive.
var ErrInvalidHorizon = errors.New("calendar: horizon must be positive")

const day = 24 * time.Hour

// SlotLabel classifies a slot within the day.
type SlotLabel string

const (
	LabelMorning   SlotLabel = "morning"
	LabelAfternoon SlotLabel = "afternoon"
	LabelEvening   SlotLabel = "evening"
	LabelNight     SlotLabel = "night"
	LabelHour      SlotLabel = "hour"
)

// TimeSlot is one sub-division of a day.
type TimeSlot struct {
	ID       string        `json:"id"`
	Ordinal  int           `json:"ordinal"`
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
	Label    SlotLabel     `json:"label"`
}

// Night reports whether the slot counts as a night shift.
func (s TimeSlot) Night() bool { return s.Label == LabelNight }

// Hours returns the slot duration in hours.
func (s TimeSlot) Hours() float64 { return s.Duration.Hours() }

// Ref addresses a slot on a given day of the horizon.
type Ref struct {
	Day  int `json:"day"`
	Slot int `json:"slot"`
}

func (r Ref) String() string { return fmt.Sprintf("d%d/s%d", r.Day, r.Slot) }

// Before reports whether r comes strictly before o in calendar order.
func (r Ref) Before(o Ref) bool {
	if r.Day != o.Day {
		return r.Day < o.Day
	}
	return r.Slot < o.Slot
}

// Template is the ordered set of slots making up every day of the horizon.
type Template struct {
	slots []TimeSlot
	index map[string]int
}

// NewTemplate validates the slots and returns a Template. Slots must be listed
// in ordinal order starting at zero.
func NewTemplate(slots []TimeSlot) (*Template, error) {
	if len(slots) == 0 {
		return nil, errors.New("calendar: template has no slots")
	}
	t := &Template{slots: make([]TimeSlot, len(slots)), index: make(map[string]int, len(slots))}
	for i, s := range slots {
		if s.ID == "" {
			return nil, fmt.Errorf("calendar: slot %d has empty id", i)
		}
		if s.Ordinal != i {
			return nil, fmt.Errorf("calendar: slot %s has ordinal %d, want %d", s.ID, s.Ordinal, i)
		}
		if s.Duration <= 0 {
			return nil, fmt.Errorf("calendar: slot %s has non-positive duration", s.ID)
		}
		if s.Start < 0 || s.Start >= day {
			return nil, fmt.Errorf("calendar: slot %s starts outside the day", s.ID)
		}
		if _, dup := t.index[s.ID]; dup {
			return nil, fmt.Errorf("calendar: duplicate slot id %s", s.ID)
		}
		t.index[s.ID] = i
		t.slots[i] = s
	}
	return t, nil
}

// DefaultTemplate returns the four-slot day: morning, afternoon, evening and night.
func DefaultTemplate() *Template {
	t, _ := NewTemplate([]TimeSlot{
		{ID: "morning", Ordinal: 0, Start: 9 * time.Hour, Duration: 3 * time.Hour, Label: LabelMorning},
		{ID: "afternoon", Ordinal: 1, Start: 12 * time.Hour, Duration: 5 * time.Hour, Label: LabelAfternoon},
		{ID: "evening", Ordinal: 2, Start: 17 * time.Hour, Duration: 4 * time.Hour, Label: LabelEvening},
		{ID: "night", Ordinal: 3, Start: 21 * time.Hour, Duration: 12 * time.Hour, Label: LabelNight},
	})
	return t
}

// HourlyTemplate returns one-hour slots named hHH for every hour in [from, to].
func HourlyTemplate(from, to int) (*Template, error) {
	if from < 0 || to > 23 || from > to {
		return nil, fmt.Errorf("calendar: invalid hourly range %d-%d", from, to)
	}
	slots := make([]TimeSlot, 0, to-from+1)
	for h := from; h <= to; h++ {
		label := LabelHour
		if h >= 22 || h < 6 {
			label = LabelNight
		}
		slots = append(slots, TimeSlot{
			ID:       fmt.Sprintf("h%02d", h),
			Ordinal:  h - from,
			Start:    time.Duration(h) * time.Hour,
			Duration: time.Hour,
			Label:    label,
		})
	}
	return NewTemplate(slots)
}

// Len returns the number of slots per day.
func (t *Template) Len() int { return len(t.slots) }

// Slots returns a copy of the day's slots.
func (t *Template) Slots() []TimeSlot {
	out := make([]TimeSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Slot returns the slot at ordinal i.
func (t *Template) Slot(i int) TimeSlot { return t.slots[i] }

// Lookup returns the ordinal of the slot with the given id.
func (t *Template) Lookup(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// SlotsFor enumerates the (day, slot) pairs of the horizon in calendar order.
func (t *Template) SlotsFor(horizon int) ([]Ref, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidHorizon, horizon)
	}
	refs := make([]Ref, 0, horizon*len(t.slots))
	for d := 0; d < horizon; d++ {
		for s := range t.slots {
			refs = append(refs, Ref{Day: d, Slot: s})
		}
	}
	return refs, nil
}

// AbsStart is the elapsed time from midnight of day 0 to the start of ref.
func (t *Template) AbsStart(ref Ref) time.Duration {
	return time.Duration(ref.Day)*day + t.slots[ref.Slot].Start
}

// AbsEnd is the elapsed time from midnight of day 0 to the end of ref.
func (t *Template) AbsEnd(ref Ref) time.Duration {
	return t.AbsStart(ref) + t.slots[ref.Slot].Duration
}

// Next returns the slot following ref in calendar order, crossing into the
// next day after the last slot.
func (t *Template) Next(ref Ref) Ref {
	if ref.Slot+1 < len(t.slots) {
		return Ref{Day: ref.Day, Slot: ref.Slot + 1}
	}
	return Ref{Day: ref.Day + 1, Slot: 0}
}

// Contiguous reports whether b directly follows a with no time gap.
func (t *Template) Contiguous(a, b Ref) bool {
	return t.Next(a) == b && t.AbsEnd(a) == t.AbsStart(b)
}

// Window returns the inclusive ordinal range of slots starting in
// [startHour, endHour). ok is false when no slot qualifies.
func (t *Template) Window(startHour, endHour int) (earliest, latest int, ok bool) {
	earliest, latest = -1, -1
	lo := time.Duration(startHour) * time.Hour
	hi := time.Duration(endHour) * time.Hour
	for i, s := range t.slots {
		if s.Start >= lo && s.Start < hi {
			if earliest < 0 {
				earliest = i
			}
			latest = i
		}
	}
	return earliest, latest, earliest >= 0
}
