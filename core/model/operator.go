package model

import (
	"fmt"
	"sort"
)

// Window is an inclusive range of slot ordinals within a day.
type Window struct {
	Earliest int `json:"earliest"`
	Latest   int `json:"latest"`
}

// Covers reports whether slot lies inside the window.
func (w Window) Covers(slot int) bool { return slot >= w.Earliest && slot <= w.Latest }

func (w Window) valid() bool { return w.Earliest >= 0 && w.Latest >= w.Earliest }

// Operator is a part-time staff member. Operators are read-only during a run.
type Operator struct {
	Name      string   `json:"name"`
	Home      string   `json:"home"`
	Qualified []string `json:"qualified"`
	// Availability applies to every day unless overridden in DayAvailability.
	Availability    Window         `json:"availability"`
	DayAvailability map[int]Window `json:"day_availability,omitempty"`
	// Index is the input position and breaks every tie.
	Index int `json:"index"`
}

// Available reports whether the operator can work the given day and slot.
func (o Operator) Available(day, slot int) bool {
	if w, ok := o.DayAvailability[day]; ok {
		return w.Covers(slot)
	}
	return o.Availability.Covers(slot)
}

// Qualifies reports whether the operator may work desk.
func (o Operator) Qualifies(desk string) bool {
	if desk == o.Home {
		return true
	}
	for _, d := range o.Qualified {
		if d == desk {
			return true
		}
	}
	return false
}

// Preferences returns the home desk followed by the other qualified desks in
// input order, without duplicates.
func (o Operator) Preferences() []string {
	prefs := make([]string, 0, len(o.Qualified)+1)
	prefs = append(prefs, o.Home)
	for _, d := range o.Qualified {
		if d != o.Home && !contains(prefs, d) {
			prefs = append(prefs, d)
		}
	}
	return prefs
}

// Validate checks the operator against the known desk set.
func (o Operator) Validate(desks map[string]bool) error {
	if o.Name == "" {
		return &ConfigError{Record: fmt.Sprintf("operator #%d", o.Index+1), Reason: "empty name"}
	}
	if o.Home == "" {
		return &ConfigError{Record: "operator " + o.Name, Reason: "missing home desk"}
	}
	if !desks[o.Home] {
		return &ConfigError{Record: "operator " + o.Name, Reason: fmt.Sprintf("home desk %q is not a known desk", o.Home)}
	}
	for _, d := range o.Qualified {
		if !desks[d] {
			return &ConfigError{Record: "operator " + o.Name, Reason: fmt.Sprintf("qualified desk %q is not a known desk", d)}
		}
	}
	if !o.Availability.valid() {
		return &ConfigError{Record: "operator " + o.Name, Reason: "invalid availability window"}
	}
	days := make([]int, 0, len(o.DayAvailability))
	for d := range o.DayAvailability {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, d := range days {
		if d < 0 || !o.DayAvailability[d].valid() {
			return &ConfigError{Record: "operator " + o.Name, Reason: fmt.Sprintf("invalid availability window for day %d", d)}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
