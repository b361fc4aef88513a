package model

import "fmt"

// DeskRequirement is the headcount a desk needs for one day and slot.
type DeskRequirement struct {
	Desk     string `json:"desk"`
	Day      int    `json:"day"`
	Slot     int    `json:"slot"`
	Required int    `json:"required"`
}

type reqKey struct {
	desk      string
	day, slot int
}

// Requirements is the validated set of desk requirements of a run. Desks keep
// their input order.
type Requirements struct {
	desks []string
	known map[string]bool
	req   map[reqKey]int
	rows  []DeskRequirement
}

// NewRequirements validates rows against the declared desks. Rows for the same
// (desk, day, slot) or with a negative headcount are rejected.
func NewRequirements(desks []string, rows []DeskRequirement) (*Requirements, error) {
	r := &Requirements{
		desks: make([]string, 0, len(desks)),
		known: make(map[string]bool, len(desks)),
		req:   make(map[reqKey]int, len(rows)),
		rows:  make([]DeskRequirement, 0, len(rows)),
	}
	for _, d := range desks {
		if d == "" {
			return nil, &ConfigError{Record: "desk list", Reason: "empty desk name"}
		}
		if r.known[d] {
			return nil, &ConfigError{Record: "desk " + d, Reason: "duplicate desk name"}
		}
		r.known[d] = true
		r.desks = append(r.desks, d)
	}
	for _, row := range rows {
		rec := fmt.Sprintf("requirement %s day %d slot %d", row.Desk, row.Day, row.Slot)
		if !r.known[row.Desk] {
			return nil, &ConfigError{Record: rec, Reason: "unknown desk"}
		}
		if row.Required < 0 {
			return nil, &ConfigError{Record: rec, Reason: "negative headcount"}
		}
		if row.Day < 0 || row.Slot < 0 {
			return nil, &ConfigError{Record: rec, Reason: "negative day or slot"}
		}
		k := reqKey{row.Desk, row.Day, row.Slot}
		if _, dup := r.req[k]; dup {
			return nil, &ConfigError{Record: rec, Reason: "duplicate requirement"}
		}
		r.req[k] = row.Required
		r.rows = append(r.rows, row)
	}
	return r, nil
}

// Desks returns desk names in input order.
func (r *Requirements) Desks() []string {
	out := make([]string, len(r.desks))
	copy(out, r.desks)
	return out
}

// Known returns the set of declared desks.
func (r *Requirements) Known() map[string]bool {
	out := make(map[string]bool, len(r.known))
	for k := range r.known {
		out[k] = true
	}
	return out
}

// Required returns the headcount for desk at (day, slot); absent rows are zero.
func (r *Requirements) Required(desk string, day, slot int) int {
	return r.req[reqKey{desk, day, slot}]
}

// Rows returns the requirement rows in input order.
func (r *Requirements) Rows() []DeskRequirement {
	out := make([]DeskRequirement, len(r.rows))
	copy(out, r.rows)
	return out
}

// Daily expands per-slot headcounts that are the same every day into rows for
// the whole horizon. counts maps desk to headcount per slot ordinal.
func Daily(desks []string, counts map[string][]int, horizon int) []DeskRequirement {
	var rows []DeskRequirement
	for d := 0; d < horizon; d++ {
		for _, desk := range desks {
			for slot, n := range counts[desk] {
				rows = append(rows, DeskRequirement{Desk: desk, Day: d, Slot: slot, Required: n})
			}
		}
	}
	return rows
}
