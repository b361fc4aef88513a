// Package ingest reads the desk and operator CSV files of a planning request.
// Every malformed row is reported as a *model.ConfigError naming its line.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/model"
)

// DeskTable holds per-slot headcounts that repeat every day.
type DeskTable struct {
	Desks  []string
	Counts map[string][]int
}

// Requirements expands the table over horizon days.
func (t DeskTable) Requirements(horizon int) []model.DeskRequirement {
	return model.Daily(t.Desks, t.Counts, horizon)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	return cr
}

func lineErr(line int, reason string, err error) error {
	return &model.ConfigError{Record: fmt.Sprintf("line %d", line), Reason: reason, Err: err}
}

// slotColumn resolves a header to a slot ordinal. Columns may name the slot id
// or its start hour.
func slotColumn(cal *calendar.Template, col string) (int, bool) {
	if i, ok := cal.Lookup(col); ok {
		return i, true
	}
	h, err := strconv.Atoi(col)
	if err != nil {
		return 0, false
	}
	i, last, ok := cal.Window(h, h+1)
	return i, ok && i == last
}

// ReadDesks parses the desk requirement CSV. The header is "desk" followed by
// one column per slot of cal.
func ReadDesks(r io.Reader, cal *calendar.Template) (*DeskTable, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, lineErr(1, "missing header", nil)
		}
		return nil, lineErr(1, "unreadable header", err)
	}
	if len(header) == 0 || strings.TrimSpace(header[0]) != "desk" {
		return nil, lineErr(1, `first column must be "desk"`, nil)
	}
	cols := make([]int, len(header)-1)
	seen := make(map[int]bool, len(cols))
	for i, h := range header[1:] {
		slot, ok := slotColumn(cal, strings.TrimSpace(h))
		if !ok {
			return nil, lineErr(1, fmt.Sprintf("unknown slot column %q", h), nil)
		}
		if seen[slot] {
			return nil, lineErr(1, fmt.Sprintf("slot column %q repeated", h), nil)
		}
		seen[slot] = true
		cols[i] = slot
	}
	if len(seen) != cal.Len() {
		var missing []string
		for _, s := range cal.Slots() {
			if !seen[s.Ordinal] {
				missing = append(missing, s.ID)
			}
		}
		return nil, lineErr(1, "missing slot columns "+strings.Join(missing, ","), nil)
	}

	t := &DeskTable{Counts: make(map[string][]int)}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, lineErr(line, "unreadable record", err)
		}
		if len(rec) != len(header) {
			return nil, lineErr(line, fmt.Sprintf("expected %d fields, got %d", len(header), len(rec)), nil)
		}
		name := strings.TrimSpace(rec[0])
		if name == "" {
			return nil, lineErr(line, "empty desk name", nil)
		}
		if _, dup := t.Counts[name]; dup {
			return nil, lineErr(line, fmt.Sprintf("duplicate desk %q", name), nil)
		}
		counts := make([]int, cal.Len())
		for i, v := range rec[1:] {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, lineErr(line, fmt.Sprintf("desk %s slot %s: not an integer", name, header[i+1]), err)
			}
			if n < 0 {
				return nil, lineErr(line, fmt.Sprintf("desk %s slot %s: negative headcount", name, header[i+1]), nil)
			}
			counts[cols[i]] = n
		}
		t.Desks = append(t.Desks, name)
		t.Counts[name] = counts
	}
	return t, nil
}

var operatorHeader = []string{"name", "start", "end", "home", "desks"}

// ReadOperators parses the operator CSV against the known desks. start and
// end are hours, the window covering slots starting in [start, end), or slot
// ids, both included. The home desk is implied in the qualified list.
func ReadOperators(r io.Reader, cal *calendar.Template, desks []string) ([]model.Operator, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, lineErr(1, "missing header", nil)
		}
		return nil, lineErr(1, "unreadable header", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range operatorHeader {
		if _, ok := pos[c]; !ok {
			return nil, lineErr(1, fmt.Sprintf("missing column %q", c), nil)
		}
	}
	known := make(map[string]bool, len(desks))
	for _, d := range desks {
		known[d] = true
	}

	var ops []model.Operator
	names := make(map[string]bool)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, lineErr(line, "unreadable record", err)
		}
		field := func(c string) string {
			if i := pos[c]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		name := field("name")
		if name == "" {
			return nil, lineErr(line, "empty operator name", nil)
		}
		if names[name] {
			return nil, lineErr(line, fmt.Sprintf("duplicate operator %q", name), nil)
		}
		names[name] = true
		w, err := window(cal, field("start"), field("end"))
		if err != nil {
			return nil, lineErr(line, "operator "+name, err)
		}
		home := field("home")
		if !known[home] {
			return nil, lineErr(line, fmt.Sprintf("operator %s: home desk %q is not a known desk", name, home), nil)
		}
		var qualified []string
		for _, d := range strings.Split(field("desks"), ",") {
			d = strings.TrimSpace(d)
			if d == "" || d == home {
				continue
			}
			if !known[d] {
				return nil, lineErr(line, fmt.Sprintf("operator %s: qualified desk %q is not a known desk", name, d), nil)
			}
			qualified = append(qualified, d)
		}
		ops = append(ops, model.Operator{
			Name:         name,
			Home:         home,
			Qualified:    qualified,
			Availability: w,
			Index:        len(ops),
		})
	}
	return ops, nil
}

func window(cal *calendar.Template, start, end string) (model.Window, error) {
	sh, serr := strconv.Atoi(start)
	eh, eerr := strconv.Atoi(end)
	if serr == nil && eerr == nil {
		if eh <= sh {
			return model.Window{}, fmt.Errorf("availability end %d not after start %d", eh, sh)
		}
		lo, hi, ok := cal.Window(sh, eh)
		if !ok {
			return model.Window{}, fmt.Errorf("no slot starts within %d-%d", sh, eh)
		}
		return model.Window{Earliest: lo, Latest: hi}, nil
	}
	lo, ok := cal.Lookup(start)
	if !ok {
		return model.Window{}, fmt.Errorf("unknown availability start %q", start)
	}
	hi, ok := cal.Lookup(end)
	if !ok {
		return model.Window{}, fmt.Errorf("unknown availability end %q", end)
	}
	if hi < lo {
		return model.Window{}, fmt.Errorf("availability end %q before start %q", end, start)
	}
	return model.Window{Earliest: lo, Latest: hi}, nil
}
