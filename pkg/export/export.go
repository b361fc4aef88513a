// Package export writes planning reports as CSV, JSON and HTML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/model"
	"github.com/kilianp07/shiftmatch/core/planner"
	"github.com/kilianp07/shiftmatch/core/points"
)

// Schedule row statuses.
const (
	StatusAssigned   = "assigned"
	StatusBreak      = "break"
	StatusUnassigned = "unassigned"
)

// WriteJSON writes the full report to w.
func WriteJSON(w io.Writer, rep *planner.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func slotID(slots []calendar.TimeSlot, i int) string {
	if i >= 0 && i < len(slots) {
		return slots[i].ID
	}
	return strconv.Itoa(i)
}

type cell struct {
	op  string
	ref calendar.Ref
}

// cells indexes assignments and unassigned markers by operator and slot.
func cells(s *model.Schedule) (map[cell]model.Assignment, map[cell]model.Unassigned) {
	as := make(map[cell]model.Assignment, len(s.Assignments))
	for _, a := range s.Assignments {
		as[cell{a.Operator, a.Ref()}] = a
	}
	un := make(map[cell]model.Unassigned, len(s.Unassigned))
	for _, u := range s.Unassigned {
		un[cell{u.Operator, calendar.Ref{Day: u.Day, Slot: u.Slot}}] = u
	}
	return as, un
}

// WriteScheduleCSV writes one row per operator, day and slot. Break
// assignments show breakLabel in the desk column.
func WriteScheduleCSV(w io.Writer, rep *planner.Report, breakLabel string) error {
	as, un := cells(rep.Schedule)
	var rows [][]string
	for day := 0; day < rep.Schedule.Horizon; day++ {
		for i := range rep.Slots {
			ref := calendar.Ref{Day: day, Slot: i}
			for _, op := range rep.Operators {
				row := []string{op.Name, strconv.Itoa(day), rep.Slots[i].ID, "", StatusUnassigned, ""}
				if a, ok := as[cell{op.Name, ref}]; ok {
					if a.IsBreak() {
						row[3], row[4] = breakLabel, StatusBreak
					} else {
						row[3], row[4] = a.Desk, StatusAssigned
					}
				} else if u, ok := un[cell{op.Name, ref}]; ok {
					row[5] = string(u.Reason)
				}
				rows = append(rows, row)
			}
		}
	}
	return writeAll(w, []string{"operator", "day", "slot", "desk", "status", "reason"}, rows)
}

// WriteLedgerCSV writes one total per operator in input order.
func WriteLedgerCSV(w io.Writer, l *points.Ledger) error {
	rows := make([][]string, 0, len(l.Totals))
	for _, t := range l.Totals {
		rows = append(rows, []string{t.Operator, t.Home, t.Points.String()})
	}
	return writeAll(w, []string{"operator", "home", "points"}, rows)
}

// WriteLedgerBreakdownCSV writes every earning assignment.
func WriteLedgerBreakdownCSV(w io.Writer, l *points.Ledger, slots []calendar.TimeSlot) error {
	rows := make([][]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		rows = append(rows, []string{e.Operator, strconv.Itoa(e.Day), slotID(slots, e.Slot), e.Desk, e.Points.String()})
	}
	return writeAll(w, []string{"operator", "day", "slot", "desk", "points"}, rows)
}

// WriteShortagesCSV writes every understaffed desk slot.
func WriteShortagesCSV(w io.Writer, rep *planner.Report) error {
	rows := make([][]string, 0, len(rep.Shortages))
	for _, s := range rep.Shortages {
		rows = append(rows, []string{
			s.Desk,
			strconv.Itoa(s.Day),
			slotID(rep.Slots, s.Slot),
			strconv.Itoa(s.Required),
			strconv.Itoa(s.Assigned),
			strconv.Itoa(s.Forfeited),
		})
	}
	return writeAll(w, []string{"desk", "day", "slot", "required", "assigned", "forfeited"}, rows)
}

// WriteViolationsCSV writes rejections and break overrides.
func WriteViolationsCSV(w io.Writer, rep *planner.Report) error {
	rows := make([][]string, 0, len(rep.Violations))
	for _, v := range rep.Violations {
		rows = append(rows, []string{
			v.Kind,
			v.Operator,
			strconv.Itoa(v.Day),
			slotID(rep.Slots, v.Slot),
			v.Desk,
			strconv.FormatBool(v.Overridden),
			v.Explanation,
		})
	}
	return writeAll(w, []string{"kind", "operator", "day", "slot", "desk", "overridden", "explanation"}, rows)
}
