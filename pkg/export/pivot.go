package export

import (
	"fmt"
	"io"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/planner"
)

// Pivot lays out one day with operators as rows and slots as columns. Cells
// hold the desk, breakLabel or an empty string.
func Pivot(rep *planner.Report, day int, breakLabel string) ([]string, [][]string, error) {
	if day < 0 || day >= rep.Schedule.Horizon {
		return nil, nil, fmt.Errorf("export: day %d outside the %d-day horizon", day, rep.Schedule.Horizon)
	}
	header := make([]string, 0, len(rep.Slots)+1)
	header = append(header, "operator")
	for _, s := range rep.Slots {
		header = append(header, s.ID)
	}
	as, _ := cells(rep.Schedule)
	rows := make([][]string, 0, len(rep.Operators))
	for _, op := range rep.Operators {
		row := make([]string, len(header))
		row[0] = op.Name
		for i := range rep.Slots {
			a, ok := as[cell{op.Name, calendar.Ref{Day: day, Slot: i}}]
			switch {
			case !ok:
			case a.IsBreak():
				row[i+1] = breakLabel
			default:
				row[i+1] = a.Desk
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// WritePivotCSV writes the pivot view of one day.
func WritePivotCSV(w io.Writer, rep *planner.Report, day int, breakLabel string) error {
	header, rows, err := Pivot(rep, day, breakLabel)
	if err != nil {
		return err
	}
	return writeAll(w, header, rows)
}
