package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/shiftmatch/core/planner"
)

// DeskCoverage sums required and staffed seats of one desk over the horizon.
type DeskCoverage struct {
	Desk     string
	Required int
	Assigned int
}

// Coverage returns the coverage of every desk in input order. Break
// assignments do not staff a desk.
func Coverage(rep *planner.Report) []DeskCoverage {
	idx := make(map[string]int, len(rep.Desks))
	out := make([]DeskCoverage, len(rep.Desks))
	for i, d := range rep.Desks {
		idx[d] = i
		out[i].Desk = d
	}
	for _, r := range rep.Requirements {
		if i, ok := idx[r.Desk]; ok {
			out[i].Required += r.Required
		}
	}
	for _, a := range rep.Schedule.Assignments {
		if a.IsBreak() {
			continue
		}
		if i, ok := idx[a.Desk]; ok {
			out[i].Assigned++
		}
	}
	return out
}

// RenderCoverageChart writes an HTML bar chart of required against assigned
// seats per desk.
func RenderCoverageChart(w io.Writer, rep *planner.Report) error {
	cov := Coverage(rep)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Desk coverage",
			Subtitle: fmt.Sprintf("run %s, %d days", rep.RunID, rep.Schedule.Horizon),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Desk"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Seats"}),
	)
	desks := make([]string, len(cov))
	required := make([]opts.BarData, len(cov))
	assigned := make([]opts.BarData, len(cov))
	for i, c := range cov {
		desks[i] = c.Desk
		required[i] = opts.BarData{Value: c.Required}
		assigned[i] = opts.BarData{Value: c.Assigned}
	}
	bar.SetXAxis(desks).
		AddSeries("required", required).
		AddSeries("assigned", assigned)
	return bar.Render(w)
}
