package scenarios

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/matching"
	"github.com/kilianp07/shiftmatch/core/model"
	"github.com/kilianp07/shiftmatch/core/planner"
	"github.com/kilianp07/shiftmatch/core/points"
	"github.com/kilianp07/shiftmatch/infra/logger"
	"github.com/kilianp07/shiftmatch/infra/metrics"
)

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	cal, err := sc.Template()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	strategy, err := matching.ParseStrategy(sc.Strategy)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	p, err := planner.New(cal, sc.ConstraintConfig(), points.Config{Unit: 1},
		planner.WithSink(sink),
		planner.WithStrategy(strategy),
		planner.WithLogger(logger.NopLogger{}),
	)
	if err != nil {
		t.Fatalf("planner: %v", err)
	}
	rep, err := p.Plan(context.Background(), sc.Input(cal.Len()))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	checkInvariants(t, cal, p.Constraints(), rep)
	checkCells(t, cal, rep, sc.Expected)
	checkShortages(t, cal, rep, sc.Expected.Shortages)

	var kinds []string
	for _, v := range rep.Violations {
		kinds = append(kinds, v.Kind)
	}
	if strings.Join(kinds, ",") != strings.Join(sc.Expected.Violations, ",") {
		t.Errorf("violations: got %v, want %v", kinds, sc.Expected.Violations)
	}
	for op, want := range sc.Expected.Points {
		if got := rep.Ledger.Of(op).String(); got != want {
			t.Errorf("points of %s: got %s, want %s", op, got, want)
		}
	}

	expected := fmt.Sprintf(`
# HELP shiftmatch_last_run_missing_seats Headcount missing across all desks in the last run
# TYPE shiftmatch_last_run_missing_seats gauge
shiftmatch_last_run_missing_seats %d
`, rep.ShortSeats())
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "shiftmatch_last_run_missing_seats"); err != nil {
		t.Errorf("metrics: %v", err)
	}
}

// checkInvariants verifies capacity, uniqueness, qualification and
// constraint satisfaction of the final schedule.
func checkInvariants(t *testing.T, cal *calendar.Template, set *constraint.Set, rep *planner.Report) {
	t.Helper()
	required := make(map[string]int)
	for _, r := range rep.Requirements {
		required[fmt.Sprintf("%s/%d/%d", r.Desk, r.Day, r.Slot)] = r.Required
	}
	ops := make(map[string]model.Operator, len(rep.Operators))
	for _, op := range rep.Operators {
		ops[op.Name] = op
	}
	staffed := make(map[string]int)
	seen := make(map[string]bool)
	for _, a := range rep.Schedule.Assignments {
		key := fmt.Sprintf("%s/%d/%d", a.Operator, a.Day, a.Slot)
		if seen[key] {
			t.Errorf("operator %s holds two assignments at day %d slot %d", a.Operator, a.Day, a.Slot)
		}
		seen[key] = true
		if a.IsBreak() {
			continue
		}
		if !ops[a.Operator].Qualifies(a.Desk) {
			t.Errorf("operator %s is not qualified for %s", a.Operator, a.Desk)
		}
		staffed[fmt.Sprintf("%s/%d/%d", a.Desk, a.Day, a.Slot)]++
	}
	for k, n := range staffed {
		if n > required[k] {
			t.Errorf("desk slot %s staffed %d over requirement %d", k, n, required[k])
		}
	}
	if vs := constraint.Audit(rep.Schedule, set, cal, rep.Operators); len(vs) > 0 {
		t.Errorf("audit: %v", vs)
	}
}

func slotOf(t *testing.T, cal *calendar.Template, id string) int {
	t.Helper()
	i, ok := cal.Lookup(id)
	if !ok {
		t.Fatalf("unknown slot %q", id)
	}
	return i
}

func checkCells(t *testing.T, cal *calendar.Template, rep *planner.Report, exp Expected) {
	t.Helper()
	regular, breaks := 0, 0
	for _, a := range rep.Schedule.Assignments {
		if a.IsBreak() {
			breaks++
		} else {
			regular++
		}
	}
	if exp.Assignments != nil && regular != len(exp.Assignments) {
		t.Errorf("assignments: got %d, want %d", regular, len(exp.Assignments))
	}
	if breaks != len(exp.Breaks) {
		t.Errorf("breaks: got %d, want %d", breaks, len(exp.Breaks))
	}
	for _, c := range exp.Assignments {
		ref := calendar.Ref{Day: c.Day, Slot: slotOf(t, cal, c.Slot)}
		a, ok := rep.Schedule.Lookup(c.Operator, ref)
		if !ok || a.IsBreak() || a.Desk != c.Desk {
			t.Errorf("%s at %s: got %+v, want desk %s", c.Operator, ref, a, c.Desk)
		}
	}
	for _, c := range exp.Breaks {
		ref := calendar.Ref{Day: c.Day, Slot: slotOf(t, cal, c.Slot)}
		a, ok := rep.Schedule.Lookup(c.Operator, ref)
		if !ok || !a.IsBreak() {
			t.Errorf("%s at %s: expected a break, got %+v", c.Operator, ref, a)
		}
		if c.Desk != "" && a.Displaced != c.Desk {
			t.Errorf("%s at %s: displaced %q, want %q", c.Operator, ref, a.Displaced, c.Desk)
		}
	}
	for _, c := range exp.Unassigned {
		slot := slotOf(t, cal, c.Slot)
		found := false
		for _, u := range rep.Schedule.Unassigned {
			if u.Operator == c.Operator && u.Day == c.Day && u.Slot == slot {
				found = true
				if c.Reason != "" && string(u.Reason) != c.Reason {
					t.Errorf("%s unassigned at day %d slot %s: reason %s, want %s", c.Operator, c.Day, c.Slot, u.Reason, c.Reason)
				}
			}
		}
		if !found {
			t.Errorf("%s expected unassigned at day %d slot %s", c.Operator, c.Day, c.Slot)
		}
	}
}

func checkShortages(t *testing.T, cal *calendar.Template, rep *planner.Report, exp []ShortageDef) {
	t.Helper()
	if len(rep.Shortages) != len(exp) {
		t.Fatalf("shortages: got %+v, want %+v", rep.Shortages, exp)
	}
	for i, e := range exp {
		want := model.Shortage{
			Desk:      e.Desk,
			Day:       e.Day,
			Slot:      slotOf(t, cal, e.Slot),
			Required:  e.Required,
			Assigned:  e.Assigned,
			Forfeited: e.Forfeited,
		}
		if rep.Shortages[i] != want {
			t.Errorf("shortage %d: got %+v, want %+v", i, rep.Shortages[i], want)
		}
	}
}
