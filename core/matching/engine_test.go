package matching

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleSlot(t *testing.T) *calendar.Template {
	t.Helper()
	cal, err := calendar.NewTemplate([]calendar.TimeSlot{
		{ID: "morning", Ordinal: 0, Start: 9 * time.Hour, Duration: 4 * time.Hour, Label: calendar.LabelMorning},
	})
	require.NoError(t, err)
	return cal
}

func operator(name, home string, qualified ...string) model.Operator {
	return model.Operator{
		Name:         name,
		Home:         home,
		Qualified:    qualified,
		Availability: model.Window{Earliest: 0, Latest: 23},
	}
}

func requirements(t *testing.T, desks []string, counts map[string][]int, horizon int) *model.Requirements {
	t.Helper()
	req, err := model.NewRequirements(desks, model.Daily(desks, counts, horizon))
	require.NoError(t, err)
	return req
}

func run(t *testing.T, e *Engine, in Input) *Result {
	t.Helper()
	res, err := e.Run(in)
	require.NoError(t, err)
	return res
}

func deskOf(res *Result, op string, day, slot int) string {
	a, ok := res.Schedule.Lookup(op, calendar.Ref{Day: day, Slot: slot})
	if !ok {
		return ""
	}
	return a.Desk
}

func reasonOf(res *Result, op string, day, slot int) model.ReasonCode {
	for _, u := range res.Schedule.Unassigned {
		if u.Operator == op && u.Day == day && u.Slot == slot {
			return u.Reason
		}
	}
	return ""
}

func TestHomeDeskPriorityResolvesTie(t *testing.T) {
	e, err := NewEngine(singleSlot(t), nil)
	require.NoError(t, err)
	res := run(t, e, Input{
		Operators: []model.Operator{
			operator("Op1", "A", "A", "B"),
			operator("Op2", "B", "A", "B"),
		},
		Requirements: requirements(t, []string{"A", "B"}, map[string][]int{"A": {1}, "B": {1}}, 1),
		Horizon:      1,
	})
	assert.Equal(t, "A", deskOf(res, "Op1", 0, 0))
	assert.Equal(t, "B", deskOf(res, "Op2", 0, 0))
	assert.Empty(t, res.Schedule.Unassigned)
}

func TestShortageLeavesSeatOpen(t *testing.T) {
	e, err := NewEngine(singleSlot(t), nil)
	require.NoError(t, err)
	res := run(t, e, Input{
		Operators:    []model.Operator{operator("Op1", "A")},
		Requirements: requirements(t, []string{"A"}, map[string][]int{"A": {2}}, 1),
		Horizon:      1,
	})
	require.Len(t, res.Schedule.Assignments, 1)
	assert.Equal(t, 1, res.Schedule.Staffed(calendar.Ref{})["A"])
}

func TestHomeOperatorOutranksEarlierVisitor(t *testing.T) {
	e, err := NewEngine(singleSlot(t), nil)
	require.NoError(t, err)
	res := run(t, e, Input{
		Operators: []model.Operator{
			operator("Visitor", "B", "A"),
			operator("Local", "A"),
		},
		Requirements: requirements(t, []string{"A", "B"}, map[string][]int{"A": {1}, "B": {0}}, 1),
		Horizon:      1,
	})
	assert.Equal(t, "A", deskOf(res, "Local", 0, 0))
	assert.Equal(t, model.ReasonNoEligibleDesk, reasonOf(res, "Visitor", 0, 0))
}

func TestRejectedOperatorDisplacesLowerRankedHolder(t *testing.T) {
	e, err := NewEngine(singleSlot(t), nil)
	require.NoError(t, err)
	res := run(t, e, Input{
		Operators: []model.Operator{
			operator("Op1", "A", "B"),
			operator("Op2", "A", "B"),
			operator("Op3", "Z", "B"),
		},
		Requirements: requirements(t, []string{"A", "B", "Z"}, map[string][]int{"A": {1}, "B": {1}, "Z": {0}}, 1),
		Horizon:      1,
	})
	assert.Equal(t, "A", deskOf(res, "Op1", 0, 0))
	assert.Equal(t, "B", deskOf(res, "Op2", 0, 0))
	assert.Equal(t, model.ReasonNoEligibleDesk, reasonOf(res, "Op3", 0, 0))
	assert.Equal(t, 2, res.Rounds)
}

func TestWeeklyHoursExhaustsOperator(t *testing.T) {
	cal, err := calendar.NewTemplate([]calendar.TimeSlot{
		{ID: "am", Ordinal: 0, Start: 8 * time.Hour, Duration: 4 * time.Hour, Label: calendar.LabelMorning},
		{ID: "pm", Ordinal: 1, Start: 12 * time.Hour, Duration: 4 * time.Hour, Label: calendar.LabelAfternoon},
	})
	require.NoError(t, err)
	e, err := NewEngine(cal, constraint.NewSet(constraint.MaxWeeklyHours{Hours: 8}))
	require.NoError(t, err)
	res := run(t, e, Input{
		Operators:    []model.Operator{operator("Op1", "A", "B")},
		Requirements: requirements(t, []string{"A", "B"}, map[string][]int{"A": {1, 1}, "B": {1, 1}}, 2),
		Horizon:      2,
	})
	assert.Equal(t, "A", deskOf(res, "Op1", 0, 0))
	assert.Equal(t, "A", deskOf(res, "Op1", 0, 1))
	assert.Equal(t, model.ReasonConstraintExhausted, reasonOf(res, "Op1", 1, 0))
	assert.Equal(t, model.ReasonConstraintExhausted, reasonOf(res, "Op1", 1, 1))
	// both desks were tried on each of the two slots of day 1
	require.Len(t, res.Rejections, 4)
	for _, v := range res.Rejections {
		assert.Equal(t, string(constraint.KindMaxWeeklyHours), v.Kind)
	}
	assert.Equal(t, 8.0, res.States[0].Hours)
}

func TestMinRestRejectsMorningAfterNight(t *testing.T) {
	e, err := NewEngine(calendar.DefaultTemplate(), constraint.NewSet(constraint.MinRestHours{Hours: 11}))
	require.NoError(t, err)
	op := operator("Op1", "A")
	op.DayAvailability = map[int]model.Window{0: {Earliest: 3, Latest: 3}}
	res := run(t, e, Input{
		Operators:    []model.Operator{op},
		Requirements: requirements(t, []string{"A"}, map[string][]int{"A": {1, 0, 0, 1}}, 2),
		Horizon:      2,
	})
	assert.Equal(t, "A", deskOf(res, "Op1", 0, 3))
	assert.Equal(t, model.ReasonConstraintExhausted, reasonOf(res, "Op1", 1, 0))
	// the next night starts 12h after the previous one ended
	assert.Equal(t, "A", deskOf(res, "Op1", 1, 3))
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, string(constraint.KindMinRestHours), res.Rejections[0].Kind)
	assert.Equal(t, 1, res.Rejections[0].Day)
}

// deskBan vetoes a single desk, to observe fallback to the next preference.
type deskBan struct{ desk string }

func (deskBan) Kind() constraint.Kind { return constraint.KindMinRestHours }

func (b deskBan) Validate(op model.Operator, c constraint.Candidate, _ constraint.History) *model.ConstraintViolation {
	if c.Desk == b.desk {
		return &model.ConstraintViolation{Kind: "desk_ban", Operator: op.Name, Day: c.Ref.Day, Slot: c.Ref.Slot, Desk: c.Desk}
	}
	return nil
}

func TestConstraintRejectionFallsBackToNextPreference(t *testing.T) {
	e, err := NewEngine(singleSlot(t), constraint.NewSet(deskBan{desk: "A"}))
	require.NoError(t, err)
	res := run(t, e, Input{
		Operators:    []model.Operator{operator("Op1", "A", "B")},
		Requirements: requirements(t, []string{"A", "B"}, map[string][]int{"A": {1}, "B": {1}}, 1),
		Horizon:      1,
	})
	assert.Equal(t, "B", deskOf(res, "Op1", 0, 0))
	assert.Empty(t, res.Rejections)
}

func TestUnavailableOperator(t *testing.T) {
	e, err := NewEngine(calendar.DefaultTemplate(), nil)
	require.NoError(t, err)
	op := operator("Op1", "A")
	op.Availability = model.Window{Earliest: 1, Latest: 1}
	res := run(t, e, Input{
		Operators:    []model.Operator{op},
		Requirements: requirements(t, []string{"A"}, map[string][]int{"A": {1, 1, 1, 1}}, 1),
		Horizon:      1,
	})
	assert.Equal(t, model.ReasonUnavailable, reasonOf(res, "Op1", 0, 0))
	assert.Equal(t, "A", deskOf(res, "Op1", 0, 1))
	assert.Len(t, res.Schedule.Unassigned, 3)
}

func TestGreedyIgnoresHomePriority(t *testing.T) {
	in := Input{
		Operators: []model.Operator{
			operator("Visitor", "B", "A"),
			operator("Local", "A"),
		},
		Requirements: requirements(t, []string{"A", "B"}, map[string][]int{"A": {1}, "B": {0}}, 1),
		Horizon:      1,
	}
	e, err := NewEngine(singleSlot(t), nil, WithStrategy(StrategyGreedy))
	require.NoError(t, err)
	res := run(t, e, in)
	assert.Equal(t, "A", deskOf(res, "Visitor", 0, 0))
	assert.Equal(t, model.ReasonNoEligibleDesk, reasonOf(res, "Local", 0, 0))
}

func TestNewEngineErrors(t *testing.T) {
	_, err := NewEngine(nil, nil)
	assert.Error(t, err)
	_, err = NewEngine(singleSlot(t), nil, WithStrategy("random"))
	assert.Error(t, err)
	_, err = ParseStrategy("")
	assert.NoError(t, err)

	e, err := NewEngine(singleSlot(t), nil)
	require.NoError(t, err)
	_, err = e.Run(Input{Requirements: requirements(t, []string{"A"}, nil, 1), Horizon: 0})
	assert.True(t, errors.Is(err, calendar.ErrInvalidHorizon))
	_, err = e.Run(Input{Horizon: 1})
	assert.Error(t, err)
}

// market builds a deterministic, crowded instance over the hourly template.
func market(t *testing.T, seed int64) (*calendar.Template, Input) {
	t.Helper()
	cal, err := calendar.HourlyTemplate(9, 17)
	require.NoError(t, err)
	r := rand.New(rand.NewSource(seed))
	desks := []string{"A", "B", "C", "D"}
	counts := make(map[string][]int)
	for _, d := range desks {
		row := make([]int, cal.Len())
		for i := range row {
			row[i] = r.Intn(3)
		}
		counts[d] = row
	}
	var ops []model.Operator
	for i := 0; i < 12; i++ {
		home := desks[r.Intn(len(desks))]
		var qual []string
		for _, d := range desks {
			if d != home && r.Intn(2) == 0 {
				qual = append(qual, d)
			}
		}
		lo := r.Intn(4)
		ops = append(ops, model.Operator{
			Name:         fmt.Sprintf("op%02d", i),
			Home:         home,
			Qualified:    qual,
			Availability: model.Window{Earliest: lo, Latest: lo + 3 + r.Intn(5)},
			Index:        i,
		})
	}
	return cal, Input{Operators: ops, Requirements: requirements(t, desks, counts, 3), Horizon: 3}
}

func marketConstraints() *constraint.Set {
	return constraint.NewSet(
		constraint.MinRestHours{Hours: 11},
		constraint.MaxConsecutiveDays{Days: 2},
		constraint.MaxWeeklyHours{Hours: 12},
	)
}

func TestScheduleProperties(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		cal, in := market(t, seed)
		set := marketConstraints()
		e, err := NewEngine(cal, set)
		require.NoError(t, err)
		res := run(t, e, in)

		refs, err := cal.SlotsFor(in.Horizon)
		require.NoError(t, err)
		seen := make(map[string]bool)
		for _, a := range res.Schedule.Assignments {
			key := fmt.Sprintf("%s/%d/%d", a.Operator, a.Day, a.Slot)
			require.False(t, seen[key], "duplicate assignment %s", key)
			seen[key] = true
		}
		ops := make(map[string]model.Operator)
		for _, op := range in.Operators {
			ops[op.Name] = op
		}
		for _, a := range res.Schedule.Assignments {
			assert.True(t, ops[a.Operator].Qualifies(a.Desk), "seed %d: %s not qualified for %s", seed, a.Operator, a.Desk)
		}
		for _, ref := range refs {
			for d, n := range res.Schedule.Staffed(ref) {
				assert.LessOrEqual(t, n, in.Requirements.Required(d, ref.Day, ref.Slot))
			}
		}
		// every (operator, slot) is either assigned or explained
		assert.Equal(t, len(refs)*len(in.Operators), len(res.Schedule.Assignments)+len(res.Schedule.Unassigned))
		assert.Empty(t, constraint.Audit(res.Schedule, set, cal, in.Operators))
	}
}

func TestSlotStability(t *testing.T) {
	cal, in := market(t, 42)
	set := marketConstraints()
	e, err := NewEngine(cal, set)
	require.NoError(t, err)
	res := run(t, e, in)

	refs, err := cal.SlotsFor(in.Horizon)
	require.NoError(t, err)
	hist := make(map[string]constraint.History)
	byOp := res.Schedule.ByOperator()
	for _, ref := range refs {
		staffed := res.Schedule.Staffed(ref)
		for i, op := range in.Operators {
			h, ok := hist[op.Name]
			if !ok {
				h = constraint.NewHistory(cal, nil)
			}
			current := deskOf(res, op.Name, ref.Day, ref.Slot)
			if op.Available(ref.Day, ref.Slot) {
				for _, d := range op.Preferences() {
					if d == current {
						break
					}
					if in.Requirements.Required(d, ref.Day, ref.Slot) == 0 {
						continue
					}
					if set.Validate(op, constraint.Candidate{Ref: ref, Desk: d}, h) != nil {
						continue
					}
					// d is feasible and preferred: it must be full of holders it ranks higher
					require.Equal(t, in.Requirements.Required(d, ref.Day, ref.Slot), staffed[d],
						"%s: %s prefers open desk %s", ref, op.Name, d)
					for j, other := range in.Operators {
						if deskOf(res, other.Name, ref.Day, ref.Slot) != d {
							continue
						}
						otherHome, opHome := other.Home == d, op.Home == d
						higher := otherHome && !opHome || otherHome == opHome && j < i
						assert.True(t, higher, "%s: desk %s prefers %s over holder %s", ref, d, op.Name, other.Name)
					}
				}
			}
			for _, a := range byOp[op.Name] {
				if a.Day == ref.Day && a.Slot == ref.Slot {
					h.Add(a)
				}
			}
			hist[op.Name] = h
		}
	}
}

func TestDeterminism(t *testing.T) {
	cal, in := market(t, 7)
	seq, err := NewEngine(cal, marketConstraints(), WithConcurrency(false))
	require.NoError(t, err)
	par, err := NewEngine(cal, marketConstraints())
	require.NoError(t, err)
	a := run(t, seq, in)
	b := run(t, par, in)
	c := run(t, par, in)
	assert.True(t, reflect.DeepEqual(a.Schedule, b.Schedule))
	assert.True(t, reflect.DeepEqual(b.Schedule, c.Schedule))
	assert.Equal(t, a.Rejections, b.Rejections)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	defer ResetMetrics(nil)

	cal, err := calendar.NewTemplate([]calendar.TimeSlot{
		{ID: "am", Ordinal: 0, Start: 8 * time.Hour, Duration: 4 * time.Hour, Label: calendar.LabelMorning},
		{ID: "pm", Ordinal: 1, Start: 12 * time.Hour, Duration: 4 * time.Hour, Label: calendar.LabelAfternoon},
	})
	require.NoError(t, err)
	e, err := NewEngine(cal, constraint.NewSet(constraint.MaxWeeklyHours{Hours: 4}))
	require.NoError(t, err)
	run(t, e, Input{
		Operators:    []model.Operator{operator("Op1", "A"), operator("Op2", "A")},
		Requirements: requirements(t, []string{"A"}, map[string][]int{"A": {1, 1}}, 1),
		Horizon:      1,
	})
	// am: Op1 accepted, Op2 bumped; pm: Op1 vetoed, Op2 accepted
	assert.Equal(t, 2.0, testutil.ToFloat64(proposalsTotal.WithLabelValues(outcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(proposalsTotal.WithLabelValues(outcomeCapacity)))
	assert.Equal(t, 1.0, testutil.ToFloat64(constraintRejections.WithLabelValues(string(constraint.KindMaxWeeklyHours))))
	assert.Equal(t, 1, testutil.CollectAndCount(roundsPerRun))
}
