package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/model"
	"github.com/kilianp07/shiftmatch/core/planner"
)

type SlotDef struct {
	ID        string `yaml:"id"`
	StartHour int    `yaml:"start_hour"`
	Hours     int    `yaml:"hours"`
	Night     bool   `yaml:"night,omitempty"`
}

type DeskDef struct {
	Name   string `yaml:"name"`
	Counts []int  `yaml:"counts"`
}

type OperatorDef struct {
	Name  string   `yaml:"name"`
	Home  string   `yaml:"home"`
	Desks []string `yaml:"desks,omitempty"`
	// From and To bound availability by slot ordinal; nil means all day.
	From *int `yaml:"from,omitempty"`
	To   *int `yaml:"to,omitempty"`
}

func (o OperatorDef) ToModel(slots int) model.Operator {
	w := model.Window{Earliest: 0, Latest: slots - 1}
	if o.From != nil {
		w.Earliest = *o.From
	}
	if o.To != nil {
		w.Latest = *o.To
	}
	return model.Operator{Name: o.Name, Home: o.Home, Qualified: o.Desks, Availability: w}
}

type ConstraintDef struct {
	Enabled bool           `yaml:"enabled"`
	Params  map[string]any `yaml:"params,omitempty"`
}

type Cell struct {
	Operator string `yaml:"operator"`
	Day      int    `yaml:"day"`
	Slot     string `yaml:"slot"`
	Desk     string `yaml:"desk,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
}

type ShortageDef struct {
	Desk      string `yaml:"desk"`
	Day       int    `yaml:"day"`
	Slot      string `yaml:"slot"`
	Required  int    `yaml:"required"`
	Assigned  int    `yaml:"assigned"`
	Forfeited int    `yaml:"forfeited,omitempty"`
}

type Expected struct {
	Assignments []Cell            `yaml:"assignments,omitempty"`
	Breaks      []Cell            `yaml:"breaks,omitempty"`
	Unassigned  []Cell            `yaml:"unassigned,omitempty"`
	Shortages   []ShortageDef     `yaml:"shortages"`
	Violations  []string          `yaml:"violations,omitempty"`
	Points      map[string]string `yaml:"points,omitempty"`
}

type Scenario struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description,omitempty"`
	Strategy    string                   `yaml:"strategy,omitempty"`
	Horizon     int                      `yaml:"horizon"`
	Slots       []SlotDef                `yaml:"slots,omitempty"`
	Constraints map[string]ConstraintDef `yaml:"constraints,omitempty"`
	Desks       []DeskDef                `yaml:"desks"`
	Operators   []OperatorDef            `yaml:"operators"`
	Expected    Expected                 `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	return &sc, nil
}

// Template returns the scenario calendar, the four-slot day when no slots are
// listed.
func (sc *Scenario) Template() (*calendar.Template, error) {
	if len(sc.Slots) == 0 {
		return calendar.DefaultTemplate(), nil
	}
	slots := make([]calendar.TimeSlot, len(sc.Slots))
	for i, s := range sc.Slots {
		label := calendar.LabelHour
		if s.Night {
			label = calendar.LabelNight
		}
		slots[i] = calendar.TimeSlot{
			ID:       s.ID,
			Ordinal:  i,
			Start:    time.Duration(s.StartHour) * time.Hour,
			Duration: time.Duration(s.Hours) * time.Hour,
			Label:    label,
		}
	}
	return calendar.NewTemplate(slots)
}

// ConstraintConfig converts the constraint section.
func (sc *Scenario) ConstraintConfig() constraint.Config {
	cfg := make(constraint.Config, len(sc.Constraints))
	for k, c := range sc.Constraints {
		cfg[k] = constraint.Spec{Enabled: c.Enabled, Params: c.Params}
	}
	return cfg
}

// Input converts desks and operators into a planning request.
func (sc *Scenario) Input(slots int) planner.Input {
	in := planner.Input{Horizon: sc.Horizon}
	counts := make(map[string][]int, len(sc.Desks))
	for _, d := range sc.Desks {
		in.Desks = append(in.Desks, d.Name)
		counts[d.Name] = d.Counts
	}
	in.Requirements = model.Daily(in.Desks, counts, sc.Horizon)
	for _, o := range sc.Operators {
		in.Operators = append(in.Operators, o.ToModel(slots))
	}
	return in
}
