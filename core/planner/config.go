package planner

import (
	"fmt"

	"github.com/kilianp07/shiftmatch/core/matching"
)

// Config is the planner section of the configuration file.
type Config struct {
	// Horizon is the default number of days when the caller gives none.
	Horizon  int    `json:"horizon"`
	Strategy string `json:"strategy"`
	// Cache keeps reports in memory keyed by input fingerprint.
	Cache bool `json:"cache"`
	// BreakLabel is how exports render break assignments.
	BreakLabel string `json:"break_label"`
	// Sequential disables concurrent proposal evaluation.
	Sequential bool `json:"sequential"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Horizon == 0 {
		c.Horizon = 5
	}
	if c.Strategy == "" {
		c.Strategy = string(matching.StrategyDA)
	}
	if c.BreakLabel == "" {
		c.BreakLabel = "break"
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("planner: horizon must be positive, got %d", c.Horizon)
	}
	if _, err := matching.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	return nil
}
