package config

import (
	"fmt"

	"github.com/kilianp07/shiftmatch/core/calendar"
)

// CalendarConfig selects the slot template of every day.
type CalendarConfig struct {
	// Mode is "slots" (morning, afternoon, evening, night) or "hourly".
	Mode string `json:"mode"`
	// FromHour and ToHour bound the hourly template, both inclusive.
	FromHour int `json:"from_hour"`
	ToHour   int `json:"to_hour"`
}

// SetDefaults applies sane defaults.
func (c *CalendarConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "slots"
	}
	if c.Mode == "hourly" && c.FromHour == 0 && c.ToHour == 0 {
		c.FromHour, c.ToHour = 9, 17
	}
}

// Validate checks mandatory fields.
func (c CalendarConfig) Validate() error {
	_, err := c.Template()
	return err
}

// Template builds the configured slot template.
func (c CalendarConfig) Template() (*calendar.Template, error) {
	switch c.Mode {
	case "slots":
		return calendar.DefaultTemplate(), nil
	case "hourly":
		return calendar.HourlyTemplate(c.FromHour, c.ToHour)
	default:
		return nil, fmt.Errorf("unknown calendar mode %q", c.Mode)
	}
}
