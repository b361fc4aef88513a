package logger

import corelogger "github.com/kilianp07/shiftmatch/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every message.
type NopLogger = corelogger.Nop

// Config selects the verbosity and output format.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

// New returns a Logger for the given component. The output format is taken
// from the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
