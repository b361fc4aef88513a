package model

import "fmt"

// ConfigError reports malformed input. Record identifies the offending row.
type ConfigError struct {
	Record string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error in %s: %s: %v", e.Record, e.Reason, e.Err)
	}
	return fmt.Sprintf("config error in %s: %s", e.Record, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }
