package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/metrics"
	"github.com/kilianp07/shiftmatch/core/planner"
	"github.com/kilianp07/shiftmatch/core/points"
	"github.com/kilianp07/shiftmatch/core/runlog"
	"github.com/kilianp07/shiftmatch/infra/logger"
	"github.com/kilianp07/shiftmatch/infra/monitoring"
)

type Config struct {
	Log         logger.Config           `json:"log"`
	Calendar    CalendarConfig          `json:"calendar"`
	Constraints constraint.Config       `json:"constraints"`
	Points      points.Config           `json:"points"`
	Planner     planner.Config          `json:"planner"`
	Metrics     metrics.Config          `json:"metrics"`
	RunLog      runlog.Config           `json:"runlog"`
	Sentry      monitoring.SentryConfig `json:"sentry"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every section. An absent constraints section enables the
// stock labour limits.
func (c *Config) SetDefaults() {
	c.Log.SetDefaults()
	c.Calendar.SetDefaults()
	if c.Constraints == nil {
		c.Constraints = constraint.DefaultConfig()
	}
	c.Points.SetDefaults()
	c.Planner.SetDefaults()
	c.RunLog.SetDefaults()
}

// Validate checks every section. Constraint parameters are checked when the
// set is built.
func (c *Config) Validate() error {
	if err := c.Calendar.Validate(); err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	if _, err := constraint.Build(c.Constraints); err != nil {
		return fmt.Errorf("constraints: %w", err)
	}
	if err := c.Points.Validate(); err != nil {
		return err
	}
	if err := c.Planner.Validate(); err != nil {
		return err
	}
	if err := c.RunLog.Validate(); err != nil {
		return err
	}
	if r := c.Sentry.TracesSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("sentry: traces_sample_rate must be within [0,1], got %v", r)
	}
	return nil
}

// Load reads path (YAML or JSON by extension) and applies K_ environment
// overrides, "__" separating nested keys. An empty path loads the defaults
// with environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
