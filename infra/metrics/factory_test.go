package metrics_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/shiftmatch/core/factory"
	coremetrics "github.com/kilianp07/shiftmatch/core/metrics"
	_ "github.com/kilianp07/shiftmatch/infra/metrics"
)

/*
TestMetricsFactory_Builtins verifies registration via infra/metrics/factory.go.

	Cases:
	- builtin names are registered
	- nop sink instantiates
	- unknown type returns error
*/
func TestMetricsFactory_Builtins(t *testing.T) {
	names := coremetrics.SinkTypes()
	for _, want := range []string{"influx", "nop", "prometheus"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("sink %s not registered (have %v)", want, names)
		}
	}
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if s == nil {
		t.Fatal("expected sink instance")
	}
	if _, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

// Test decoding from YAML with multiple sinks.
func TestMetricsConfigDecodeYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.prom")
	data := `sinks:
  - type: nop
  - type: prometheus
    conf:
      textfile: ` + path + `
`
	var cfg coremetrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	s, err := coremetrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, ok := s.(*coremetrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}

// Test decoding from JSON with an unknown sink option.
func TestMetricsConfigDecodeJSON_Invalid(t *testing.T) {
	data := `{"sinks":[{"type":"prometheus","conf":{"port":"9090"}}]}`
	var cfg coremetrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if _, err := coremetrics.NewMetricsSink(cfg.Sinks); err == nil {
		t.Fatalf("expected error for unknown option")
	}
	if s, err := coremetrics.NewMetricsSink(nil); err != nil {
		t.Fatalf("nil config: %v", err)
	} else if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}

func TestPrometheusSinkNeedsExposition(t *testing.T) {
	if _, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus"}}); err == nil {
		t.Fatal("expected error without textfile or listen")
	}
	conf := map[string]any{"textfile": filepath.Join(t.TempDir(), "m.prom"), "listen": "127.0.0.1:0"}
	if _, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus", Conf: conf}}); err == nil {
		t.Fatal("expected error for textfile and listen together")
	}
}
