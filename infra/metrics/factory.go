package metrics

import (
	"errors"

	"github.com/kilianp07/shiftmatch/core/factory"
	coremetrics "github.com/kilianp07/shiftmatch/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			Textfile string `json:"textfile"`
			Listen   string `json:"listen"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		switch {
		case c.Textfile != "" && c.Listen != "":
			return nil, errors.New("prometheus sink: textfile and listen are exclusive")
		case c.Textfile != "":
			return NewTextfileSink(c.Textfile)
		case c.Listen != "":
			return NewServedSink(c.Listen)
		default:
			return nil, errors.New("prometheus sink: textfile or listen is required")
		}
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
