package metrics

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the summary to all sinks, returning the first error.
func (m *MultiSink) RecordRun(s RunSummary) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordRun(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordShortages forwards to the sinks implementing ShortageRecorder.
func (m *MultiSink) RecordShortages(evs []ShortageEvent) error {
	for _, sink := range m.Sinks {
		if rec, ok := sink.(ShortageRecorder); ok {
			if err := rec.RecordShortages(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the sinks holding resources.
func (m *MultiSink) Close() {
	for _, sink := range m.Sinks {
		if c, ok := sink.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
