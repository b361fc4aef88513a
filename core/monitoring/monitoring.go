// Package monitoring reports failures that should reach an operator even when
// nobody reads the logs.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic reports a recovered panic value. The caller re-panics.
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

// OrNop returns m, or NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}

// Event is one captured report.
type Event struct {
	Err   error
	Panic any
	Tags  map[string]string
}

// Recorder keeps captured reports in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Err: err, Tags: tags})
}

func (r *Recorder) CapturePanic(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Panic: v})
}

func (r *Recorder) Flush(time.Duration) {}

// Events returns a copy of the captured reports.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
