package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	runs      int
	shortages int
	err       error
}

func (r *recordSink) RecordRun(RunSummary) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordShortages([]ShortageEvent) error {
	r.shortages++
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunSummary) error {
	r.runs++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &runOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunSummary{RunID: "r"}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordShortages([]ShortageEvent{{Desk: "A"}}); err != nil {
		t.Fatalf("record shortages: %v", err)
	}
	if s1.runs != 1 || s2.runs != 1 || s1.shortages != 1 {
		t.Fatalf("records not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunSummary{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.runs != 0 {
		t.Fatal("second sink should not be called after an error")
	}
}

type closingSink struct {
	runOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(&runOnly{}, c)
	m.Close()
	if !c.closed {
		t.Fatal("closer sink not closed")
	}
}
