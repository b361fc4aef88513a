package metrics

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/shiftmatch/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromSinkRecordsRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	run := coremetrics.RunSummary{Strategy: "da", Assignments: 7, ShortSeats: 2, BreakOverrides: 1, Duration: time.Second}
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("record: %v", err)
	}
	run.CacheHit = true
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(s.runs.WithLabelValues("da", "miss")); got != 1 {
		t.Errorf("miss runs=%v", got)
	}
	if got := testutil.ToFloat64(s.runs.WithLabelValues("da", "hit")); got != 1 {
		t.Errorf("hit runs=%v", got)
	}
	if got := testutil.ToFloat64(s.assigned); got != 7 {
		t.Errorf("assigned=%v", got)
	}
	if got := testutil.ToFloat64(s.overrides); got != 2 {
		t.Errorf("overrides=%v", got)
	}

	if err := s.RecordShortages([]coremetrics.ShortageEvent{{Desk: "A", Missing: 2}, {Desk: "A", Missing: 1}}); err != nil {
		t.Fatalf("shortages: %v", err)
	}
	if got := testutil.ToFloat64(s.shortages.WithLabelValues("A")); got != 3 {
		t.Errorf("shortage seats=%v", got)
	}
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := a.RecordRun(coremetrics.RunSummary{Strategy: "da"}); err != nil {
		t.Fatal(err)
	}
	if err := b.RecordRun(coremetrics.RunSummary{Strategy: "da"}); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(b.runs.WithLabelValues("da", "miss")); got != 2 {
		t.Errorf("shared counter=%v", got)
	}
}

func TestTextfileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shiftmatch.prom")
	s, err := NewTextfileSink(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.RecordRun(coremetrics.RunSummary{Strategy: "greedy", Assignments: 3}); err != nil {
		t.Fatalf("record: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "shiftmatch_last_run_assignments 3") {
		t.Errorf("textfile missing gauge:\n%s", data)
	}
	if !strings.Contains(string(data), "matching_rounds_per_run_count") {
		t.Errorf("textfile missing matching collectors:\n%s", data)
	}
	if _, err := NewTextfileSink(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestServedSink(t *testing.T) {
	s, err := NewServedSink("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()
	if err := s.RecordRun(coremetrics.RunSummary{Strategy: "da", Assignments: 5}); err != nil {
		t.Fatalf("record: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"shiftmatch_last_run_assignments 5", "matching_rounds_per_run_count"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape missing %q:\n%s", want, body)
		}
	}

	s.Close()
	if _, err := http.Get("http://" + s.Addr() + "/metrics"); err == nil {
		t.Error("server still answering after Close")
	}
	if _, err := NewServedSink(""); err == nil {
		t.Error("expected error for empty address")
	}
}
