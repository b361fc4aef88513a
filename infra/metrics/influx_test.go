package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/shiftmatch/core/metrics"
)

func TestInfluxSink_RecordRun(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	run := coremetrics.RunSummary{
		RunID:          "run-1",
		Strategy:       "da",
		Horizon:        5,
		Assignments:    40,
		Unassigned:     3,
		Shortages:      2,
		ShortSeats:     3,
		BreakOverrides: 1,
		Points:         12.3456,
		Duration:       1500 * time.Millisecond,
		Time:           now,
	}
	if err := sink.RecordRun(run); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("planning_run").
		AddTag("run_id", "run-1").
		AddTag("strategy", "da").
		AddTag("cache_hit", "false").
		AddTag("component", "planner").
		AddField("horizon", 5).
		AddField("assignments", 40).
		AddField("unassigned", 3).
		AddField("shortages", 2).
		AddField("short_seats", 3).
		AddField("break_overrides", 1).
		AddField("points", 12.346).
		AddField("duration_ms", int64(1500)).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body:\n%s\nwant:\n%s", body, expected)
	}
}

func TestInfluxSink_RecordShortages(t *testing.T) {
	var lines []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		lines = append(lines, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	evs := []coremetrics.ShortageEvent{
		{RunID: "r", Desk: "A", Day: 0, Slot: "morning", Missing: 1, Time: now},
		{RunID: "r", Desk: "B", Day: 1, Slot: "night", Missing: 2, Forfeited: 1, Time: now},
	}
	if err := sink.RecordShortages(evs); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "desk_shortage,desk=B,run_id=r,slot=night") {
		t.Errorf("unexpected line %s", lines[1])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
