package health

import (
	"strings"
	"testing"
	"time"

	"pulse/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		s    models.Sample
		want models.HealthStatus
	}{
		{"idle", models.Sample{CPU: 10, Memory: 20, Disk: 30, Load1: 0.5, CPUCores: 4, Connections: 10}, models.StatusHealthy},
		{"cpu warning", models.Sample{CPU: 80, Memory: 50, Disk: 50, Load1: 1, CPUCores: 4, Connections: 100}, models.StatusWarning},
		{"memory critical", models.Sample{CPU: 10, Memory: 95}, models.StatusCritical},
		{"disk warning edge", models.Sample{Disk: 85}, models.StatusWarning},
		{"disk critical edge", models.Sample{Disk: 93}, models.StatusCritical},
		{"load per core with zero cores", models.Sample{Load1: 2.5}, models.StatusCritical},
		{"load per core spread", models.Sample{Load1: 5, CPUCores: 4}, models.StatusWarning},
		{"connections warning", models.Sample{Connections: 1200}, models.StatusWarning},
		{"connections critical", models.Sample{Connections: 2000}, models.StatusCritical},
	}
	for _, tc := range cases {
		if got := Classify(&tc.s); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
	if got := Classify(nil); got != models.StatusUnknown {
		t.Fatalf("nil sample got %s want unknown", got)
	}
}

func TestTrackerEmitsOnlyOnTransition(t *testing.T) {
	tr := NewTracker(time.UTC)
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	warn := models.Sample{Timestamp: base, CPU: 80}

	ev, ok := tr.Observe(warn)
	if !ok || ev.Status != models.StatusWarning {
		t.Fatalf("first warning should emit, got %+v ok=%v", ev, ok)
	}
	warn.Timestamp = base.Add(time.Second)
	if _, ok := tr.Observe(warn); ok {
		t.Fatal("repeated warning should not emit")
	}
	if n := len(tr.Events()); n != 1 {
		t.Fatalf("events = %d, want 1", n)
	}
	if ev.TimeLabel != "12:00:00" || ev.Title != "Warning" {
		t.Fatalf("unexpected event labels %+v", ev)
	}
	if !strings.HasPrefix(ev.ID, "warning-") {
		t.Fatalf("event id %q should start with status", ev.ID)
	}
	if !strings.Contains(ev.Description, "CPU 80.0%") {
		t.Fatalf("description %q should mention cpu", ev.Description)
	}

	if _, ok := tr.Observe(models.Sample{Timestamp: base.Add(2 * time.Second), CPU: 10}); !ok {
		t.Fatal("recovery to healthy should emit")
	}
	if got := tr.Events()[0].Status; got != models.StatusHealthy {
		t.Fatalf("most recent event got %s want healthy", got)
	}
}

func TestTrackerCapsEvents(t *testing.T) {
	tr := NewTracker(time.UTC)
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		cpu := 10.0
		if i%2 == 0 {
			cpu = 95
		}
		tr.Observe(models.Sample{Timestamp: base.Add(time.Duration(i) * time.Second), CPU: cpu})
	}
	events := tr.Events()
	if len(events) != maxEvents {
		t.Fatalf("events = %d, want %d", len(events), maxEvents)
	}
	if !events[0].DetectedAt.Equal(base.Add(24 * time.Second)) {
		t.Fatalf("newest event first, got %v", events[0].DetectedAt)
	}
}
