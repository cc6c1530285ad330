// Package health classifies samples into coarse statuses and records the
// transitions between them.
package health

import (
	"fmt"
	"math"
	"strings"
	"time"

	"pulse/internal/format"
	"pulse/internal/models"
	"pulse/internal/series"
)

const maxEvents = 10

type limits struct {
	cpu, memory, disk, loadPerCore float64
	connections                    int
}

var (
	criticalLimits = limits{cpu: 90, memory: 92, disk: 93, loadPerCore: 2, connections: 2000}
	warningLimits  = limits{cpu: 75, memory: 82, disk: 85, loadPerCore: 1.2, connections: 1200}
)

func (l limits) exceeded(s *models.Sample) bool {
	return s.CPU >= l.cpu ||
		s.Memory >= l.memory ||
		s.Disk >= l.disk ||
		LoadPerCore(s) >= l.loadPerCore ||
		s.Connections >= l.connections
}

// LoadPerCore divides the 1 minute load by the core count, treating a
// missing core count as one core.
func LoadPerCore(s *models.Sample) float64 {
	return s.Load1 / math.Max(float64(s.CPUCores), 1)
}

// Classify maps a sample onto a status. A nil sample is unknown.
func Classify(s *models.Sample) models.HealthStatus {
	switch {
	case s == nil:
		return models.StatusUnknown
	case criticalLimits.exceeded(s):
		return models.StatusCritical
	case warningLimits.exceeded(s):
		return models.StatusWarning
	}
	return models.StatusHealthy
}

var titles = map[models.HealthStatus]string{
	models.StatusHealthy:  "Healthy",
	models.StatusWarning:  "Warning",
	models.StatusCritical: "Critical",
	models.StatusUnknown:  "Offline",
}

var details = map[models.HealthStatus]string{
	models.StatusHealthy:  "All services are performing within the expected ranges.",
	models.StatusWarning:  "Resource utilisation is trending high – keep an eye on the load.",
	models.StatusCritical: "Immediate attention required. Investigate the affected nodes.",
	models.StatusUnknown:  "Awaiting live telemetry from the monitoring agents.",
}

func Title(s models.HealthStatus) string   { return titles[s] }
func Details(s models.HealthStatus) string { return details[s] }

// Describe summarizes the metrics an operator looks at first.
func Describe(s models.Sample) string {
	parts := []string{
		"CPU " + format.Percent(s.CPU),
		"Memory " + format.Percent(s.Memory),
		"Disk " + format.Percent(s.Disk),
		fmt.Sprintf("Load %s (1m)", format.Load(s.Load1)),
		fmt.Sprintf("Net ↓%s • ↑%s", format.Throughput(s.NetRx), format.Throughput(s.NetTx)),
		"Connections " + format.Count(float64(s.Connections)),
	}
	return strings.Join(parts, ", ")
}

// Tracker remembers the last status and keeps the most recent transitions.
// It is not safe for concurrent use.
type Tracker struct {
	loc      *time.Location
	current  models.HealthStatus
	previous models.HealthStatus
	events   *series.Capped[models.StatusEvent]
}

func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		loc:      loc,
		current:  models.StatusUnknown,
		previous: models.StatusUnknown,
		events:   series.NewCapped[models.StatusEvent](maxEvents),
	}
}

// Observe classifies s and returns the event emitted when the status changed.
func (t *Tracker) Observe(s models.Sample) (models.StatusEvent, bool) {
	status := Classify(&s)
	t.current = status
	if status == t.previous {
		return models.StatusEvent{}, false
	}
	t.previous = status
	ev := models.StatusEvent{
		ID:          fmt.Sprintf("%s-%d", status, s.Timestamp.UnixMilli()),
		Status:      status,
		Title:       Title(status),
		Description: Describe(s),
		Details:     Details(status),
		TimeLabel:   format.Clock(s.Timestamp.In(t.loc)),
		DetectedAt:  s.Timestamp,
	}
	t.events.Push(ev)
	return ev, true
}

func (t *Tracker) Status() models.HealthStatus { return t.current }

// Events returns recorded transitions, most recent first.
func (t *Tracker) Events() []models.StatusEvent { return t.events.Items() }
