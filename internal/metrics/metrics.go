// Package metrics exposes engine activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"pulse/internal/models"
	"pulse/internal/stream"
)

type Metrics struct {
	Frames          *prometheus.CounterVec
	Reconnects      prometheus.Counter
	ConnectionState *prometheus.GaugeVec
	HealthStatus    *prometheus.GaugeVec
	BufferedSamples prometheus.Gauge
	Snapshots       prometheus.Gauge
}

// New builds the collectors and registers them with reg. Collectors already
// registered by an earlier call are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "engine",
			Name:      "frames_total",
			Help:      "Telemetry frames received, by outcome",
		}, []string{"outcome"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Times the stream connection dropped and a retry was scheduled",
		}),
		ConnectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "stream",
			Name:      "connection_state",
			Help:      "1 for the current connection state, 0 otherwise",
		}, []string{"state"}),
		HealthStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "engine",
			Name:      "health_status",
			Help:      "1 for the current health status, 0 otherwise",
		}, []string{"status"}),
		BufferedSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "engine",
			Name:      "buffered_samples",
			Help:      "Samples currently held in the retention buffer",
		}),
		Snapshots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "engine",
			Name:      "snapshots",
			Help:      "Saved snapshots",
		}),
	}
	if reg == nil {
		return m
	}
	m.Frames = register(reg, m.Frames)
	m.Reconnects = register(reg, m.Reconnects)
	m.ConnectionState = register(reg, m.ConnectionState)
	m.HealthStatus = register(reg, m.HealthStatus)
	m.BufferedSamples = register(reg, m.BufferedSamples)
	m.Snapshots = register(reg, m.Snapshots)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) FrameApplied()  { m.Frames.WithLabelValues("applied").Inc() }
func (m *Metrics) FrameRejected() { m.Frames.WithLabelValues("rejected").Inc() }

// StreamState flips the one-hot connection gauge and counts drops.
func (m *Metrics) StreamState(s stream.State) {
	for _, st := range []stream.State{stream.Connecting, stream.Connected, stream.Disconnected} {
		v := 0.0
		if st == s {
			v = 1
		}
		m.ConnectionState.WithLabelValues(string(st)).Set(v)
	}
	if s == stream.Disconnected {
		m.Reconnects.Inc()
	}
}

func (m *Metrics) Health(s models.HealthStatus) {
	for _, st := range []models.HealthStatus{models.StatusUnknown, models.StatusHealthy, models.StatusWarning, models.StatusCritical} {
		v := 0.0
		if st == s {
			v = 1
		}
		m.HealthStatus.WithLabelValues(string(st)).Set(v)
	}
}
