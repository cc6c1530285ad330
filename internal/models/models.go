package models

import "time"

// Sample is one normalized telemetry reading. JSON names match the primary
// wire names so an encoded Sample normalizes back to itself.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Time      string    `json:"time"`

	CPU      float64 `json:"cpu"`
	CPUAvg   float64 `json:"cpuAvg"`
	CPUCores int     `json:"cpuCores"`
	Memory   float64 `json:"memory"`
	Swap     float64 `json:"swap"`
	Disk     float64 `json:"disk"`

	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`

	NetRx    float64 `json:"netRx"`
	NetTx    float64 `json:"netTx"`
	NetRxAvg float64 `json:"netRxAvg"`
	NetTxAvg float64 `json:"netTxAvg"`

	Connections   int `json:"connections"`
	Processes     int `json:"processes"`
	Threads       int `json:"threads"`
	ListeningTCP  int `json:"listeningTcp"`
	ListeningUDP  int `json:"listeningUdp"`
	OpenFDs       int `json:"openFds"`
	UniqueDomains int `json:"uniqueDomains"`

	DockerAvailable  bool          `json:"dockerAvailable"`
	DockerContainers []Container   `json:"dockerContainers"`
	DockerImages     []Image       `json:"dockerImages"`
	Applications     []Application `json:"applications"`
	Domains          []DomainUsage `json:"domains"`
}

type Container struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Status string `json:"status"`
}

type Image struct {
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
	ID         string `json:"id"`
	Size       string `json:"size"`
}

type Application struct {
	PID      int     `json:"pid"`
	Name     string  `json:"name"`
	CPU      float64 `json:"cpu"`
	MemoryMB float64 `json:"memoryMb"`
}

type DomainUsage struct {
	Domain       string  `json:"domain"`
	Connections  int     `json:"connections"`
	ReceiveRate  float64 `json:"receiveRate"`
	TransmitRate float64 `json:"transmitRate"`
}

// Metric returns the numeric field addressed by its wire name.
func (s *Sample) Metric(key string) (float64, bool) {
	switch key {
	case "cpu":
		return s.CPU, true
	case "cpuAvg":
		return s.CPUAvg, true
	case "cpuCores":
		return float64(s.CPUCores), true
	case "memory":
		return s.Memory, true
	case "swap":
		return s.Swap, true
	case "disk":
		return s.Disk, true
	case "load1":
		return s.Load1, true
	case "load5":
		return s.Load5, true
	case "load15":
		return s.Load15, true
	case "netRx":
		return s.NetRx, true
	case "netTx":
		return s.NetTx, true
	case "netRxAvg":
		return s.NetRxAvg, true
	case "netTxAvg":
		return s.NetTxAvg, true
	case "connections":
		return float64(s.Connections), true
	case "processes":
		return float64(s.Processes), true
	case "threads":
		return float64(s.Threads), true
	case "listeningTcp":
		return float64(s.ListeningTCP), true
	case "listeningUdp":
		return float64(s.ListeningUDP), true
	case "openFds":
		return float64(s.OpenFDs), true
	case "uniqueDomains":
		return float64(s.UniqueDomains), true
	}
	return 0, false
}

// Clone returns a copy that shares no slices with s.
func (s Sample) Clone() Sample {
	out := s
	out.DockerContainers = cloneSlice(s.DockerContainers)
	out.DockerImages = cloneSlice(s.DockerImages)
	out.Applications = cloneSlice(s.Applications)
	out.Domains = cloneSlice(s.Domains)
	return out
}

// cloneSlice copies in into a fresh non-nil slice so empty lists encode as [].
func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Summary holds avg/peak/min for one metric. All three are nil when the
// buffer held no finite value for it.
type Summary struct {
	Avg  *float64 `json:"avg"`
	Peak *float64 `json:"peak"`
	Min  *float64 `json:"min"`
}

type Aggregates map[string]Summary

func (a Aggregates) Clone() Aggregates {
	out := make(Aggregates, len(a))
	for k, v := range a {
		out[k] = Summary{Avg: copyFloat(v.Avg), Peak: copyFloat(v.Peak), Min: copyFloat(v.Min)}
	}
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type HealthStatus string

const (
	StatusUnknown  HealthStatus = "unknown"
	StatusHealthy  HealthStatus = "healthy"
	StatusWarning  HealthStatus = "warning"
	StatusCritical HealthStatus = "critical"
)

type StatusEvent struct {
	ID          string       `json:"id"`
	Status      HealthStatus `json:"status"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Details     string       `json:"details"`
	TimeLabel   string       `json:"timeLabel"`
	DetectedAt  time.Time    `json:"detectedAt"`
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
)

// Rank orders severities for display, highest first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

type Insight struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Snapshot struct {
	ID           string        `json:"id"`
	SavedAt      time.Time     `json:"savedAt"`
	SampleCount  int           `json:"sampleCount"`
	Range        TimeRange     `json:"range"`
	Stats        Aggregates    `json:"stats"`
	Latest       Sample        `json:"latestMetric"`
	Applications []Application `json:"applications"`
	Domains      []DomainUsage `json:"domains"`
	Samples      []Sample      `json:"metrics"`
}

// Clone deep-copies the snapshot so callers cannot mutate stored state.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Stats = s.Stats.Clone()
	out.Latest = s.Latest.Clone()
	out.Applications = cloneSlice(s.Applications)
	out.Domains = cloneSlice(s.Domains)
	out.Samples = make([]Sample, len(s.Samples))
	for i, m := range s.Samples {
		out.Samples[i] = m.Clone()
	}
	return out
}
