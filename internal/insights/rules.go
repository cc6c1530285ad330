package insights

import (
	"fmt"
	"strings"

	"pulse/internal/format"
	"pulse/internal/health"
	"pulse/internal/models"
)

func atLeast(v *float64, threshold float64) bool {
	return v != nil && *v >= threshold
}

func describeRange(avg, peak *float64) string {
	var pieces []string
	if avg != nil {
		pieces = append(pieces, "avg "+format.Percent(*avg))
	}
	if peak != nil {
		pieces = append(pieces, "peak "+format.Percent(*peak))
	}
	return strings.Join(pieces, " • ")
}

func orElse(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func cpuRule(in Input) (models.Insight, bool) {
	avg, peak := in.avg("cpu"), in.peak("cpu")
	if in.Latest == nil {
		if avg == nil {
			return models.Insight{
				ID:          "cpu-metrics-missing",
				Severity:    models.SeverityInfo,
				Title:       "CPU metrics unavailable",
				Description: "The collector did not provide CPU data. Verify that the agent process has permission to read /proc/stat or the equivalent API.",
				Actions:     []string{"Check the metrics agent configuration and ensure the host exposes CPU counters."},
			}, true
		}
		return models.Insight{}, false
	}
	cpu := in.Latest.CPU
	switch {
	case cpu >= 90 || atLeast(avg, 85):
		return models.Insight{
			ID:          "cpu-saturation-critical",
			Severity:    models.SeverityCritical,
			Title:       "CPU saturation is critical",
			Description: fmt.Sprintf("Current CPU usage is %s with %s over the session.", format.Percent(cpu), describeRange(avg, peak)),
			Actions: []string{
				"Capture a CPU profile or flame graph to pinpoint hotspots.",
				"Consider autoscaling the service or increasing CPU limits if the load is expected to continue.",
			},
		}, true
	case cpu >= 75 || atLeast(avg, 70):
		return models.Insight{
			ID:          "cpu-saturation-warning",
			Severity:    models.SeverityWarning,
			Title:       "CPU usage is trending high",
			Description: fmt.Sprintf("CPU currently sits at %s. %s", format.Percent(cpu), orElse(describeRange(avg, peak), "Collect more samples to determine a baseline.")),
			Actions: []string{
				"Review recent deploys or background jobs for CPU intensive work.",
				"Enable adaptive throttling or caching where possible.",
			},
		}, true
	}
	return models.Insight{}, false
}

func memoryRule(in Input) (models.Insight, bool) {
	if in.Latest == nil {
		return models.Insight{}, false
	}
	mem := in.Latest.Memory
	avg, peak := in.avg("memory"), in.peak("memory")
	switch {
	case mem >= 92 || atLeast(avg, 88):
		return models.Insight{
			ID:          "memory-critical",
			Severity:    models.SeverityCritical,
			Title:       "Memory pressure detected",
			Description: fmt.Sprintf("Memory usage is %s with %s recorded.", format.Percent(mem), describeRange(avg, peak)),
			Actions: []string{
				"Inspect heap allocations or enable leak detection tooling.",
				"Increase memory limits or add nodes to distribute the workload.",
			},
		}, true
	case mem >= 80 || atLeast(avg, 78):
		return models.Insight{
			ID:          "memory-warning",
			Severity:    models.SeverityWarning,
			Title:       "Memory utilisation is elevated",
			Description: fmt.Sprintf("Memory currently sits at %s with %s", format.Percent(mem), orElse(describeRange(avg, peak), "limited sampling history.")),
			Actions: []string{
				"Audit caches and buffer sizes.",
				"Check for unbounded data structures or unexpectedly large payloads.",
			},
		}, true
	}
	return models.Insight{}, false
}

func swapRule(in Input) (models.Insight, bool) {
	if in.Latest == nil {
		return models.Insight{}, false
	}
	swap := in.Latest.Swap
	switch {
	case swap >= 30:
		return models.Insight{
			ID:          "swap-critical",
			Severity:    models.SeverityCritical,
			Title:       "High swap usage detected",
			Description: fmt.Sprintf("Swap is at %s, indicating the system is paging heavily which will degrade latency.", format.Percent(swap)),
			Actions: []string{
				"Reduce memory pressure or provision faster storage for swap.",
				"Investigate runaway processes consuming memory.",
			},
		}, true
	case swap >= 10:
		return models.Insight{
			ID:          "swap-warning",
			Severity:    models.SeverityWarning,
			Title:       "Swap activity observed",
			Description: fmt.Sprintf("Swap usage reached %s. Paging can throttle performance under load.", format.Percent(swap)),
			Actions: []string{
				"Consider lowering JVM or runtime heap targets.",
				"Move ephemeral workloads with large memory footprints off this node.",
			},
		}, true
	}
	return models.Insight{}, false
}

func diskRule(in Input) (models.Insight, bool) {
	if in.Latest == nil {
		return models.Insight{}, false
	}
	disk := in.Latest.Disk
	peak := format.OptionalPercent(in.peak("disk"))
	switch {
	case disk >= 95:
		return models.Insight{
			ID:          "disk-critical",
			Severity:    models.SeverityCritical,
			Title:       "Disk capacity nearly exhausted",
			Description: fmt.Sprintf("Disk usage is %s (peak %s). Running out of disk will crash workloads and corrupt caches.", format.Percent(disk), peak),
			Actions: []string{
				"Purge unused artifacts or rotate logs immediately.",
				"Resize the volume or move stateful services to a larger disk.",
			},
		}, true
	case disk >= 80:
		return models.Insight{
			ID:          "disk-warning",
			Severity:    models.SeverityWarning,
			Title:       "Disk usage trending high",
			Description: fmt.Sprintf("Disk usage is %s with a session peak of %s.", format.Percent(disk), peak),
			Actions: []string{
				"Schedule log rotation and clean temporary directories.",
				"Project future growth and plan storage expansion.",
			},
		}, true
	}
	return models.Insight{}, false
}

func loadRule(in Input) (models.Insight, bool) {
	if in.Latest == nil {
		return models.Insight{}, false
	}
	perCore := health.LoadPerCore(in.Latest)
	label := format.LoadPerCore(in.Latest.Load1, in.Latest.CPUCores)
	switch {
	case perCore >= 1.5:
		return models.Insight{
			ID:          "load-critical",
			Severity:    models.SeverityCritical,
			Title:       "Run queue saturation",
			Description: fmt.Sprintf("1m load average per core is %s, suggesting CPU threads are over-scheduled.", label),
			Actions: []string{
				"Distribute work across additional instances.",
				"Investigate blocking I/O or locks that keep threads runnable.",
			},
		}, true
	case perCore >= 1.1:
		return models.Insight{
			ID:          "load-warning",
			Severity:    models.SeverityWarning,
			Title:       "High runnable thread count",
			Description: fmt.Sprintf("Load per core is %s. Sustained contention will lead to latency spikes.", label),
			Actions: []string{
				"Review thread pools and asynchronous queues.",
				"Ensure background jobs yield frequently.",
			},
		}, true
	}
	return models.Insight{}, false
}

const (
	heavyThroughput    = 1024 * 40
	criticalThroughput = 1024 * 120
)

func networkRule(in Input) (models.Insight, bool) {
	if in.Latest == nil {
		return models.Insight{}, false
	}
	rx, tx := in.Latest.NetRxAvg, in.Latest.NetTxAvg
	if rx < heavyThroughput && tx < heavyThroughput {
		return models.Insight{}, false
	}
	severity := models.SeverityWarning
	if rx >= criticalThroughput || tx >= criticalThroughput {
		severity = models.SeverityCritical
	}
	return models.Insight{
		ID:       "network-throughput",
		Severity: severity,
		Title:    "Network throughput is heavy",
		Description: fmt.Sprintf("Average 30s throughput is ↓%s • ↑%s (peaks ↓%s • ↑%s).",
			format.Throughput(rx), format.Throughput(tx),
			format.OptionalThroughput(in.peak("netRx")), format.OptionalThroughput(in.peak("netTx"))),
		Actions: []string{
			"Enable response compression or caching to cut bandwidth.",
			"Verify that bulk data transfers are scheduled during off-peak hours.",
		},
	}, true
}

func domainsRule(in Input) (models.Insight, bool) {
	if in.Latest == nil {
		return models.Insight{}, false
	}
	n := in.Latest.UniqueDomains
	switch {
	case n >= 300:
		return models.Insight{
			ID:          "domains-critical",
			Severity:    models.SeverityCritical,
			Title:       "Large external surface detected",
			Description: fmt.Sprintf("%s remote domains were contacted in the sampling window. This may indicate dependency sprawl or unexpected egress.", format.Count(float64(n))),
			Actions: []string{
				"Audit outbound traffic against allow-lists.",
				"Lock down network egress policies to limit exposure.",
			},
		}, true
	case n >= 150:
		return models.Insight{
			ID:          "domains-warning",
			Severity:    models.SeverityWarning,
			Title:       "High number of remote domains",
			Description: fmt.Sprintf("%s domains observed. Review for unnecessary third-party calls.", format.Count(float64(n))),
			Actions:     []string{"Instrument outbound requests with tracing to identify noisy integrations."},
		}, true
	}
	return models.Insight{}, false
}

func fdsRule(in Input) (models.Insight, bool) {
	if in.Latest == nil {
		return models.Insight{}, false
	}
	n := in.Latest.OpenFDs
	switch {
	case n >= 15000:
		return models.Insight{
			ID:          "fds-critical",
			Severity:    models.SeverityCritical,
			Title:       "File descriptor exhaustion risk",
			Description: fmt.Sprintf("%s file descriptors are open. Approaching system limits can crash services or block new connections.", format.Count(float64(n))),
			Actions: []string{
				"Increase ulimit values temporarily.",
				"Inspect for leaked sockets or file handles in application logs.",
			},
		}, true
	case n >= 8000:
		return models.Insight{
			ID:          "fds-warning",
			Severity:    models.SeverityWarning,
			Title:       "Open file descriptors rising",
			Description: fmt.Sprintf("%s descriptors in use.", format.Count(float64(n))),
			Actions:     []string{"Ensure HTTP clients and database drivers close connections promptly."},
		}, true
	}
	return models.Insight{}, false
}

func connectionsRule(in Input) (models.Insight, bool) {
	peak := in.peak("connections")
	if !atLeast(peak, 5000) {
		return models.Insight{}, false
	}
	severity := models.SeverityWarning
	if *peak >= 10000 {
		severity = models.SeverityCritical
	}
	return models.Insight{
		ID:          "connections-warning",
		Severity:    severity,
		Title:       "Connection load spike",
		Description: fmt.Sprintf("Peak concurrent connections reached %s during this session.", format.Count(*peak)),
		Actions: []string{
			"Scale the front-end load balancer or tune keep-alive timeouts.",
			"Ensure connection pooling is configured for downstream dependencies.",
		},
	}, true
}

func dockerRule(in Input) (models.Insight, bool) {
	if in.Latest != nil && in.Latest.DockerAvailable {
		return models.Insight{}, false
	}
	return models.Insight{
		ID:          "docker-unavailable",
		Severity:    models.SeverityInfo,
		Title:       "Docker telemetry unavailable",
		Description: "Docker CLI access is disabled, preventing container-level optimisation insights.",
		Actions:     []string{"Install Docker or grant the monitoring agent permission to access the Docker socket."},
	}, true
}

func applicationsRule(in Input) (models.Insight, bool) {
	if in.Latest == nil || len(in.Latest.Applications) == 0 {
		return models.Insight{
			ID:          "applications-missing",
			Severity:    models.SeverityInfo,
			Title:       "Process sampling incomplete",
			Description: "No process level metrics were reported. Without top processes it is harder to correlate resource spikes.",
			Actions: []string{
				"Ensure the agent can read /proc and is running with sufficient privileges.",
				"Enable per-process sampling in the configuration.",
			},
		}, true
	}
	busiest := in.Latest.Applications[0]
	for _, app := range in.Latest.Applications[1:] {
		if app.CPU > busiest.CPU {
			busiest = app
		}
	}
	if busiest.CPU < 50 {
		return models.Insight{}, false
	}
	severity := models.SeverityInfo
	if busiest.CPU >= 70 {
		severity = models.SeverityWarning
	}
	return models.Insight{
		ID:          "hot-process",
		Severity:    severity,
		Title:       fmt.Sprintf("%s is CPU heavy", orElse(busiest.Name, "Top process")),
		Description: fmt.Sprintf("%s is using %s CPU (PID %d).", orElse(busiest.Name, "A process"), format.Percent(busiest.CPU), busiest.PID),
		Actions: []string{
			"Profile this process for optimisation opportunities.",
			"Evaluate pinning the service to dedicated resources if the load is expected.",
		},
	}, true
}
