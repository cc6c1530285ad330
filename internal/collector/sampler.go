// Package collector samples the local host into telemetry frames.
package collector

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/prometheus/procfs"

	"pulse/internal/models"
)

const (
	cpuAverageWindow     = 60 * time.Second
	networkAverageWindow = 30 * time.Second
	DefaultTopApps       = 10
)

// Inventory reports the container runtime state. The docker client satisfies
// it; a nil Inventory reports docker as unavailable.
type Inventory interface {
	Inventory(ctx context.Context) (bool, []models.Container, []models.Image)
}

type Sampler struct {
	fs        procfs.FS
	procRoot  string
	diskPath  string
	inventory Inventory
	log       *slog.Logger
	now       func() time.Time
	topApps   int

	prevCPU   *cpuTimes
	prevNet   *netReading
	prevProcs map[int]float64

	cpuAvg, rxAvg, txAvg *window
}

type netReading struct {
	rx, tx uint64
	at     time.Time
}

func NewSampler(procRoot string, inv Inventory, logger *slog.Logger) (*Sampler, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, err
	}
	return &Sampler{
		fs:        fs,
		procRoot:  procRoot,
		diskPath:  "/",
		inventory: inv,
		log:       logger,
		now:       time.Now,
		topApps:   DefaultTopApps,
		prevProcs: map[int]float64{},
		cpuAvg:    newWindow(cpuAverageWindow),
		rxAvg:     newWindow(networkAverageWindow),
		txAvg:     newWindow(networkAverageWindow),
	}, nil
}

// Sample takes one reading. Sources that fail report zero values and are
// logged at debug level; rates need two samples before they move off zero.
func (s *Sampler) Sample(ctx context.Context) models.Sample {
	now := s.now()
	out := models.Sample{Timestamp: now.UTC(), CPUCores: runtime.NumCPU()}

	var cpuDelta float64
	if cur, err := readCPU(s.fs); err != nil {
		s.log.Debug("read cpu", "err", err)
	} else {
		if s.prevCPU != nil {
			cpuDelta = cur.total - s.prevCPU.total
			if cpuDelta > 0 {
				out.CPU = clampPct(100 * (1 - (cur.idle-s.prevCPU.idle)/cpuDelta))
			}
		}
		s.prevCPU = &cur
	}

	if mem, swap, err := readMemory(s.fs); err != nil {
		s.log.Debug("read memory", "err", err)
	} else {
		out.Memory, out.Swap = clampPct(mem), clampPct(swap)
	}

	if disk, err := readDiskUsage(s.diskPath); err != nil {
		s.log.Debug("read disk", "err", err)
	} else {
		out.Disk = clampPct(disk)
	}

	if rx, tx, err := readNetBytes(s.fs); err != nil {
		s.log.Debug("read net", "err", err)
	} else {
		if p := s.prevNet; p != nil {
			if secs := now.Sub(p.at).Seconds(); secs > 0 && rx >= p.rx && tx >= p.tx {
				out.NetRx = float64(rx-p.rx) / 1024 / secs
				out.NetTx = float64(tx-p.tx) / 1024 / secs
			}
		}
		s.prevNet = &netReading{rx: rx, tx: tx, at: now}
	}

	if l1, l5, l15, err := readLoad(s.fs); err != nil {
		s.log.Debug("read load", "err", err)
	} else {
		out.Load1, out.Load5, out.Load15 = l1, l5, l15
	}

	if fds, err := readOpenFDs(s.procRoot); err != nil {
		s.log.Debug("read file-nr", "err", err)
	} else {
		out.OpenFDs = fds
	}

	socks := readSockets(s.fs)
	out.ListeningTCP, out.ListeningUDP = socks.listeningTCP, socks.listeningUDP
	out.Connections = socks.connections
	out.Domains = domainUsage(socks.peers, socks.connections, out.NetRx, out.NetTx)
	out.UniqueDomains = len(out.Domains)

	procs, err := readProcs(s.fs)
	if err != nil {
		s.log.Debug("read processes", "err", err)
	}
	out.Processes = len(procs)
	next := make(map[int]float64, len(procs))
	for _, p := range procs {
		out.Threads += p.threads
		next[p.pid] = p.cpuTime
	}
	out.Applications = topApplications(procs, s.prevProcs, cpuDelta, s.topApps)
	s.prevProcs = next

	out.CPUAvg = s.cpuAvg.add(now, out.CPU)
	out.NetRxAvg = s.rxAvg.add(now, out.NetRx)
	out.NetTxAvg = s.txAvg.add(now, out.NetTx)

	out.DockerContainers, out.DockerImages = []models.Container{}, []models.Image{}
	if s.inventory != nil {
		out.DockerAvailable, out.DockerContainers, out.DockerImages = s.inventory.Inventory(ctx)
	}
	return out
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
