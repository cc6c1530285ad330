package collector

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"pulse/internal/models"
)

type cpuTimes struct {
	total float64
	idle  float64
}

func readCPU(fs procfs.FS) (cpuTimes, error) {
	st, err := fs.Stat()
	if err != nil {
		return cpuTimes{}, err
	}
	c := st.CPUTotal
	idle := c.Idle + c.Iowait
	busy := c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	return cpuTimes{total: idle + busy, idle: idle}, nil
}

// readMemory returns memory and swap usage in percent. A host without swap
// reports zero swap usage.
func readMemory(fs procfs.FS) (mem, swap float64, err error) {
	mi, err := fs.Meminfo()
	if err != nil {
		return 0, 0, err
	}
	if mi.MemTotal == nil || *mi.MemTotal == 0 {
		return 0, 0, errors.New("meminfo missing MemTotal")
	}
	total := float64(*mi.MemTotal)
	if mi.MemAvailable != nil {
		mem = 100 * (total - float64(*mi.MemAvailable)) / total
	}
	if mi.SwapTotal != nil && *mi.SwapTotal > 0 && mi.SwapFree != nil {
		st := float64(*mi.SwapTotal)
		swap = 100 * (st - float64(*mi.SwapFree)) / st
	}
	return mem, swap, nil
}

func readNetBytes(fs procfs.FS) (rx, tx uint64, err error) {
	dev, err := fs.NetDev()
	if err != nil {
		return 0, 0, err
	}
	for name, line := range dev {
		if name == "lo" {
			continue
		}
		rx += line.RxBytes
		tx += line.TxBytes
	}
	return rx, tx, nil
}

func readDiskUsage(path string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	total := float64(st.Blocks) * float64(st.Bsize)
	if total == 0 {
		return 0, nil
	}
	free := float64(st.Bavail) * float64(st.Bsize)
	return 100 * (total - free) / total, nil
}

func readLoad(fs procfs.FS) (l1, l5, l15 float64, err error) {
	la, err := fs.LoadAvg()
	if err != nil {
		return 0, 0, 0, err
	}
	return la.Load1, la.Load5, la.Load15, nil
}

// readOpenFDs reports allocated minus unused handles from sys/fs/file-nr.
func readOpenFDs(procRoot string) (int, error) {
	b, err := os.ReadFile(filepath.Join(procRoot, "sys", "fs", "file-nr"))
	if err != nil {
		return 0, err
	}
	parts := strings.Fields(string(b))
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid file-nr")
	}
	allocated, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	unused, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if allocated < unused {
		return 0, nil
	}
	return allocated - unused, nil
}

const (
	tcpListen      = 0x0A
	udpUnconnected = 0x07
)

func activeTCP(state uint64) bool {
	switch state {
	case 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x08, 0x09, 0x0B:
		return true
	}
	return false
}

type socketSummary struct {
	listeningTCP int
	listeningUDP int
	connections  int
	peers        map[string]int
}

// readSockets counts listeners and groups active TCP connections by remote
// address. Missing tables (no IPv6, restricted /proc) count as empty.
func readSockets(fs procfs.FS) socketSummary {
	sum := socketSummary{peers: map[string]int{}}
	for _, read := range []func() (procfs.NetTCP, error){fs.NetTCP, fs.NetTCP6} {
		lines, err := read()
		if err != nil {
			continue
		}
		for _, l := range lines {
			switch {
			case l.St == tcpListen:
				sum.listeningTCP++
			case activeTCP(l.St):
				sum.connections++
				sum.peers[peerName(l.RemAddr)]++
			}
		}
	}
	for _, read := range []func() (procfs.NetUDP, error){fs.NetUDP, fs.NetUDP6} {
		lines, err := read()
		if err != nil {
			continue
		}
		for _, l := range lines {
			if l.St == udpUnconnected {
				sum.listeningUDP++
			}
		}
	}
	return sum
}

func peerName(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// domainUsage spreads the host throughput over peers by connection share.
func domainUsage(peers map[string]int, total int, rx, tx float64) []models.DomainUsage {
	out := make([]models.DomainUsage, 0, len(peers))
	if total <= 0 {
		return out
	}
	for peer, n := range peers {
		ratio := float64(n) / float64(total)
		out = append(out, models.DomainUsage{
			Domain:       peer,
			Connections:  n,
			ReceiveRate:  rx * ratio,
			TransmitRate: tx * ratio,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Connections != out[j].Connections {
			return out[i].Connections > out[j].Connections
		}
		if out[i].ReceiveRate != out[j].ReceiveRate {
			return out[i].ReceiveRate > out[j].ReceiveRate
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

type procUsage struct {
	pid     int
	name    string
	cpuTime float64
	rssMB   float64
	threads int
}

func readProcs(fs procfs.FS) ([]procUsage, error) {
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, err
	}
	out := make([]procUsage, 0, len(procs))
	for _, p := range procs {
		st, err := p.Stat()
		if err != nil {
			// exited between listing and reading
			continue
		}
		out = append(out, procUsage{
			pid:     st.PID,
			name:    st.Comm,
			cpuTime: st.CPUTime(),
			rssMB:   float64(st.ResidentMemory()) / (1024 * 1024),
			threads: st.NumThreads,
		})
	}
	return out, nil
}

// topApplications ranks processes by CPU share since the previous sample,
// then resident memory, then pid.
func topApplications(procs []procUsage, prev map[int]float64, cpuDelta float64, limit int) []models.Application {
	apps := make([]models.Application, 0, len(procs))
	for _, p := range procs {
		pct := 0.0
		if last, ok := prev[p.pid]; ok && cpuDelta > 0 && p.cpuTime >= last {
			pct = 100 * (p.cpuTime - last) / cpuDelta
		}
		apps = append(apps, models.Application{PID: p.pid, Name: p.name, CPU: pct, MemoryMB: p.rssMB})
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].CPU != apps[j].CPU {
			return apps[i].CPU > apps[j].CPU
		}
		if apps[i].MemoryMB != apps[j].MemoryMB {
			return apps[i].MemoryMB > apps[j].MemoryMB
		}
		return apps[i].PID < apps[j].PID
	})
	if limit > 0 && len(apps) > limit {
		apps = apps[:limit]
	}
	return apps
}
