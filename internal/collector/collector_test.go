package collector

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"pulse/internal/models"
)

const netDevHeader = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
`

const tcpTable = `  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
   0: 0100007F:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 11111 1 0000000000000000 100 0 0 10 0
   1: 0100007F:C350 0500000A:01BB 01 00000000:00000000 00:00000000 00000000  1000        0 22222 1 0000000000000000 20 4 30 10 -1
   2: 0100007F:C351 0500000A:01BB 01 00000000:00000000 00:00000000 00000000  1000        0 33333 1 0000000000000000 20 4 30 10 -1
   3: 0100007F:C352 0101A8C0:0050 06 00000000:00000000 00:00000000 00000000  1000        0 44444 1 0000000000000000 20 4 30 10 -1
`

const udpTable = `   sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode ref pointer drops
    1: 00000000:0044 00000000:0000 07 00000000:00000000 00:00000000 00000000     0        0 12345 2 0000000000000000 0
`

func procStatLine(utime int) string {
	return "42 (worker) S 1 42 42 0 -1 4194560 1000 0 0 0 " + strconv.Itoa(utime) +
		" 50 0 0 20 0 3 0 12345 104857600 2560 4294967295 1 1 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0 0 0 0 0 0 0 0\n"
}

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	p := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeProc(t *testing.T, root string, cpuUser, cpuIdle, rx, tx, procUTime int) {
	t.Helper()
	writeFile(t, root, "stat", "cpu  "+strconv.Itoa(cpuUser)+" 0 100 "+strconv.Itoa(cpuIdle)+" 0 0 0 0 0 0\n"+
		"cpu0 "+strconv.Itoa(cpuUser)+" 0 100 "+strconv.Itoa(cpuIdle)+" 0 0 0 0 0 0\n"+
		"ctxt 100\nbtime 1700000000\nprocesses 10\nprocs_running 1\nprocs_blocked 0\n")
	writeFile(t, root, "meminfo", "MemTotal:       16000000 kB\nMemFree:         2000000 kB\nMemAvailable:    4000000 kB\nSwapTotal:       2000000 kB\nSwapFree:        1500000 kB\n")
	writeFile(t, root, "loadavg", "0.50 0.40 0.30 1/200 4242\n")
	writeFile(t, root, "net/dev", netDevHeader+
		"    lo: 5000 10 0 0 0 0 0 0 5000 10 0 0 0 0 0 0\n"+
		"  eth0: "+strconv.Itoa(rx)+" 100 0 0 0 0 0 0 "+strconv.Itoa(tx)+" 50 0 0 0 0 0 0\n")
	writeFile(t, root, "net/tcp", tcpTable)
	writeFile(t, root, "net/udp", udpTable)
	writeFile(t, root, "sys/fs/file-nr", "3200\t0\t9223372036854775807\n")
	writeFile(t, root, "42/stat", procStatLine(procUTime))
}

type fakeInventory struct{}

func (fakeInventory) Inventory(context.Context) (bool, []models.Container, []models.Image) {
	return true, []models.Container{{ID: "abc", Name: "web"}}, []models.Image{}
}

func TestSamplerReadsProcFixture(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 100, 800, 1024000, 512000, 150)

	s, err := NewSampler(root, fakeInventory{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	s.diskPath = root
	base := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	first := s.Sample(context.Background())
	if first.CPU != 0 || first.NetRx != 0 {
		t.Fatalf("first sample should have no rates, got cpu=%v rx=%v", first.CPU, first.NetRx)
	}
	if first.Memory != 75 || first.Swap != 25 {
		t.Fatalf("memory got %v swap %v", first.Memory, first.Swap)
	}
	if first.Load1 != 0.5 || first.Load15 != 0.3 {
		t.Fatalf("load got %v %v", first.Load1, first.Load15)
	}
	if first.OpenFDs != 3200 || first.ListeningTCP != 1 || first.ListeningUDP != 1 {
		t.Fatalf("fds=%d tcp=%d udp=%d", first.OpenFDs, first.ListeningTCP, first.ListeningUDP)
	}
	if first.Connections != 3 || first.UniqueDomains != 2 || first.Domains[0].Domain != "10.0.0.5" || first.Domains[0].Connections != 2 {
		t.Fatalf("connections=%d domains=%+v", first.Connections, first.Domains)
	}
	if first.Processes != 1 || first.Threads != 3 || first.Applications[0].Name != "worker" {
		t.Fatalf("processes=%d threads=%d apps=%+v", first.Processes, first.Threads, first.Applications)
	}
	if !first.DockerAvailable || len(first.DockerContainers) != 1 {
		t.Fatalf("docker inventory not applied: %+v", first.DockerContainers)
	}
	if first.Disk < 0 || first.Disk > 100 {
		t.Fatalf("disk got %v", first.Disk)
	}

	writeProc(t, root, 300, 1000, 1024000+20480, 512000+10240, 250)
	s.now = func() time.Time { return base.Add(2 * time.Second) }
	second := s.Sample(context.Background())
	// busy 2s of 4s elapsed
	if math.Abs(second.CPU-50) > 1e-9 {
		t.Fatalf("cpu got %v want 50", second.CPU)
	}
	if math.Abs(second.NetRx-10) > 1e-9 || math.Abs(second.NetTx-5) > 1e-9 {
		t.Fatalf("net rates got rx=%v tx=%v", second.NetRx, second.NetTx)
	}
	if math.Abs(second.CPUAvg-25) > 1e-9 || math.Abs(second.NetRxAvg-5) > 1e-9 {
		t.Fatalf("averages got cpu=%v rx=%v", second.CPUAvg, second.NetRxAvg)
	}
	if math.Abs(second.Applications[0].CPU-25) > 1e-9 {
		t.Fatalf("process cpu got %v want 25", second.Applications[0].CPU)
	}
	if math.Abs(second.Domains[0].ReceiveRate-10*2.0/3.0) > 1e-9 {
		t.Fatalf("domain rx share got %v", second.Domains[0].ReceiveRate)
	}
}

func TestSamplerToleratesMissingSources(t *testing.T) {
	s, err := NewSampler(t.TempDir(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	got := s.Sample(context.Background())
	if got.Memory != 0 || got.Connections != 0 || got.DockerAvailable {
		t.Fatalf("empty proc got %+v", got)
	}
	if got.Applications == nil || got.Domains == nil || got.DockerContainers == nil || got.DockerImages == nil {
		t.Fatal("lists must be empty, not nil")
	}
}

func TestWindowDropsOldPoints(t *testing.T) {
	w := newWindow(30 * time.Second)
	base := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	w.add(base, 100)
	if got := w.add(base.Add(10*time.Second), 50); got != 75 {
		t.Fatalf("avg got %v want 75", got)
	}
	if got := w.add(base.Add(31*time.Second), 20); got != 35 {
		t.Fatalf("avg after expiry got %v want 35", got)
	}
}

func TestTopApplicationsOrderingAndLimit(t *testing.T) {
	procs := []procUsage{
		{pid: 3, name: "idle", cpuTime: 1, rssMB: 5},
		{pid: 1, name: "busy", cpuTime: 4, rssMB: 1},
		{pid: 2, name: "fat", cpuTime: 1, rssMB: 50},
		{pid: 4, name: "new", cpuTime: 9, rssMB: 1},
	}
	prev := map[int]float64{1: 2, 2: 1, 3: 1}
	got := topApplications(procs, prev, 4, 3)
	if len(got) != 3 {
		t.Fatalf("limit not applied: %d", len(got))
	}
	if got[0].Name != "busy" || got[0].CPU != 50 {
		t.Fatalf("first got %+v", got[0])
	}
	if got[1].Name != "fat" || got[2].Name != "idle" {
		t.Fatalf("tie break got %s, %s", got[1].Name, got[2].Name)
	}
}
