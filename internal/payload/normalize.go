// Package payload turns loosely-typed telemetry frames into models.Sample.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pulse/internal/format"
	"pulse/internal/models"
)

var ErrNotObject = errors.New("frame is not a JSON object")

// Field aliases, first present non-null key wins.
var (
	cpuKeys          = []string{"cpu", "cpuUsage"}
	cpuAvgKeys       = []string{"cpuAvg", "cpuAverage", "cpuUsageAverage"}
	cpuCoresKeys     = []string{"cpuCores", "cpuCount"}
	memoryKeys       = []string{"memory", "memoryUsage"}
	swapKeys         = []string{"swap", "swapUsage"}
	diskKeys         = []string{"disk", "diskUsage"}
	load1Keys        = []string{"load1", "loadAverage1"}
	load5Keys        = []string{"load5", "loadAverage5"}
	load15Keys       = []string{"load15", "loadAverage15"}
	netRxKeys        = []string{"netRx", "networkReceiveRate"}
	netTxKeys        = []string{"netTx", "networkTransmitRate"}
	netRxAvgKeys     = []string{"netRxAvg", "networkReceiveRateAverage"}
	netTxAvgKeys     = []string{"netTxAvg", "networkTransmitRateAverage"}
	connectionsKeys  = []string{"connections", "activeConnections"}
	processesKeys    = []string{"processes", "processCount"}
	threadsKeys      = []string{"threads", "threadCount"}
	listeningTCPKeys = []string{"listeningTcp", "tcpListening"}
	listeningUDPKeys = []string{"listeningUdp", "udpListening"}
	openFDsKeys      = []string{"openFds", "openFileDescriptors"}
	uniqueDomKeys    = []string{"uniqueDomains", "domainCount"}
	dockerAvailKeys  = []string{"dockerAvailable", "docker"}
	containersKeys   = []string{"dockerContainers", "containers"}
	imagesKeys       = []string{"dockerImages", "images"}
	appsKeys         = []string{"applications", "topApplications"}
	domainsKeys      = []string{"domains", "domainUsage"}
	timestampKeys    = []string{"timestamp", "time"}

	appPIDKeys    = []string{"pid", "processId", "id"}
	appNameKeys   = []string{"name", "process"}
	appCPUKeys    = []string{"cpu", "cpuPercent", "cpuUsage"}
	appMemoryKeys = []string{"memoryMb", "memory", "memoryUsage"}

	domainNameKeys = []string{"domain", "host", "address"}
	domainConnKeys = []string{"connections", "count"}
	domainRxKeys   = []string{"receiveRate", "inbound"}
	domainTxKeys   = []string{"transmitRate", "outbound"}

	containerIDKeys     = []string{"id", "containerId", "Id"}
	containerNameKeys   = []string{"name", "Names", "container"}
	containerImageKeys  = []string{"image", "Image"}
	containerStatusKeys = []string{"status", "State", "Status"}

	imageRepoKeys = []string{"repository", "repo", "Repository"}
	imageTagKeys  = []string{"tag", "Tag"}
	imageIDKeys   = []string{"id", "imageId", "ID"}
	imageSizeKeys = []string{"size", "Size"}
)

// Normalizer maps raw frames onto the canonical sample shape.
type Normalizer struct {
	now func() time.Time
	loc *time.Location
}

// New returns a Normalizer rendering clock labels in loc (time.Local when nil).
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{now: time.Now, loc: loc}
}

// Decode parses a JSON frame and normalizes it.
func (n *Normalizer) Decode(data []byte) (models.Sample, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return models.Sample{}, fmt.Errorf("decode frame: %w", err)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return models.Sample{}, ErrNotObject
	}
	return n.Normalize(raw), nil
}

func (n *Normalizer) Normalize(raw map[string]any) models.Sample {
	ts, ok := toTime(first(raw, timestampKeys), n.loc)
	if !ok {
		ts = n.now().UTC()
	}
	return models.Sample{
		Timestamp: ts,
		Time:      format.Clock(ts.In(n.loc)),

		CPU:      toFloat(first(raw, cpuKeys)),
		CPUAvg:   toFloat(first(raw, cpuAvgKeys)),
		CPUCores: toCount(first(raw, cpuCoresKeys)),
		Memory:   toFloat(first(raw, memoryKeys)),
		Swap:     toFloat(first(raw, swapKeys)),
		Disk:     toFloat(first(raw, diskKeys)),

		Load1:  toFloat(first(raw, load1Keys)),
		Load5:  toFloat(first(raw, load5Keys)),
		Load15: toFloat(first(raw, load15Keys)),

		NetRx:    toFloat(first(raw, netRxKeys)),
		NetTx:    toFloat(first(raw, netTxKeys)),
		NetRxAvg: toFloat(first(raw, netRxAvgKeys)),
		NetTxAvg: toFloat(first(raw, netTxAvgKeys)),

		Connections:   toCount(first(raw, connectionsKeys)),
		Processes:     toCount(first(raw, processesKeys)),
		Threads:       toCount(first(raw, threadsKeys)),
		ListeningTCP:  toCount(first(raw, listeningTCPKeys)),
		ListeningUDP:  toCount(first(raw, listeningUDPKeys)),
		OpenFDs:       toCount(first(raw, openFDsKeys)),
		UniqueDomains: toCount(first(raw, uniqueDomKeys)),

		DockerAvailable:  toBool(first(raw, dockerAvailKeys)),
		DockerContainers: normalizeList(first(raw, containersKeys), normalizeContainer),
		DockerImages:     normalizeList(first(raw, imagesKeys), normalizeImage),
		Applications:     normalizeList(first(raw, appsKeys), normalizeApplication),
		Domains:          normalizeList(first(raw, domainsKeys), normalizeDomain),
	}
}

func first(raw map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// normalizeList applies fn to every object element and keeps the ones fn
// accepts. A non-list value yields an empty list.
func normalizeList[T any](v any, fn func(map[string]any) (T, bool)) []T {
	items, _ := v.([]any)
	out := make([]T, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := fn(obj); ok {
			out = append(out, t)
		}
	}
	return out
}

func normalizeApplication(raw map[string]any) (models.Application, bool) {
	app := models.Application{
		PID:      toCount(first(raw, appPIDKeys)),
		Name:     toString(first(raw, appNameKeys)),
		CPU:      toFloat(first(raw, appCPUKeys)),
		MemoryMB: toFloat(first(raw, appMemoryKeys)),
	}
	if app.Name == "" {
		if app.PID == 0 {
			return app, false
		}
		app.Name = fmt.Sprintf("PID %d", app.PID)
	}
	return app, true
}

func normalizeDomain(raw map[string]any) (models.DomainUsage, bool) {
	d := models.DomainUsage{
		Domain:       toString(first(raw, domainNameKeys)),
		Connections:  toCount(first(raw, domainConnKeys)),
		ReceiveRate:  toFloat(first(raw, domainRxKeys)),
		TransmitRate: toFloat(first(raw, domainTxKeys)),
	}
	return d, d.Domain != ""
}

func normalizeContainer(raw map[string]any) (models.Container, bool) {
	c := models.Container{
		ID:     toString(first(raw, containerIDKeys)),
		Name:   toString(first(raw, containerNameKeys)),
		Image:  toString(first(raw, containerImageKeys)),
		Status: toString(first(raw, containerStatusKeys)),
	}
	return c, c.ID != "" || c.Name != ""
}

func normalizeImage(raw map[string]any) (models.Image, bool) {
	img := models.Image{
		Repository: toString(first(raw, imageRepoKeys)),
		Tag:        toString(first(raw, imageTagKeys)),
		ID:         toString(first(raw, imageIDKeys)),
		Size:       toString(first(raw, imageSizeKeys)),
	}
	return img, img.ID != "" || img.Repository != ""
}
