// Package engine owns the live analytics state. Frames are applied by a
// single writer; readers get copies.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pulse/internal/health"
	"pulse/internal/insights"
	"pulse/internal/metrics"
	"pulse/internal/models"
	"pulse/internal/payload"
	"pulse/internal/series"
	"pulse/internal/settings"
	"pulse/internal/snapshots"
	"pulse/internal/stats"
)

// KPIs are the metrics trended on every frame.
var KPIs = []struct {
	Key  string
	Unit stats.Unit
}{
	{"cpu", stats.UnitPercent},
	{"memory", stats.UnitPercent},
	{"disk", stats.UnitPercent},
	{"connections", stats.UnitCount},
}

type Options struct {
	Interval  time.Duration
	Location  *time.Location
	Settings  *settings.Store
	Snapshots *snapshots.Store
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Update is pushed to listeners after each applied frame.
type Update struct {
	Sample   models.Sample
	Health   models.HealthStatus
	Event    *models.StatusEvent
	Insights []models.Insight
}

type Engine struct {
	log        *slog.Logger
	interval   time.Duration
	normalizer *payload.Normalizer
	settings   *settings.Store
	snapshots  *snapshots.Store
	metrics    *metrics.Metrics

	mu       sync.RWMutex
	cfg      settings.Settings
	buffer   *series.Buffer
	stats    models.Aggregates
	tracker  *health.Tracker
	trends   map[string]stats.Trend
	insights []models.Insight

	lmu       sync.Mutex
	listeners []func(Update)
}

// New restores persisted settings and snapshots and returns an engine with an
// empty buffer sized for the stored retention.
func New(ctx context.Context, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	cfg := opts.Settings.Load(ctx)
	opts.Snapshots.Load(ctx)
	e := &Engine{
		log:        opts.Logger,
		interval:   opts.Interval,
		normalizer: payload.New(opts.Location),
		settings:   opts.Settings,
		snapshots:  opts.Snapshots,
		metrics:    opts.Metrics,
		cfg:        cfg,
		buffer:     series.NewBuffer(series.Capacity(cfg.Retention(), opts.Interval)),
		tracker:    health.NewTracker(opts.Location),
		trends:     map[string]stats.Trend{},
	}
	e.stats = stats.Aggregate(nil)
	e.insights = insights.Evaluate(insights.Input{Stats: e.stats})
	if e.metrics != nil {
		e.metrics.Health(models.StatusUnknown)
		e.metrics.Snapshots.Set(float64(len(e.snapshots.List())))
	}
	e.log.Info("engine ready", "retention_days", cfg.RetentionDays, "capacity", e.buffer.Cap())
	return e
}

// OnSample registers fn to receive every Update in frame order. fn runs on
// the ingest goroutine and must not block for long.
func (e *Engine) OnSample(fn func(Update)) {
	e.lmu.Lock()
	e.listeners = append(e.listeners, fn)
	e.lmu.Unlock()
}

// HandleFrame decodes and applies one raw frame. Malformed frames leave all
// state untouched.
func (e *Engine) HandleFrame(frame []byte) error {
	s, err := e.normalizer.Decode(frame)
	if err != nil {
		if e.metrics != nil {
			e.metrics.FrameRejected()
		}
		return err
	}
	e.apply(s)
	return nil
}

// Apply normalizes and applies an already decoded frame.
func (e *Engine) Apply(raw map[string]any) models.Sample {
	s := e.normalizer.Normalize(raw)
	e.apply(s)
	return s
}

func (e *Engine) apply(s models.Sample) {
	e.mu.Lock()
	e.buffer.Append(s)
	e.stats = stats.AggregateSeq(e.buffer.All())
	ev, changed := e.tracker.Observe(s)
	e.refreshTrends()
	e.insights = insights.Evaluate(insights.Input{Latest: &s, Stats: e.stats})
	u := Update{
		Sample:   s.Clone(),
		Health:   e.tracker.Status(),
		Insights: append([]models.Insight(nil), e.insights...),
	}
	if changed {
		u.Event = &ev
	}
	buffered := e.buffer.Len()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.FrameApplied()
		e.metrics.Health(u.Health)
		e.metrics.BufferedSamples.Set(float64(buffered))
	}
	if changed {
		e.log.Info("health status changed", "status", ev.Status, "details", ev.Description)
	}
	e.notify(u)
}

// refreshTrends recomputes KPI trends. Callers hold e.mu.
func (e *Engine) refreshTrends() {
	latest, ok := e.buffer.Latest()
	prev, okPrev := e.buffer.Previous()
	trends := make(map[string]stats.Trend, len(KPIs))
	if ok && okPrev {
		for _, k := range KPIs {
			if t, ok := stats.ComputeTrend(&latest, &prev, k.Key, k.Unit); ok {
				trends[k.Key] = t
			}
		}
	}
	e.trends = trends
}

func (e *Engine) notify(u Update) {
	e.lmu.Lock()
	listeners := append([]func(Update){}, e.listeners...)
	e.lmu.Unlock()
	for _, fn := range listeners {
		fn(u)
	}
}

func (e *Engine) Latest() (models.Sample, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.buffer.Latest()
	return s.Clone(), ok
}

func (e *Engine) Samples() []models.Sample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := e.buffer.Samples()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (e *Engine) Stats() models.Aggregates {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats.Clone()
}

func (e *Engine) Health() models.HealthStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tracker.Status()
}

func (e *Engine) Events() []models.StatusEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tracker.Events()
}

func (e *Engine) Insights() []models.Insight {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.copyInsights()
}

func (e *Engine) copyInsights() []models.Insight {
	out := make([]models.Insight, len(e.insights))
	for i, ins := range e.insights {
		ins.Actions = append([]string(nil), ins.Actions...)
		out[i] = ins
	}
	return out
}

func (e *Engine) Trends() map[string]stats.Trend {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.copyTrends()
}

func (e *Engine) copyTrends() map[string]stats.Trend {
	out := make(map[string]stats.Trend, len(e.trends))
	for k, v := range e.trends {
		out[k] = v
	}
	return out
}

// State is a consistent view of the engine taken after a single frame.
type State struct {
	Health      models.HealthStatus    `json:"health"`
	Latest      *models.Sample         `json:"latest"`
	Previous    *models.Sample         `json:"previous"`
	Stats       models.Aggregates      `json:"stats"`
	Trends      map[string]stats.Trend `json:"trends"`
	Events      []models.StatusEvent   `json:"events"`
	Insights    []models.Insight       `json:"insights"`
	SampleCount int                    `json:"sampleCount"`
	Capacity    int                    `json:"capacity"`
	Settings    settings.Settings      `json:"settings"`
}

// State copies every reader-visible field under one lock so the parts never
// come from different frames.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st := State{
		Health:      e.tracker.Status(),
		Stats:       e.stats.Clone(),
		Trends:      e.copyTrends(),
		Events:      e.tracker.Events(),
		Insights:    e.copyInsights(),
		SampleCount: e.buffer.Len(),
		Capacity:    e.buffer.Cap(),
		Settings:    e.cfg,
	}
	if s, ok := e.buffer.Latest(); ok {
		c := s.Clone()
		st.Latest = &c
	}
	if s, ok := e.buffer.Previous(); ok {
		c := s.Clone()
		st.Previous = &c
	}
	return st
}

// Capacity reports the buffer length and its current limit.
func (e *Engine) Capacity() (length, capacity int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buffer.Len(), e.buffer.Cap()
}

func (e *Engine) Settings() settings.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// SetRetentionDays clamps days, shrinks or grows the buffer before returning
// and persists the new value.
func (e *Engine) SetRetentionDays(ctx context.Context, days float64) settings.Settings {
	cfg := settings.Settings{RetentionDays: settings.ClampRetentionDays(days)}

	e.mu.Lock()
	e.cfg = cfg
	e.buffer.Resize(series.Capacity(cfg.Retention(), e.interval))
	e.stats = stats.AggregateSeq(e.buffer.All())
	var latest *models.Sample
	if s, ok := e.buffer.Latest(); ok {
		latest = &s
	}
	e.refreshTrends()
	e.insights = insights.Evaluate(insights.Input{Latest: latest, Stats: e.stats})
	capacity, buffered := e.buffer.Cap(), e.buffer.Len()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.BufferedSamples.Set(float64(buffered))
	}
	e.log.Info("retention updated", "retention_days", cfg.RetentionDays, "capacity", capacity)
	e.settings.Save(ctx, cfg)
	return cfg
}

// SaveSnapshot freezes the current buffer. It fails with
// snapshots.ErrEmptyBuffer before the first sample.
func (e *Engine) SaveSnapshot(ctx context.Context) (models.Snapshot, error) {
	e.mu.RLock()
	samples := e.buffer.Samples()
	latest, _ := e.buffer.Latest()
	agg := e.stats.Clone()
	e.mu.RUnlock()

	snap, err := e.snapshots.Create(ctx, samples, latest, agg)
	if err != nil {
		return models.Snapshot{}, err
	}
	e.snapshotsChanged()
	return snap, nil
}

func (e *Engine) DeleteSnapshot(ctx context.Context, id string) bool {
	ok := e.snapshots.Delete(ctx, id)
	e.snapshotsChanged()
	return ok
}

func (e *Engine) ClearSnapshots(ctx context.Context) {
	e.snapshots.Clear(ctx)
	e.snapshotsChanged()
}

func (e *Engine) Snapshots() []models.Snapshot {
	return e.snapshots.List()
}

func (e *Engine) Snapshot(id string) (models.Snapshot, error) {
	return e.snapshots.Get(id)
}

// ExportSnapshot returns the download filename and JSON body for id.
func (e *Engine) ExportSnapshot(id string) (string, []byte, error) {
	snap, err := e.snapshots.Get(id)
	if err != nil {
		return "", nil, err
	}
	return snapshots.Export(snap)
}

func (e *Engine) snapshotsChanged() {
	if e.metrics != nil {
		e.metrics.Snapshots.Set(float64(len(e.snapshots.List())))
	}
}
