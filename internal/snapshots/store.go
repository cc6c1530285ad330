// Package snapshots keeps a bounded, persisted history of frozen copies of
// the retention buffer.
package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pulse/internal/kv"
	"pulse/internal/models"
	"pulse/internal/series"
)

const (
	Key          = "monitoring.history.snapshots.v1"
	MaxSnapshots = 25
)

var (
	ErrEmptyBuffer = errors.New("no samples to snapshot")
	ErrNotFound    = errors.New("snapshot not found")
)

type Store struct {
	mu    sync.Mutex
	kv    kv.Store
	log   *slog.Logger
	items *series.Capped[models.Snapshot]
	now   func() time.Time
	newID func() string
}

func NewStore(store kv.Store, logger *slog.Logger) *Store {
	return &Store{
		kv:    store,
		log:   logger,
		items: series.NewCapped[models.Snapshot](MaxSnapshots),
		now:   time.Now,
		newID: func() string { return "snapshot-" + uuid.NewString() },
	}
}

// Load replaces the in-memory list with the persisted one. Missing or
// unreadable data leaves an empty list.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Clear()
	b, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("load snapshots", "err", err)
		}
		return
	}
	var list []models.Snapshot
	if err := json.Unmarshal(b, &list); err != nil {
		s.log.Warn("stored snapshots unreadable, starting empty", "err", err)
		return
	}
	s.items.Reset(list)
}

// Create freezes samples into a new snapshot at the head of the list and
// evicts the oldest beyond MaxSnapshots.
func (s *Store) Create(ctx context.Context, samples []models.Sample, latest models.Sample, stats models.Aggregates) (models.Snapshot, error) {
	if len(samples) == 0 {
		return models.Snapshot{}, ErrEmptyBuffer
	}
	snap := models.Snapshot{
		ID:          s.newID(),
		SavedAt:     s.now().UTC(),
		SampleCount: len(samples),
		Range: models.TimeRange{
			Start: samples[0].Timestamp,
			End:   samples[len(samples)-1].Timestamp,
		},
		Stats:        stats,
		Latest:       latest,
		Applications: latest.Applications,
		Domains:      latest.Domains,
		Samples:      samples,
	}.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.items.Push(snap) {
		s.log.Debug("snapshot evicted", "id", ev.ID)
	}
	s.persist(ctx)
	return snap.Clone(), nil
}

// Delete removes the snapshot with id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.items.RemoveFunc(func(v models.Snapshot) bool { return v.ID == id }) {
		return false
	}
	s.persist(ctx)
	return true
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Clear()
	s.persist(ctx)
}

// List returns deep copies, most recent first.
func (s *Store) List() []models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items.Items()
	for i := range items {
		items[i] = items[i].Clone()
	}
	return items
}

func (s *Store) Get(id string) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.items.Items() {
		if v.ID == id {
			return v.Clone(), nil
		}
	}
	return models.Snapshot{}, ErrNotFound
}

// Export renders snap as an indented JSON document named after its id.
func Export(snap models.Snapshot) (string, []byte, error) {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode snapshot %s: %w", snap.ID, err)
	}
	return snap.ID + ".json", b, nil
}

// persist writes the whole list in one Put. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	b, err := json.Marshal(s.items.Items())
	if err != nil {
		s.log.Error("encode snapshots", "err", err)
		return
	}
	if err := s.kv.Put(ctx, Key, b); err != nil {
		s.log.Warn("persist snapshots", "err", err)
	}
}
