// Package settings persists user-adjustable engine settings.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"pulse/internal/kv"
)

const (
	Key = "monitoring.settings.v1"

	DefaultRetentionDays = 7
	MinRetentionDays     = 1
	MaxRetentionDays     = 30
)

type Settings struct {
	RetentionDays int `json:"retentionDays"`
}

func Default() Settings {
	return Settings{RetentionDays: DefaultRetentionDays}
}

// ClampRetentionDays rounds v into [MinRetentionDays, MaxRetentionDays].
// Non-finite or non-positive input falls back to the default.
func ClampRetentionDays(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return DefaultRetentionDays
	}
	d := int(math.Round(v))
	if d < MinRetentionDays {
		return MinRetentionDays
	}
	if d > MaxRetentionDays {
		return MaxRetentionDays
	}
	return d
}

func (s Settings) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

func (s Settings) RetentionSeconds() int64 {
	return int64(s.RetentionDays) * 86400
}

type Store struct {
	kv       kv.Store
	log      *slog.Logger
	fallback Settings
}

func NewStore(store kv.Store, logger *slog.Logger) *Store {
	return &Store{kv: store, log: logger, fallback: Default()}
}

// WithDefaultRetention changes the retention Load falls back to when nothing
// valid is stored. days is clamped like any stored value.
func (s *Store) WithDefaultRetention(days int) *Store {
	s.fallback = Settings{RetentionDays: ClampRetentionDays(float64(days))}
	return s
}

// Load returns the persisted settings, or defaults when nothing valid is stored.
func (s *Store) Load(ctx context.Context) Settings {
	b, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("load settings", "err", err)
		}
		return s.fallback
	}
	var stored struct {
		RetentionDays *float64 `json:"retentionDays"`
	}
	if err := json.Unmarshal(b, &stored); err != nil || stored.RetentionDays == nil {
		s.log.Warn("stored settings unreadable, using defaults", "err", err)
		return s.fallback
	}
	return Settings{RetentionDays: ClampRetentionDays(*stored.RetentionDays)}
}

// Save persists settings. Failures are logged and otherwise ignored.
func (s *Store) Save(ctx context.Context, v Settings) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode settings", "err", err)
		return
	}
	if err := s.kv.Put(ctx, Key, b); err != nil {
		s.log.Warn("persist settings", "err", err)
	}
}
