// Package series holds the bounded in-memory collections behind the engine:
// the retention window of samples and head-inserted capped lists.
package series

import (
	"iter"
	"time"

	"pulse/internal/models"
)

// Capacity is the number of samples that fit in retention at one sample per
// interval, never less than one.
func Capacity(retention, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	n := int(retention / interval)
	if n < 1 {
		return 1
	}
	return n
}

// Buffer keeps the most recent samples in arrival order, oldest first.
// It is not safe for concurrent use; the engine serializes access.
type Buffer struct {
	capacity int
	samples  []models.Sample
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{capacity: capacity}
}

func (b *Buffer) Append(s models.Sample) {
	b.samples = append(b.samples, s)
	if over := len(b.samples) - b.capacity; over > 0 {
		b.samples[0] = models.Sample{}
		b.samples = b.samples[over:]
	}
}

// Resize changes the capacity and drops the oldest samples that no longer fit.
func (b *Buffer) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	b.capacity = capacity
	b.trim()
}

func (b *Buffer) trim() {
	if over := len(b.samples) - b.capacity; over > 0 {
		kept := make([]models.Sample, b.capacity)
		copy(kept, b.samples[over:])
		b.samples = kept
	}
}

func (b *Buffer) Latest() (models.Sample, bool) {
	if len(b.samples) == 0 {
		return models.Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

func (b *Buffer) Previous() (models.Sample, bool) {
	if len(b.samples) < 2 {
		return models.Sample{}, false
	}
	return b.samples[len(b.samples)-2], true
}

// All yields the stored samples in place, oldest first. The pointers are
// only valid until the next Append or Resize and must not be retained.
func (b *Buffer) All() iter.Seq[*models.Sample] {
	return func(yield func(*models.Sample) bool) {
		for i := range b.samples {
			if !yield(&b.samples[i]) {
				return
			}
		}
	}
}

// Samples returns a copy of the buffered samples, oldest first, for readers
// outside the engine lock.
func (b *Buffer) Samples() []models.Sample {
	out := make([]models.Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

func (b *Buffer) Len() int { return len(b.samples) }
func (b *Buffer) Cap() int { return b.capacity }
