package series

import (
	"testing"
	"time"

	"pulse/internal/models"
)

func sampleAt(cpu float64) models.Sample {
	return models.Sample{CPU: cpu}
}

func TestCapacity(t *testing.T) {
	cases := []struct {
		retention, interval time.Duration
		want                int
	}{
		{7 * 24 * time.Hour, time.Second, 604800},
		{time.Minute, 10 * time.Second, 6},
		{time.Second, time.Minute, 1},
		{time.Hour, 0, 1},
	}
	for _, tc := range cases {
		if got := Capacity(tc.retention, tc.interval); got != tc.want {
			t.Fatalf("Capacity(%v, %v) got %d want %d", tc.retention, tc.interval, got, tc.want)
		}
	}
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Append(sampleAt(float64(i)))
		if b.Len() > b.Cap() {
			t.Fatalf("len %d exceeds cap %d", b.Len(), b.Cap())
		}
	}
	got := b.Samples()
	if len(got) != 3 || got[0].CPU != 3 || got[2].CPU != 5 {
		t.Fatalf("unexpected samples %+v", got)
	}
	latest, _ := b.Latest()
	prev, _ := b.Previous()
	if latest.CPU != 5 || prev.CPU != 4 {
		t.Fatalf("latest/previous got %v/%v want 5/4", latest.CPU, prev.CPU)
	}
}

func TestBufferResizeTruncatesImmediately(t *testing.T) {
	b := NewBuffer(10)
	for i := 1; i <= 10; i++ {
		b.Append(sampleAt(float64(i)))
	}
	b.Resize(4)
	got := b.Samples()
	if len(got) != 4 {
		t.Fatalf("len after shrink = %d, want 4", len(got))
	}
	if got[0].CPU != 7 || got[3].CPU != 10 {
		t.Fatalf("shrink should keep newest samples, got %+v", got)
	}
	b.Resize(0)
	if b.Cap() != 1 || b.Len() != 1 {
		t.Fatalf("capacity floor not applied: cap=%d len=%d", b.Cap(), b.Len())
	}
}

func TestBufferEmpty(t *testing.T) {
	b := NewBuffer(2)
	if _, ok := b.Latest(); ok {
		t.Fatal("empty buffer reported a latest sample")
	}
	b.Append(sampleAt(1))
	if _, ok := b.Previous(); ok {
		t.Fatal("single sample buffer reported a previous sample")
	}
}

func TestCappedEvictsFromTail(t *testing.T) {
	c := NewCapped[int](3)
	for i := 1; i <= 3; i++ {
		if ev := c.Push(i); ev != nil {
			t.Fatalf("unexpected eviction %v", ev)
		}
	}
	ev := c.Push(4)
	if len(ev) != 1 || ev[0] != 1 {
		t.Fatalf("evicted got %v want [1]", ev)
	}
	items := c.Items()
	if len(items) != 3 || items[0] != 4 || items[2] != 2 {
		t.Fatalf("items got %v want [4 3 2]", items)
	}
	if !c.RemoveFunc(func(v int) bool { return v == 3 }) {
		t.Fatal("remove existing item failed")
	}
	if c.RemoveFunc(func(v int) bool { return v == 99 }) {
		t.Fatal("remove reported success for missing item")
	}
	c.Reset([]int{9, 8, 7, 6, 5})
	if got := c.Items(); len(got) != 3 || got[0] != 9 {
		t.Fatalf("reset got %v", got)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len after clear = %d", c.Len())
	}
}

func TestBufferAllYieldsStoredSamples(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 4; i++ {
		b.Append(sampleAt(float64(i)))
	}
	var seen []float64
	for s := range b.All() {
		seen = append(seen, s.CPU)
		s.CPU *= 10
	}
	if len(seen) != 3 || seen[0] != 2 || seen[2] != 4 {
		t.Fatalf("All got %v want [2 3 4]", seen)
	}
	latest, _ := b.Latest()
	if latest.CPU != 40 {
		t.Fatalf("All should yield stored samples, latest got %v want 40", latest.CPU)
	}

	n := 0
	for range b.All() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("early break yielded %d samples", n)
	}
}
