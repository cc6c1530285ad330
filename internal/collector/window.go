package collector

import "time"

type point struct {
	at time.Time
	v  float64
}

// window averages the values recorded within the last span.
type window struct {
	span   time.Duration
	points []point
}

func newWindow(span time.Duration) *window { return &window{span: span} }

func (w *window) add(at time.Time, v float64) float64 {
	w.points = append(w.points, point{at: at, v: v})
	cut := 0
	for cut < len(w.points) && at.Sub(w.points[cut].at) > w.span {
		cut++
	}
	w.points = w.points[cut:]
	sum := 0.0
	for _, p := range w.points {
		sum += p.v
	}
	return sum / float64(len(w.points))
}
