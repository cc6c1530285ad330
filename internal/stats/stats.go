// Package stats derives rolling summaries and sample-to-sample trends from
// the retention buffer.
package stats

import (
	"iter"
	"math"

	"pulse/internal/models"
)

// Keys lists every metric summarized per pass.
var Keys = []string{
	"cpu", "memory", "disk", "connections",
	"load1", "load5", "load15",
	"netRx", "netTx", "swap",
	"processes", "threads",
	"listeningTcp", "listeningUdp", "openFds", "uniqueDomains",
	"netRxAvg", "netTxAvg", "cpuAvg",
}

// Aggregate summarizes samples for every key in Keys. Keys without finite
// values get an all-nil Summary.
func Aggregate(samples []models.Sample) models.Aggregates {
	return AggregateSeq(func(yield func(*models.Sample) bool) {
		for i := range samples {
			if !yield(&samples[i]) {
				return
			}
		}
	})
}

// AggregateSeq is Aggregate over an iterator, in a single pass and without
// copying samples.
func AggregateSeq(samples iter.Seq[*models.Sample]) models.Aggregates {
	acc := make([]accumulator, len(Keys))
	for s := range samples {
		for i, key := range Keys {
			if v, ok := s.Metric(key); ok {
				acc[i].add(v)
			}
		}
	}
	out := make(models.Aggregates, len(Keys))
	for i, key := range Keys {
		out[key] = acc[i].summary()
	}
	return out
}

type accumulator struct {
	sum, peak, low float64
	n              int
}

func (a *accumulator) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if a.n == 0 || v > a.peak {
		a.peak = v
	}
	if a.n == 0 || v < a.low {
		a.low = v
	}
	a.sum += v
	a.n++
}

func (a *accumulator) summary() models.Summary {
	if a.n == 0 {
		return models.Summary{}
	}
	avg, peak, low := a.sum/float64(a.n), a.peak, a.low
	return models.Summary{Avg: &avg, Peak: &peak, Min: &low}
}
