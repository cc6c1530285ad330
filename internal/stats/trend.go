package stats

import (
	"fmt"
	"math"

	"pulse/internal/format"
	"pulse/internal/models"
)

type Unit string

const (
	UnitPercent Unit = "%"
	UnitCount   Unit = "count"
)

type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Steady Direction = "steady"
)

type Trend struct {
	Direction Direction `json:"direction"`
	Delta     float64   `json:"delta"`
	Magnitude string    `json:"magnitude,omitempty"`
	Label     string    `json:"label"`
}

// ComputeTrend compares key between the two most recent samples. It reports
// false when either sample is missing.
func ComputeTrend(latest, previous *models.Sample, key string, unit Unit) (Trend, bool) {
	if latest == nil || previous == nil {
		return Trend{}, false
	}
	cur, ok := latest.Metric(key)
	if !ok {
		return Trend{}, false
	}
	prev, _ := previous.Metric(key)
	delta := cur - prev

	threshold := 1.0
	if unit == UnitPercent {
		threshold = 0.1
	}
	if math.Abs(delta) < threshold {
		return Trend{Direction: Steady, Delta: delta, Label: "Stable vs last sample"}, true
	}

	dir, sign := Up, "+"
	if delta < 0 {
		dir, sign = Down, "-"
	}
	mag := magnitude(math.Abs(delta), unit)
	return Trend{
		Direction: dir,
		Delta:     delta,
		Magnitude: mag,
		Label:     fmt.Sprintf("%s%s vs last sample", sign, mag),
	}, true
}

func magnitude(v float64, unit Unit) string {
	if unit == UnitPercent {
		return format.Percent(v)
	}
	return format.Count(v)
}
