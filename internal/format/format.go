// Package format renders metric values into the short labels used by health
// events, trends and insights.
package format

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// Count rounds v and groups thousands ("12,345").
func Count(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

func Load(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func LoadPerCore(load float64, cores int) string {
	return Load(load / math.Max(float64(cores), 1))
}

// Throughput formats a rate given in KB/s.
func Throughput(kbps float64) string {
	abs := math.Abs(kbps)
	switch {
	case abs >= 1024*1024:
		return fmt.Sprintf("%.2f GB/s", kbps/1024/1024)
	case abs >= 1024:
		return fmt.Sprintf("%.2f MB/s", kbps/1024)
	default:
		return fmt.Sprintf("%.1f KB/s", kbps)
	}
}

// Missing is rendered in place of a value that was never observed.
const Missing = "--"

func OptionalPercent(v *float64) string {
	if v == nil {
		return Missing
	}
	return Percent(*v)
}

func OptionalThroughput(v *float64) string {
	if v == nil {
		return Missing
	}
	return Throughput(*v)
}

// Clock renders the HH:MM:SS label shown next to samples and events.
func Clock(t time.Time) string {
	return t.Format("15:04:05")
}
