// Package trend classifies the recent barometric pressure movement.
package trend

import (
	"time"

	"github.com/avikko/wxpost/internal/datastore"
)

// Trend is the coarse pressure movement vocabulary consumed by the formatter.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendSteady  Trend = "steady"
	TrendUnknown Trend = "unknown"
)

// Arrow returns the glyph used in rendered posts.
func (t Trend) Arrow() string {
	switch t {
	case TrendRising:
		return "↑"
	case TrendFalling:
		return "↓"
	case TrendSteady:
		return "→"
	default:
		return ""
	}
}

// Classify selects the samples within the trailing window ending at now and
// classifies the movement. Fewer than two samples in the window yields
// TrendUnknown. The classification is a threshold-banded difference between the
// newest and earliest sample, not a regression: the formatter consumes a coarse
// vocabulary and a full fit would over-read noisy short windows.
//
// Samples must be ordered by time ascending; the slice is never mutated.
func Classify(samples []datastore.TrendSample, window time.Duration, thresholdHPa float64, now time.Time) Trend {
	cutoff := now.Add(-window)

	first := -1
	last := -1
	for i := range samples {
		if samples[i].Time.Before(cutoff) || samples[i].Time.After(now) {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
	}

	if first == -1 || first == last {
		return TrendUnknown
	}

	// Steady only when the magnitude stays below the threshold; at or beyond it the
	// sign decides.
	delta := samples[last].Pressure - samples[first].Pressure
	switch {
	case delta >= thresholdHPa:
		return TrendRising
	case delta <= -thresholdHPa:
		return TrendFalling
	default:
		return TrendSteady
	}
}
