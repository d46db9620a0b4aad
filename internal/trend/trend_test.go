package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avikko/wxpost/internal/datastore"
)

func samplesAt(now time.Time, pressures ...float64) []datastore.TrendSample {
	samples := make([]datastore.TrendSample, 0, len(pressures))
	step := time.Hour
	start := now.Add(-time.Duration(len(pressures)-1) * step)
	for i, p := range pressures {
		samples = append(samples, datastore.TrendSample{Time: start.Add(time.Duration(i) * step), Pressure: p})
	}
	return samples
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	window := 6 * time.Hour
	threshold := 1.0

	tests := []struct {
		name      string
		pressures []float64
		want      Trend
	}{
		{"no_samples", nil, TrendUnknown},
		{"single_sample", []float64{1013.0}, TrendUnknown},
		{"small_delta_steady", []float64{1013.0, 1013.2}, TrendSteady},
		{"rising", []float64{1000.0, 1002.0, 1005.0}, TrendRising},
		{"falling", []float64{1005.0, 1003.0, 1000.0}, TrendFalling},
		{"delta_exactly_at_threshold_rising", []float64{1013.0, 1014.0}, TrendRising},
		{"delta_exactly_at_negative_threshold_falling", []float64{1014.0, 1013.0}, TrendFalling},
		{"noisy_middle_ignored", []float64{1013.0, 1020.0, 1013.3}, TrendSteady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(samplesAt(now, tt.pressures...), window, threshold, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_WindowExcludesOldSamples(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	samples := []datastore.TrendSample{
		{Time: now.Add(-10 * time.Hour), Pressure: 980.0}, // outside the window
		{Time: now.Add(-2 * time.Hour), Pressure: 1013.0},
		{Time: now.Add(-1 * time.Hour), Pressure: 1013.3},
	}

	got := Classify(samples, 3*time.Hour, 1.0, now)
	assert.Equal(t, TrendSteady, got)
}

func TestClassify_OnlyOneSampleInWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	samples := []datastore.TrendSample{
		{Time: now.Add(-10 * time.Hour), Pressure: 980.0},
		{Time: now.Add(-1 * time.Hour), Pressure: 1013.0},
	}

	got := Classify(samples, 3*time.Hour, 1.0, now)
	assert.Equal(t, TrendUnknown, got)
}

func TestArrow(t *testing.T) {
	assert.Equal(t, "↑", TrendRising.Arrow())
	assert.Equal(t, "↓", TrendFalling.Arrow())
	assert.Equal(t, "→", TrendSteady.Arrow())
	assert.Equal(t, "", TrendUnknown.Arrow())
}
