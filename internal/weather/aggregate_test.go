package weather

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avikko/wxpost/internal/cache"
	"github.com/avikko/wxpost/internal/conf"
)

func newTestAggregator(t *testing.T, settings *conf.Settings) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(settings, cache.New(settings.CacheTTL(), nil), nil)
	require.NoError(t, err)
	return agg
}

func TestAggregator_PriorityOrderWinsPerField(t *testing.T) {
	setupHTTPMock(t)
	registerResponder(t, testWundergroundEndpoint, http.StatusOK, wundergroundSuccessResponse())
	registerResponder(t, testYrNoEndpoint, http.StatusOK, yrNoSuccessResponse())

	settings := createTestSettings(t, []string{"wunderground", "yrno"})
	agg := newTestAggregator(t, settings)

	reading, results, err := agg.Aggregate(context.Background())

	require.NoError(t, err)
	require.NotNil(t, reading)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())

	// Both sources report temperature and UV; the first source wins.
	require.NotNil(t, reading.Temperature)
	assert.InDelta(t, 15.6, *reading.Temperature, 0.01)
	require.NotNil(t, reading.UVIndex)
	assert.InDelta(t, 4.0, *reading.UVIndex, 0.01)

	// Cloud cover only comes from the second source and fills the gap.
	require.NotNil(t, reading.CloudCover)
	assert.InDelta(t, 45.0, *reading.CloudCover, 0.01)

	// Station identity comes from the station observation.
	assert.Equal(t, "KTEST123", reading.Station)
}

func TestAggregator_FailedSourceFallsThrough(t *testing.T) {
	setupHTTPMock(t)
	registerResponder(t, testWundergroundEndpoint, http.StatusInternalServerError, "boom")
	registerResponder(t, testYrNoEndpoint, http.StatusOK, yrNoSuccessResponse())

	settings := createTestSettings(t, []string{"wunderground", "yrno"})
	agg := newTestAggregator(t, settings)

	reading, results, err := agg.Aggregate(context.Background())

	require.NoError(t, err)
	require.NotNil(t, reading)
	require.Len(t, results, 2)
	assert.False(t, results[0].OK())
	assert.Equal(t, FailureTimeout, results[0].Failure)
	assert.True(t, results[1].OK())

	require.NotNil(t, reading.Temperature)
	assert.InDelta(t, 15.4, *reading.Temperature, 0.01)
	// No source supplied a station name; the configured name fills it in.
	assert.Equal(t, "Testwatch", reading.Station)
}

func TestAggregator_AllSourcesFail(t *testing.T) {
	setupHTTPMock(t)
	registerResponder(t, testWundergroundEndpoint, http.StatusInternalServerError, "boom")
	registerResponder(t, testYrNoEndpoint, http.StatusServiceUnavailable, "down")

	settings := createTestSettings(t, []string{"wunderground", "yrno"})
	agg := newTestAggregator(t, settings)

	reading, results, err := agg.Aggregate(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDataAvailable)
	assert.Nil(t, reading)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.OK())
		assert.Error(t, r.Err)
	}
}

func TestAggregator_SnowSpecialistOverride(t *testing.T) {
	setupHTTPMock(t)
	registerResponder(t, testWundergroundEndpoint, http.StatusOK, wundergroundSuccessResponse())
	registerResponder(t, testOpenWeatherEndpoint, http.StatusOK, openWeatherSuccessResponse())

	settings := createTestSettings(t, []string{"wunderground", "openweather"})
	agg := newTestAggregator(t, settings)

	reading, _, err := agg.Aggregate(context.Background())

	require.NoError(t, err)
	// The specialist's snow values land even though it sits last in priority, while
	// its other fields lose to the first source as usual.
	require.NotNil(t, reading.SnowRate)
	assert.InDelta(t, 1.5, *reading.SnowRate, 0.001)
	require.NotNil(t, reading.SnowTotal)
	assert.InDelta(t, 4.0, *reading.SnowTotal, 0.001)
	require.NotNil(t, reading.Temperature)
	assert.InDelta(t, 15.6, *reading.Temperature, 0.01)
}

func TestApplySnowSpecialist(t *testing.T) {
	tests := []struct {
		name       string
		merged     *Reading
		specialist *Reading
		wantRate   *float64
		wantTotal  *float64
	}{
		{
			// The priority merge already settled on a general source's snow values;
			// the specialist displaces both.
			name:       "displaces_merged_values",
			merged:     &Reading{SnowRate: Float(0.2), SnowTotal: Float(1.0)},
			specialist: &Reading{SnowRate: Float(1.5), SnowTotal: Float(4.0)},
			wantRate:   Float(1.5),
			wantTotal:  Float(4.0),
		},
		{
			name:       "specialist_nil_fields_keep_merge",
			merged:     &Reading{SnowRate: Float(0.2), SnowTotal: Float(1.0)},
			specialist: &Reading{SnowTotal: Float(4.0)},
			wantRate:   Float(0.2),
			wantTotal:  Float(4.0),
		},
		{
			name:      "no_specialist_fragment",
			merged:    &Reading{SnowRate: Float(0.2)},
			wantRate:  Float(0.2),
			wantTotal: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applySnowSpecialist(tt.merged, tt.specialist)
			if tt.wantRate == nil {
				assert.Nil(t, tt.merged.SnowRate)
			} else {
				require.NotNil(t, tt.merged.SnowRate)
				assert.InDelta(t, *tt.wantRate, *tt.merged.SnowRate, 0.001)
			}
			if tt.wantTotal == nil {
				assert.Nil(t, tt.merged.SnowTotal)
			} else {
				require.NotNil(t, tt.merged.SnowTotal)
				assert.InDelta(t, *tt.wantTotal, *tt.merged.SnowTotal, 0.001)
			}
		})
	}
}

func TestAggregator_SecondAggregateServedFromCache(t *testing.T) {
	setupHTTPMock(t)
	registerResponder(t, testYrNoEndpoint, http.StatusOK, yrNoSuccessResponse())

	settings := createTestSettings(t, []string{"yrno"})
	agg := newTestAggregator(t, settings)

	_, _, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	_, _, err = agg.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestAggregator_FailedFetchNotCached(t *testing.T) {
	setupHTTPMock(t)
	registerResponder(t, testYrNoEndpoint, http.StatusInternalServerError, "boom")

	settings := createTestSettings(t, []string{"yrno"})
	agg := newTestAggregator(t, settings)

	_, _, err := agg.Aggregate(context.Background())
	require.Error(t, err)
	_, _, err = agg.Aggregate(context.Background())
	require.Error(t, err)

	// Both firings hit the network: failures are never cached.
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestMergeLeft(t *testing.T) {
	dst := &Reading{Temperature: Float(10), Station: "first"}
	src := &Reading{
		Temperature: Float(99),
		Pressure:    Float(1000),
		Sunrise:     Timeptr(time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)),
		MoonWaxing:  Bool(true),
		Station:     "second",
	}

	mergeLeft(dst, src)

	assert.InDelta(t, 10.0, *dst.Temperature, 0.001)
	assert.InDelta(t, 1000.0, *dst.Pressure, 0.001)
	assert.NotNil(t, dst.Sunrise)
	assert.NotNil(t, dst.MoonWaxing)
	assert.Equal(t, "first", dst.Station)
}
