package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/avikko/wxpost/internal/cache"
	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
	"github.com/avikko/wxpost/internal/observability/metrics"
)

// ErrNoDataAvailable is returned when every enabled source failed and no Reading
// could be constructed.
var ErrNoDataAvailable = errors.Newf("no weather data available from any source").
	Component("weather").
	Category(errors.CategoryNotFound).
	Build()

// Aggregator calls the enabled source adapters through the cache layer in priority
// order and reconciles their fragments into one canonical Reading.
type Aggregator struct {
	settings  *conf.Settings
	store     *cache.Store
	providers []Provider
	metrics   *metrics.PipelineMetrics
}

// NewAggregator builds the adapters named by settings.Weather.Sources, preserving
// their configured priority order.
func NewAggregator(settings *conf.Settings, store *cache.Store, pipelineMetrics *metrics.PipelineMetrics) (*Aggregator, error) {
	providers := make([]Provider, 0, len(settings.Weather.Sources))
	for _, name := range settings.Weather.Sources {
		p, err := NewProvider(name)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return &Aggregator{
		settings:  settings,
		store:     store,
		providers: providers,
		metrics:   pipelineMetrics,
	}, nil
}

// Aggregate produces the canonical Reading for this firing. Sources are evaluated
// sequentially in priority order; for each field the first source supplying a
// non-missing value wins. Later sources only fill fields still missing. Blending is
// deliberately avoided: providers disagree on definitions (e.g. "feels like") and an
// average of them is meaningless. Snow rate and accumulation are the one exception,
// taken preferentially from the configured snow specialist.
//
// If at least one source succeeds a best-effort Reading is returned with the
// remaining fields left nil. If every source fails, ErrNoDataAvailable.
func (a *Aggregator) Aggregate(ctx context.Context) (*Reading, []SourceResult, error) {
	results := make([]SourceResult, 0, len(a.providers))
	merged := &Reading{}
	anyOK := false
	var snowFragment *Reading

	for _, provider := range a.providers {
		result := a.fetchSource(ctx, provider)
		results = append(results, result)

		if !result.OK() {
			weatherLogger.Warn("source failed, falling through to next",
				"provider", result.SourceID,
				"failure", string(result.Failure),
				"error", result.Err,
			)
			continue
		}

		if !anyOK {
			merged.Time = result.Fragment.Time
		}
		anyOK = true
		mergeLeft(merged, result.Fragment)

		if provider.Name() == a.settings.Weather.SnowSource {
			snowFragment = result.Fragment
		}
	}

	if !anyOK {
		return nil, results, ErrNoDataAvailable
	}

	applySnowSpecialist(merged, snowFragment)

	if merged.Station == "" {
		merged.Station = a.settings.Main.Name
	}
	if merged.Time.IsZero() {
		merged.Time = time.Now().UTC()
	}

	a.metrics.UpdateReadingGauges(merged.Temperature, merged.Pressure, merged.WindSpeed)

	weatherLogger.Info("aggregated reading",
		"sources_ok", countOK(results),
		"sources_total", len(results),
		"time", merged.Time,
	)

	return merged, results, nil
}

// fetchSource calls one adapter through the cache layer, translating the outcome
// into a SourceResult. Failed fetches are never cached, so the next firing retries.
func (a *Aggregator) fetchSource(ctx context.Context, provider Provider) SourceResult {
	key := a.cacheKey(provider)
	start := time.Now()

	fragment, err := cache.GetOrFetch(a.store, key, a.settings.CacheTTL(), func() (*Reading, error) {
		return provider.Fetch(ctx, a.settings)
	})

	a.metrics.RecordSourceFetchDuration(provider.Name(), time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordSourceFetch(provider.Name(), "error")
		return SourceResult{
			SourceID:  provider.Name(),
			FetchedAt: time.Now().UTC(),
			Failure:   ClassifyFailure(err),
			Err:       err,
		}
	}

	a.metrics.RecordSourceFetch(provider.Name(), "success")
	return SourceResult{
		SourceID:  provider.Name(),
		FetchedAt: time.Now().UTC(),
		Fragment:  fragment,
	}
}

// cacheKey scopes cached observations by provider and query parameters so distinct
// stations and locations never collide.
func (a *Aggregator) cacheKey(provider Provider) string {
	location := fmt.Sprintf("%.4f,%.4f", a.settings.Station.Latitude, a.settings.Station.Longitude)
	if provider.Name() == wundergroundProviderName {
		return cache.Key(provider.Name(), "obs", a.settings.Weather.Wunderground.StationID)
	}
	return cache.Key(provider.Name(), "obs", location)
}

// applySnowSpecialist replaces the merged snow rate and accumulation with the
// specialist's signal, displacing values a higher-priority general source already
// supplied. Fields the specialist leaves nil keep whatever the merge produced.
func applySnowSpecialist(merged, specialist *Reading) {
	if specialist == nil {
		return
	}
	if specialist.SnowRate != nil {
		merged.SnowRate = specialist.SnowRate
	}
	if specialist.SnowTotal != nil {
		merged.SnowTotal = specialist.SnowTotal
	}
}

// mergeLeft fills every nil field of dst from src. dst fields already set win.
func mergeLeft(dst, src *Reading) {
	if dst.Station == "" {
		dst.Station = src.Station
	}

	coalesceFloat(&dst.Temperature, src.Temperature)
	coalesceFloat(&dst.FeelsLike, src.FeelsLike)
	coalesceFloat(&dst.Dewpoint, src.Dewpoint)
	coalesceFloat(&dst.Humidity, src.Humidity)
	coalesceFloat(&dst.WindSpeed, src.WindSpeed)
	coalesceFloat(&dst.WindDir, src.WindDir)
	coalesceFloat(&dst.WindGust, src.WindGust)
	coalesceFloat(&dst.Pressure, src.Pressure)
	coalesceFloat(&dst.CloudCover, src.CloudCover)
	coalesceFloat(&dst.RainRate, src.RainRate)
	coalesceFloat(&dst.RainTotal, src.RainTotal)
	coalesceFloat(&dst.SnowRate, src.SnowRate)
	coalesceFloat(&dst.SnowTotal, src.SnowTotal)
	coalesceFloat(&dst.UVIndex, src.UVIndex)
	coalesceFloat(&dst.SolarRadiation, src.SolarRadiation)
	coalesceFloat(&dst.MoonIllumination, src.MoonIllumination)

	if dst.Sunrise == nil {
		dst.Sunrise = src.Sunrise
	}
	if dst.Sunset == nil {
		dst.Sunset = src.Sunset
	}
	if dst.MoonWaxing == nil {
		dst.MoonWaxing = src.MoonWaxing
	}
}

func coalesceFloat(dst **float64, src *float64) {
	if *dst == nil {
		*dst = src
	}
}

func countOK(results []SourceResult) int {
	n := 0
	for _, r := range results {
		if r.OK() {
			n++
		}
	}
	return n
}
