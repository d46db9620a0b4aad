package scheduler

import (
	"context"
	"time"

	"github.com/avikko/wxpost/internal/astro"
	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/datastore"
	"github.com/avikko/wxpost/internal/descriptors"
	"github.com/avikko/wxpost/internal/format"
	"github.com/avikko/wxpost/internal/publisher"
	"github.com/avikko/wxpost/internal/trend"
	"github.com/avikko/wxpost/internal/weather"
)

// Outcome is the result of one pipeline run. PostID and Attempts are zero for
// preview runs.
type Outcome struct {
	Text     string
	PostID   string
	Attempts int
}

// Pipeline wires one firing end to end: aggregate, enrich with ephemeris, persist,
// classify the pressure trend, derive descriptors, render, publish.
type Pipeline struct {
	settings   *conf.Settings
	aggregator *weather.Aggregator
	astroCalc  *astro.Calculator
	store      datastore.Interface
	renderer   *format.Renderer
	pub        *publisher.Publisher
}

// NewPipeline assembles a Pipeline from its already-constructed stages.
func NewPipeline(settings *conf.Settings, aggregator *weather.Aggregator, astroCalc *astro.Calculator, store datastore.Interface, renderer *format.Renderer, pub *publisher.Publisher) *Pipeline {
	return &Pipeline{
		settings:   settings,
		aggregator: aggregator,
		astroCalc:  astroCalc,
		store:      store,
		renderer:   renderer,
		pub:        pub,
	}
}

// RunOnce executes one firing. Persistence failures degrade (the post still goes
// out, the trend just has fewer samples); aggregation and publish failures abort.
func (p *Pipeline) RunOnce(ctx context.Context, now time.Time, preview bool) (*Outcome, error) {
	reading, results, err := p.aggregator.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		if !result.OK() {
			logger.Warn("source unavailable", "source", result.SourceID, "failure", result.Failure, "error", result.Err)
		}
	}

	p.enrichEphemeris(reading, now)

	if err := p.store.SaveReading(reading); err != nil {
		logger.Warn("failed to persist reading", "error", err)
	}

	pressureTrend := p.classifyTrend(now)
	descr := descriptors.Derive(reading, pressureTrend)
	text := p.renderer.Render(reading, descr)

	if preview {
		logger.Info("preview run complete", "text_length", len(text))
		return &Outcome{Text: text}, nil
	}

	result, err := p.pub.Publish(ctx, text, p.settings.Post.Media)
	if err != nil {
		return nil, err
	}
	return &Outcome{Text: text, PostID: result.PostID, Attempts: result.Attempts}, nil
}

// enrichEphemeris fills the sun and moon fields the sources did not supply.
// Computed ephemeris never overrides observed values.
func (p *Pipeline) enrichEphemeris(reading *weather.Reading, now time.Time) {
	if reading.Sunrise == nil || reading.Sunset == nil {
		sun, err := p.astroCalc.SunEventTimes(now)
		if err != nil {
			// Polar day/night; leave the fields unknown.
			logger.Debug("sun event calculation unavailable", "error", err)
		} else {
			if reading.Sunrise == nil {
				reading.Sunrise = weather.Timeptr(sun.Sunrise.In(now.Location()))
			}
			if reading.Sunset == nil {
				reading.Sunset = weather.Timeptr(sun.Sunset.In(now.Location()))
			}
		}
	}

	if reading.MoonIllumination == nil {
		moon := p.astroCalc.Moon(now)
		reading.MoonIllumination = weather.Float(moon.Illumination)
		reading.MoonWaxing = weather.Bool(moon.Waxing)
	}
}

// classifyTrend pulls the trailing pressure samples and classifies them. Any
// datastore failure degrades to an unknown trend.
func (p *Pipeline) classifyTrend(now time.Time) trend.Trend {
	window := p.settings.TrendWindow()
	samples, err := p.store.RecentPressure(window)
	if err != nil {
		logger.Warn("failed to load pressure history", "error", err)
		return trend.TrendUnknown
	}
	return trend.Classify(samples, window, p.settings.Trend.ThresholdHPa, now)
}
