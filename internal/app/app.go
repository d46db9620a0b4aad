// Package app wires the pipeline stages together and runs the scheduler.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avikko/wxpost/internal/astro"
	"github.com/avikko/wxpost/internal/cache"
	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/datastore"
	"github.com/avikko/wxpost/internal/format"
	"github.com/avikko/wxpost/internal/logging"
	"github.com/avikko/wxpost/internal/observability/metrics"
	"github.com/avikko/wxpost/internal/publisher"
	"github.com/avikko/wxpost/internal/scheduler"
	"github.com/avikko/wxpost/internal/twitter"
	"github.com/avikko/wxpost/internal/weather"
)

// Run builds the full pipeline from settings and drives it in the given mode.
// It returns when the context is cancelled (live mode) or the requested preview
// completes.
func Run(ctx context.Context, settings *conf.Settings, mode scheduler.Mode) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return err
	}

	store := cache.New(settings.CacheTTL(), pipelineMetrics)

	aggregator, err := weather.NewAggregator(settings, store, pipelineMetrics)
	if err != nil {
		return err
	}

	ds, err := datastore.Open(settings.Datastore.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logging.Warn("failed to close datastore", "error", err)
		}
	}()

	astroCalc := astro.NewCalculator(settings.Station.Latitude, settings.Station.Longitude)
	renderer := format.New(settings.Post.Template, settings.Post.FallbackToken)

	// Preview modes never publish, so the posting client (and its credential
	// requirement) only applies to live runs.
	var client publisher.Client
	if mode == scheduler.ModeLive {
		twitterClient, err := twitter.New(settings.Twitter)
		if err != nil {
			return err
		}
		client = twitterClient
	}
	pub := publisher.New(client, settings.Publish, pipelineMetrics)

	pipeline := scheduler.NewPipeline(settings, aggregator, astroCalc, ds, renderer, pub)
	sched, err := scheduler.New(pipeline, settings, pipelineMetrics)
	if err != nil {
		return err
	}

	logging.Info("wxpost starting",
		"station", settings.Main.Name,
		"sources", settings.Weather.Sources,
		"fire_points", settings.Sched.FirePoints,
		"timezone", settings.Sched.Timezone)

	return sched.Run(ctx, mode)
}
