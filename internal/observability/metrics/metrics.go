// Package metrics provides Prometheus metrics for the posting pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for fetch, cache and publish operations.
// A nil *PipelineMetrics is valid; every method is a no-op on it.
type PipelineMetrics struct {
	registry *prometheus.Registry

	sourceFetchesTotal    *prometheus.CounterVec
	sourceFetchDuration   *prometheus.HistogramVec
	cacheRequestsTotal    *prometheus.CounterVec
	publishAttemptsTotal  *prometheus.CounterVec
	firingsTotal          *prometheus.CounterVec
	readingTemperature    prometheus.Gauge
	readingPressure       prometheus.Gauge
	readingWindSpeed      prometheus.Gauge
}

// NewPipelineMetrics creates and registers pipeline metrics on the given registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}

	m.sourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxpost_source_fetches_total",
			Help: "Total number of weather source fetch operations",
		},
		[]string{"provider", "status"}, // status: success, error
	)
	m.sourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wxpost_source_fetch_duration_seconds",
			Help:    "Time taken to fetch weather data from a source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider"},
	)
	m.cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxpost_cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"outcome"}, // hit, miss
	)
	m.publishAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxpost_publish_attempts_total",
			Help: "Total number of post publish attempts",
		},
		[]string{"status"}, // success, transient_error, fatal_error
	)
	m.firingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxpost_scheduler_firings_total",
			Help: "Total number of scheduled pipeline firings",
		},
		[]string{"outcome"}, // published, preview, failed
	)
	m.readingTemperature = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wxpost_reading_temperature_celsius",
		Help: "Temperature of the most recent aggregated reading",
	})
	m.readingPressure = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wxpost_reading_pressure_hpa",
		Help: "Pressure of the most recent aggregated reading",
	})
	m.readingWindSpeed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wxpost_reading_wind_speed_ms",
		Help: "Wind speed of the most recent aggregated reading",
	})

	collectors := []prometheus.Collector{
		m.sourceFetchesTotal,
		m.sourceFetchDuration,
		m.cacheRequestsTotal,
		m.publishAttemptsTotal,
		m.firingsTotal,
		m.readingTemperature,
		m.readingPressure,
		m.readingWindSpeed,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordSourceFetch records a fetch outcome for a provider.
func (m *PipelineMetrics) RecordSourceFetch(provider, status string) {
	if m == nil {
		return
	}
	m.sourceFetchesTotal.WithLabelValues(provider, status).Inc()
}

// RecordSourceFetchDuration records fetch latency in seconds.
func (m *PipelineMetrics) RecordSourceFetchDuration(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.sourceFetchDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordCacheHit records a cache hit.
func (m *PipelineMetrics) RecordCacheHit(string) {
	if m == nil {
		return
	}
	m.cacheRequestsTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache miss.
func (m *PipelineMetrics) RecordCacheMiss(string) {
	if m == nil {
		return
	}
	m.cacheRequestsTotal.WithLabelValues("miss").Inc()
}

// RecordPublishAttempt records one publish attempt outcome.
func (m *PipelineMetrics) RecordPublishAttempt(status string) {
	if m == nil {
		return
	}
	m.publishAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordFiring records the outcome of a scheduled firing.
func (m *PipelineMetrics) RecordFiring(outcome string) {
	if m == nil {
		return
	}
	m.firingsTotal.WithLabelValues(outcome).Inc()
}

// UpdateReadingGauges publishes the headline fields of the latest reading.
// Nil pointers leave the corresponding gauge untouched.
func (m *PipelineMetrics) UpdateReadingGauges(temperature, pressure, windSpeed *float64) {
	if m == nil {
		return
	}
	if temperature != nil {
		m.readingTemperature.Set(*temperature)
	}
	if pressure != nil {
		m.readingPressure.Set(*pressure)
	}
	if windSpeed != nil {
		m.readingWindSpeed.Set(*windSpeed)
	}
}
