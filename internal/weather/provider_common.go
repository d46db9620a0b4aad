package weather

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
	"github.com/avikko/wxpost/internal/logging"
)

const (
	RequestTimeout     = 10 * time.Second
	UserAgent          = "wxpost https://github.com/avikko/wxpost"
	maxBodyPreviewSize = 200 // maximum characters to show in error logs
)

// Package-level logger for the weather sources and the aggregator.
var (
	weatherLogger   *slog.Logger
	weatherLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	weatherLevelVar.Set(slog.LevelInfo)
	weatherLogger, _, err = logging.NewFileLogger("logs/weather.log", "weather", weatherLevelVar)
	if err != nil {
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: weatherLevelVar})
		weatherLogger = slog.New(fbHandler).With("service", "weather")
	}
}

// Provider represents a single upstream weather source. Fetch returns a partial
// Reading fragment in metric units, or a typed failure via the error category.
// Implementations must not block past RequestTimeout.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, settings *conf.Settings) (*Reading, error)
}

// NewProvider builds a provider by its configured name.
func NewProvider(name string) (Provider, error) {
	switch name {
	case yrNoProviderName:
		return newYrNoProvider(), nil
	case openWeatherProviderName:
		return newOpenWeatherProvider(), nil
	case wundergroundProviderName:
		return newWundergroundProvider(), nil
	default:
		return nil, errors.Newf("invalid weather provider: %s", name).
			Component("weather").
			Category(errors.CategoryConfiguration).
			Context("provider", name).
			Build()
	}
}

// newBreaker builds the per-provider circuit breaker. After a run of consecutive
// failures the breaker opens and fetches fail fast until the cooldown elapses, which
// keeps a dead provider from stalling every firing.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// newWeatherError creates a standardized weather error with common fields.
func newWeatherError(err error, category errors.ErrorCategory, operation, provider string) error {
	return errors.New(err).
		Component("weather").
		Category(category).
		Context("operation", operation).
		Context("provider", provider).
		Build()
}

// categoryForStatus maps an HTTP status to the failure taxonomy.
func categoryForStatus(statusCode int) errors.ErrorCategory {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return errors.CategoryAuth
	case statusCode == http.StatusTooManyRequests:
		return errors.CategoryRateLimit
	case statusCode >= 500:
		return errors.CategoryNetwork
	default:
		return errors.CategoryNetwork
	}
}

// ClassifyFailure maps a provider error to the SourceResult failure taxonomy.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.HasCategory(err, errors.CategoryAuth):
		return FailureAuth
	case errors.HasCategory(err, errors.CategoryRateLimit):
		return FailureRateLimited
	case errors.HasCategory(err, errors.CategoryValidation):
		return FailureMalformed
	case errors.HasCategory(err, errors.CategoryTimeout):
		return FailureTimeout
	default:
		// Network errors and breaker-open conditions behave like timeouts for the
		// aggregator: skip the source, fall through to the next one.
		return FailureTimeout
	}
}

// fetchBody executes a GET through the provider's circuit breaker with a bounded
// timeout, returning the response body. Gzip responses are decompressed.
func fetchBody(ctx context.Context, breaker *gobreaker.CircuitBreaker, req *http.Request, provider string, logger *slog.Logger) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	req = req.WithContext(reqCtx)
	req.Header.Set("User-Agent", UserAgent)

	client := &http.Client{Timeout: RequestTimeout}

	result, err := breaker.Execute(func() (any, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			if reqCtx.Err() != nil {
				return nil, newWeatherError(execErr, errors.CategoryTimeout, "weather_api_request", provider)
			}
			return nil, newWeatherError(execErr, errors.CategoryNetwork, "weather_api_request", provider)
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				logger.Debug("failed to close response body", "error", closeErr)
			}
		}()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			preview := truncateBodyPreview(string(bodyBytes))
			logger.Warn("received non-OK status code", "status_code", resp.StatusCode, "response_body", preview)
			return nil, errors.New(fmt.Errorf("received non-OK response (%d)", resp.StatusCode)).
				Component("weather").
				Category(categoryForStatus(resp.StatusCode)).
				Context("operation", "weather_api_response").
				Context("provider", provider).
				Context("status_code", fmt.Sprintf("%d", resp.StatusCode)).
				Build()
		}

		body, readErr := readResponseBody(resp, provider, logger)
		if readErr != nil {
			return nil, readErr
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, newWeatherError(err, errors.CategoryNetwork, "circuit_breaker_open", provider)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, newWeatherError(fmt.Errorf("unexpected result type from circuit breaker"), errors.CategoryNetwork, "weather_api_request", provider)
	}
	return body, nil
}

// readResponseBody reads and optionally decompresses the response body.
func readResponseBody(resp *http.Response, provider string, logger *slog.Logger) ([]byte, error) {
	var reader io.Reader = resp.Body
	var gzReader *gzip.Reader

	if resp.Header.Get("Content-Encoding") == "gzip" {
		var err error
		gzReader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return nil, newWeatherError(err, errors.CategoryNetwork, "create_gzip_reader", provider)
		}
		reader = gzReader
	}

	body, err := io.ReadAll(reader)
	if gzReader != nil {
		if closeErr := gzReader.Close(); closeErr != nil {
			logger.Debug("failed to close gzip reader", "error", closeErr)
		}
	}
	if err != nil {
		return nil, newWeatherError(err, errors.CategoryNetwork, "read_response_body", provider)
	}
	return body, nil
}

// truncateBodyPreview truncates response body for logging.
func truncateBodyPreview(body string) string {
	if len(body) > maxBodyPreviewSize {
		return body[:maxBodyPreviewSize] + "... (truncated)"
	}
	return body
}

// Unit conversion constants.
const (
	kelvinOffset = 273.15
	mphToMs      = 0.44704
	kmhToMs      = 1.0 / 3.6
	inHgToHPa    = 33.8638866667
	inToMM       = 25.4
)

// KelvinToCelsius converts a temperature from Kelvin to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}

// FahrenheitToCelsius converts a temperature from Fahrenheit to Celsius.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32.0) * 5.0 / 9.0
}
