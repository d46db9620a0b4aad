package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
)

var stationIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// WundergroundResponse represents the PWS current observations response.
type WundergroundResponse struct {
	Observations []struct {
		StationID      string   `json:"stationID"`
		ObsTimeUtc     string   `json:"obsTimeUtc"`
		SolarRadiation *float64 `json:"solarRadiation"`
		UV             *float64 `json:"uv"`
		Winddir        *float64 `json:"winddir"`
		Humidity       *float64 `json:"humidity"`
		Metric         struct {
			Temp        *float64 `json:"temp"`
			HeatIndex   *float64 `json:"heatIndex"`
			Dewpt       *float64 `json:"dewpt"`
			WindChill   *float64 `json:"windChill"`
			WindSpeed   *float64 `json:"windSpeed"`
			WindGust    *float64 `json:"windGust"`
			Pressure    *float64 `json:"pressure"`
			PrecipRate  *float64 `json:"precipRate"`
			PrecipTotal *float64 `json:"precipTotal"`
		} `json:"metric"`
	} `json:"observations"`
}

// Fetch implements the Provider interface for WundergroundProvider. A personal
// weather station is the closest observation to the ground truth, so it normally sits
// first in the source priority order.
func (p *WundergroundProvider) Fetch(ctx context.Context, settings *conf.Settings) (*Reading, error) {
	apiKey := settings.Weather.Wunderground.APIKey
	stationID := settings.Weather.Wunderground.StationID
	if apiKey == "" || stationID == "" {
		return nil, errors.Newf("Wunderground API key or station ID not configured").
			Component("weather").
			Category(errors.CategoryConfiguration).
			Context("provider", wundergroundProviderName).
			Build()
	}
	if !stationIDRegex.MatchString(stationID) {
		return nil, errors.Newf("invalid Wunderground station ID format").
			Component("weather").
			Category(errors.CategoryConfiguration).
			Context("provider", wundergroundProviderName).
			Build()
	}

	u, err := url.Parse(settings.Weather.Wunderground.Endpoint)
	if err != nil {
		return nil, newWeatherError(err, errors.CategoryConfiguration, "parse_endpoint", wundergroundProviderName)
	}
	q := u.Query()
	q.Set("stationId", stationID)
	q.Set("format", "json")
	q.Set("units", "m")
	q.Set("numericPrecision", "decimal")
	q.Set("apiKey", apiKey)
	u.RawQuery = q.Encode()

	logger := weatherLogger.With("provider", wundergroundProviderName)
	logger.Info("fetching weather data", "station", stationID)

	req, err := http.NewRequest(http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, newWeatherError(err, errors.CategoryNetwork, "create_http_request", wundergroundProviderName)
	}

	body, err := fetchBody(ctx, p.breaker, req, wundergroundProviderName, logger)
	if err != nil {
		return nil, err
	}

	var wuResp WundergroundResponse
	if err := json.Unmarshal(body, &wuResp); err != nil {
		return nil, newWeatherError(err, errors.CategoryValidation, "unmarshal_weather_data", wundergroundProviderName)
	}

	if len(wuResp.Observations) == 0 {
		return nil, newWeatherError(
			fmt.Errorf("no observations returned from API"),
			errors.CategoryValidation,
			"validate_weather_response",
			wundergroundProviderName,
		)
	}

	reading := mapWundergroundResponseToReading(&wuResp)
	logger.Debug("mapped API response to reading", "station", stationID, "time", reading.Time)
	return reading, nil
}

// mapWundergroundResponseToReading converts the first observation into a Reading
// fragment. Wunderground metric wind arrives in km/h and is normalized to m/s here.
func mapWundergroundResponseToReading(wuResp *WundergroundResponse) *Reading {
	obs := wuResp.Observations[0]

	obsTime, err := time.Parse(time.RFC3339, obs.ObsTimeUtc)
	if err != nil {
		obsTime = time.Now().UTC()
	}

	reading := &Reading{
		Time:           obsTime,
		Station:        obs.StationID,
		Temperature:    obs.Metric.Temp,
		Dewpoint:       obs.Metric.Dewpt,
		Humidity:       obs.Humidity,
		WindDir:        obs.Winddir,
		Pressure:       obs.Metric.Pressure,
		RainRate:       obs.Metric.PrecipRate,
		RainTotal:      obs.Metric.PrecipTotal,
		UVIndex:        obs.UV,
		SolarRadiation: obs.SolarRadiation,
	}

	if obs.Metric.WindSpeed != nil {
		reading.WindSpeed = Float(*obs.Metric.WindSpeed * kmhToMs)
	}
	if obs.Metric.WindGust != nil {
		reading.WindGust = Float(*obs.Metric.WindGust * kmhToMs)
	}
	reading.FeelsLike = wundergroundFeelsLike(obs.Metric.Temp, obs.Metric.HeatIndex, obs.Metric.WindChill, reading.WindSpeed)

	return reading
}

// wundergroundFeelsLike picks heat index in the heat, wind chill in the cold with
// meaningful wind, and the plain temperature otherwise. The station reports both
// fields year-round so the selection has to happen client-side.
func wundergroundFeelsLike(temp, heatIndex, windChill, windSpeed *float64) *float64 {
	if temp == nil {
		return nil
	}
	switch {
	case *temp >= 27 && heatIndex != nil && *heatIndex != 0:
		return heatIndex
	case *temp <= 10 && windSpeed != nil && *windSpeed > 1.34 && windChill != nil && *windChill != 0:
		return windChill
	default:
		return temp
	}
}
