package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
)

// OpenWeatherResponse represents the current-weather endpoint response.
type OpenWeatherResponse struct {
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Pressure  *float64 `json:"pressure"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Clouds struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Rain struct {
		OneHour   *float64 `json:"1h"`
		ThreeHour *float64 `json:"3h"`
	} `json:"rain"`
	Snow struct {
		OneHour   *float64 `json:"1h"`
		ThreeHour *float64 `json:"3h"`
	} `json:"snow"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Dt int64 `json:"dt"`
}

// Fetch implements the Provider interface for OpenWeatherProvider. OpenWeather is
// the snow specialist: its snow rate/accumulation values take precedence in the merge.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, settings *conf.Settings) (*Reading, error) {
	if settings.Weather.OpenWeather.APIKey == "" {
		return nil, errors.Newf("OpenWeather API key not configured").
			Component("weather").
			Category(errors.CategoryConfiguration).
			Context("provider", openWeatherProviderName).
			Build()
	}

	u, err := url.Parse(settings.Weather.OpenWeather.Endpoint)
	if err != nil {
		return nil, newWeatherError(err, errors.CategoryConfiguration, "parse_endpoint", openWeatherProviderName)
	}
	q := u.Query()
	q.Set("lat", fmt.Sprintf("%.4f", settings.Station.Latitude))
	q.Set("lon", fmt.Sprintf("%.4f", settings.Station.Longitude))
	q.Set("units", "metric")
	q.Set("appid", settings.Weather.OpenWeather.APIKey)
	u.RawQuery = q.Encode()

	logger := weatherLogger.With("provider", openWeatherProviderName)
	logger.Info("fetching weather data")

	req, err := http.NewRequest(http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, newWeatherError(err, errors.CategoryNetwork, "create_http_request", openWeatherProviderName)
	}

	body, err := fetchBody(ctx, p.breaker, req, openWeatherProviderName, logger)
	if err != nil {
		return nil, err
	}

	var response OpenWeatherResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, newWeatherError(err, errors.CategoryValidation, "unmarshal_weather_data", openWeatherProviderName)
	}

	reading := mapOpenWeatherResponseToReading(&response)
	logger.Debug("mapped API response to reading", "time", reading.Time)
	return reading, nil
}

// mapOpenWeatherResponseToReading converts the response into a Reading fragment.
// The metric units parameter means temperatures arrive in °C and wind in m/s already.
func mapOpenWeatherResponseToReading(response *OpenWeatherResponse) *Reading {
	reading := &Reading{
		Time:        time.Unix(response.Dt, 0).UTC(),
		Temperature: response.Main.Temp,
		FeelsLike:   response.Main.FeelsLike,
		Humidity:    response.Main.Humidity,
		Pressure:    response.Main.Pressure,
		WindSpeed:   response.Wind.Speed,
		WindDir:     response.Wind.Deg,
		WindGust:    response.Wind.Gust,
		CloudCover:  response.Clouds.All,
		RainRate:    response.Rain.OneHour,
		SnowRate:    response.Snow.OneHour,
		SnowTotal:   response.Snow.ThreeHour,
	}
	if response.Sys.Sunrise > 0 {
		reading.Sunrise = Timeptr(time.Unix(response.Sys.Sunrise, 0).UTC())
	}
	if response.Sys.Sunset > 0 {
		reading.Sunset = Timeptr(time.Unix(response.Sys.Sunset, 0).UTC())
	}
	return reading
}
