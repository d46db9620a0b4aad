package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
)

// YrResponse represents the structure of the Yr.no locationforecast response.
type YrResponse struct {
	Properties struct {
		Timeseries []YrTimestep `json:"timeseries"`
	} `json:"properties"`
}

// YrTimestep is one entry of the forecast timeseries.
type YrTimestep struct {
	Time time.Time `json:"time"`
	Data struct {
		Instant struct {
			Details struct {
				AirPressure    *float64 `json:"air_pressure_at_sea_level"`
				AirTemperature *float64 `json:"air_temperature"`
				CloudArea      *float64 `json:"cloud_area_fraction"`
				DewPoint       *float64 `json:"dew_point_temperature"`
				RelHumidity    *float64 `json:"relative_humidity"`
				UVIndex        *float64 `json:"ultraviolet_index_clear_sky"`
				WindSpeed      *float64 `json:"wind_speed"`
				WindDirection  *float64 `json:"wind_from_direction"`
				WindGust       *float64 `json:"wind_speed_of_gust"`
			} `json:"details"`
		} `json:"instant"`
		Next1Hours struct {
			Details struct {
				PrecipitationAmount *float64 `json:"precipitation_amount"`
			} `json:"details"`
		} `json:"next_1_hours"`
	} `json:"data"`
}

// Fetch implements the Provider interface for YrNoProvider.
func (p *YrNoProvider) Fetch(ctx context.Context, settings *conf.Settings) (*Reading, error) {
	apiURL := fmt.Sprintf("%s?lat=%.4f&lon=%.4f", settings.Weather.YrNo.Endpoint,
		settings.Station.Latitude,
		settings.Station.Longitude)

	logger := weatherLogger.With("provider", yrNoProviderName)
	logger.Info("fetching weather data", "url", apiURL)

	req, err := http.NewRequest(http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, newWeatherError(err, errors.CategoryNetwork, "create_http_request", yrNoProviderName)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	body, err := fetchBody(ctx, p.breaker, req, yrNoProviderName, logger)
	if err != nil {
		return nil, err
	}

	var response YrResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, newWeatherError(err, errors.CategoryValidation, "unmarshal_weather_data", yrNoProviderName)
	}

	if len(response.Properties.Timeseries) == 0 {
		return nil, newWeatherError(
			fmt.Errorf("no weather data available in timeseries"),
			errors.CategoryValidation,
			"validate_weather_response",
			yrNoProviderName,
		)
	}

	reading := mapYrResponseToReading(&response)
	logger.Debug("mapped API response to reading", "time", reading.Time)
	return reading, nil
}

// mapYrResponseToReading converts the first timestep into a Reading fragment.
// Yr.no reports metric units throughout, so values are carried over as-is.
func mapYrResponseToReading(response *YrResponse) *Reading {
	current := response.Properties.Timeseries[0]
	details := current.Data.Instant.Details

	return &Reading{
		Time:        current.Time,
		Temperature: details.AirTemperature,
		Dewpoint:    details.DewPoint,
		Humidity:    details.RelHumidity,
		WindSpeed:   details.WindSpeed,
		WindDir:     details.WindDirection,
		WindGust:    details.WindGust,
		Pressure:    details.AirPressure,
		CloudCover:  details.CloudArea,
		UVIndex:     details.UVIndex,
		// next_1_hours precipitation amount over one hour doubles as a rate in mm/h.
		RainRate: current.Data.Next1Hours.Details.PrecipitationAmount,
	}
}
