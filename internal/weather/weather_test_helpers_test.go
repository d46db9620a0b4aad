package weather

import (
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/avikko/wxpost/internal/conf"
)

const (
	testYrNoEndpoint         = "https://api.met.no/weatherapi/locationforecast/2.0/compact"
	testOpenWeatherEndpoint  = "https://api.openweathermap.org/data/2.5/weather"
	testWundergroundEndpoint = "https://api.weather.com/v2/pws/observations/current"
)

// setupHTTPMock activates httpmock for the duration of the test.
func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

// createTestSettings creates test settings with configurable source order.
func createTestSettings(t *testing.T, sources []string, opts ...func(*conf.Settings)) *conf.Settings {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "Testwatch"
	settings.Station = conf.StationSettings{
		Latitude:  60.1699, // Helsinki
		Longitude: 24.9384,
	}
	settings.Weather = conf.WeatherSettings{
		Sources:         sources,
		SnowSource:      "openweather",
		CacheTTLMinutes: 10,
	}
	settings.Weather.OpenWeather.APIKey = "test-api-key"
	settings.Weather.OpenWeather.Endpoint = testOpenWeatherEndpoint
	settings.Weather.Wunderground.APIKey = "test-api-key"
	settings.Weather.Wunderground.StationID = "KTEST123"
	settings.Weather.Wunderground.Endpoint = testWundergroundEndpoint
	settings.Weather.YrNo.Endpoint = testYrNoEndpoint

	for _, opt := range opts {
		opt(settings)
	}

	return settings
}

// yrNoSuccessResponse is a trimmed locationforecast reply with one timestep.
func yrNoSuccessResponse() string {
	return `{
		"properties": {
			"timeseries": [
				{
					"time": "2026-08-30T12:00:00Z",
					"data": {
						"instant": {
							"details": {
								"air_pressure_at_sea_level": 1012.4,
								"air_temperature": 15.4,
								"cloud_area_fraction": 45.0,
								"dew_point_temperature": 8.1,
								"relative_humidity": 62.0,
								"ultraviolet_index_clear_sky": 3.2,
								"wind_speed": 3.4,
								"wind_from_direction": 220.0,
								"wind_speed_of_gust": 5.8
							}
						},
						"next_1_hours": {
							"details": {
								"precipitation_amount": 0.2
							}
						}
					}
				}
			]
		}
	}`
}

// openWeatherSuccessResponse is a current-weather reply with snow fields set.
func openWeatherSuccessResponse() string {
	return `{
		"main": {"temp": 14.8, "feels_like": 13.9, "pressure": 1011.0, "humidity": 64.0},
		"wind": {"speed": 3.1, "deg": 215.0, "gust": 5.2},
		"clouds": {"all": 40.0},
		"rain": {"1h": 0.1},
		"snow": {"1h": 1.5, "3h": 4.0},
		"sys": {"sunrise": 1788244200, "sunset": 1788295800},
		"dt": 1788264000
	}`
}

// wundergroundSuccessResponse is a PWS observations reply. Wind values are km/h.
func wundergroundSuccessResponse() string {
	return `{
		"observations": [
			{
				"stationID": "KTEST123",
				"obsTimeUtc": "2026-08-30T12:00:00Z",
				"solarRadiation": 420.5,
				"uv": 4.0,
				"winddir": 225.0,
				"humidity": 61.0,
				"metric": {
					"temp": 15.6,
					"heatIndex": 15.6,
					"dewpt": 8.3,
					"windChill": 15.6,
					"windSpeed": 12.6,
					"windGust": 21.6,
					"pressure": 1012.8,
					"precipRate": 0.0,
					"precipTotal": 1.2
				}
			}
		]
	}`
}

// registerResponder wires an httpmock string responder for an endpoint prefix.
func registerResponder(t *testing.T, endpoint string, statusCode int, body string) {
	t.Helper()
	httpmock.RegisterResponder("GET", `=~^`+endpoint,
		httpmock.NewStringResponder(statusCode, body))
}
