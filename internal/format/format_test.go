package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avikko/wxpost/internal/descriptors"
	"github.com/avikko/wxpost/internal/trend"
	"github.com/avikko/wxpost/internal/weather"
)

func testReading() *weather.Reading {
	sunrise := time.Date(2026, 8, 30, 6, 12, 0, 0, time.UTC)
	return &weather.Reading{
		Time:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Station:     "Testwatch",
		Temperature: weather.Float(15.42),
		Humidity:    weather.Float(62.0),
		WindSpeed:   weather.Float(3.456),
		WindDir:     weather.Float(225.0),
		Pressure:    weather.Float(1012.37),
		Sunrise:     &sunrise,
	}
}

func testDescriptors() descriptors.Set {
	return descriptors.Set{
		Sky:           "partly cloudy",
		Wind:          "breezy",
		Precipitation: "none",
		Moon:          "full moon",
		MoonEmoji:     "🌕",
		UVBand:        "moderate",
		PressureTrend: trend.TrendSteady,
	}
}

func TestRender_Placeholders(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"station", "{station}", "Testwatch"},
		{"plain_float", "{humidity}", "62"},
		{"printf_verb", "{temperature:%.1f}", "15.4"},
		{"wind_ordinal", "{windDir:ord}", "SW"},
		{"wind_degrees", "{windDir:%.0f}", "225"},
		{"time_default_layout", "{time}", "12:00"},
		{"sunrise_custom_layout", "{sunrise:15:04}", "06:12"},
		{"descriptor_sky", "{sky}", "partly cloudy"},
		{"descriptor_moon_with_emoji", "{moon}", "🌕 full moon"},
		{"pressure_trend_with_arrow", "{pressureTrend}", "steady→"},
		{"unknown_placeholder_left_verbatim", "{bogus}", "{bogus}"},
		{"mixed_text", "wind {wind} at {windSpeed:%.1f} m/s", "wind breezy at 3.5 m/s"},
	}

	renderer := New("", "n/a")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer.template = tt.template
			assert.Equal(t, tt.want, renderer.Render(testReading(), testDescriptors()))
		})
	}
}

func TestRender_MissingValuesUseFallbackToken(t *testing.T) {
	renderer := New("{windGust:%.1f} | {sunset} | {rainRate}", "--")
	got := renderer.Render(testReading(), testDescriptors())
	assert.Equal(t, "-- | -- | --", got)
}

func TestRender_MissingValueNeverRendersZero(t *testing.T) {
	renderer := New("{snowRate:%.1f}", "n/a")
	got := renderer.Render(&weather.Reading{}, descriptors.Set{})
	assert.Equal(t, "n/a", got)
	assert.NotContains(t, got, "0.0")
}

func TestRender_EmptyStationFallsBack(t *testing.T) {
	renderer := New("{station}", "n/a")
	got := renderer.Render(&weather.Reading{}, descriptors.Set{})
	assert.Equal(t, "n/a", got)
}

func TestNew_DefaultFallback(t *testing.T) {
	renderer := New("{pressure}", "")
	got := renderer.Render(&weather.Reading{}, descriptors.Set{})
	assert.Equal(t, "n/a", got)
}

func TestOrdinalValue(t *testing.T) {
	renderer := New("", "n/a")

	tests := []struct {
		degrees float64
		want    string
	}{
		{0, "N"},
		{11, "N"},
		{12, "NNE"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{350, "N"},
		{359.9, "N"},
		{400, "-"},
		{-30, "-"},
	}

	for _, tt := range tests {
		got := renderer.ordinalValue(weather.Float(tt.degrees))
		assert.Equal(t, tt.want, got, "degrees %v", tt.degrees)
	}

	assert.Equal(t, "n/a", renderer.ordinalValue(nil))
}

func TestRender_DefaultTemplateShape(t *testing.T) {
	template := "{station}: {temperature:%.1f}°C ({sky}) | wind {wind} {windDir:ord} {windSpeed:%.1f} m/s | {humidity:%.0f}% RH | {pressure:%.1f} hPa {pressureTrend} | UV {uv} | {moon}"
	renderer := New(template, "n/a")

	got := renderer.Render(testReading(), testDescriptors())

	assert.Equal(t, "Testwatch: 15.4°C (partly cloudy) | wind breezy SW 3.5 m/s | 62% RH | 1012.4 hPa steady→ | UV moderate | 🌕 full moon", got)
}
