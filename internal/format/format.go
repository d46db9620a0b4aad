// Package format renders a Reading plus its descriptors into the final post text.
//
// Templates contain named placeholders of the form {name} or {name:verb}, where verb
// is a printf verb for numeric fields ({temperature:%.1f}), "ord" for compass
// ordinals ({windDir:ord}), or a time layout for timestamps ({sunrise:15:04}).
// A placeholder whose backing value is missing renders the configured fallback token
// so partial data still produces a postable message. Output length is not truncated
// here; character limits are the publisher's concern.
package format

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avikko/wxpost/internal/descriptors"
	"github.com/avikko/wxpost/internal/weather"
)

var placeholderRegex = regexp.MustCompile(`\{([A-Za-z]+)(?::([^}]+))?\}`)

// compassOrdinals is the 16-point compass rose; the final entry is the fallback for
// out-of-range directions.
var compassOrdinals = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S",
	"SSW", "SW", "WSW", "W", "WNW", "NW", "NNW", "N", "-",
}

const defaultTimeLayout = "15:04"

// Renderer interpolates one template with a fixed fallback token.
type Renderer struct {
	template string
	fallback string
}

// New creates a Renderer. An empty fallback token defaults to "n/a".
func New(template, fallback string) *Renderer {
	if fallback == "" {
		fallback = "n/a"
	}
	return &Renderer{template: template, fallback: fallback}
}

// Render produces the final post text for one reading and its descriptor set.
// Unrecognized placeholder names are left verbatim so template typos stay visible.
func (r *Renderer) Render(reading *weather.Reading, descr descriptors.Set) string {
	return placeholderRegex.ReplaceAllStringFunc(r.template, func(match string) string {
		groups := placeholderRegex.FindStringSubmatch(match)
		name, verb := groups[1], groups[2]

		if value, ok := r.resolve(name, verb, reading, descr); ok {
			return value
		}
		return match
	})
}

// resolve returns the rendered value for a placeholder name, or ok=false when the
// name is not a known placeholder.
func (r *Renderer) resolve(name, verb string, reading *weather.Reading, descr descriptors.Set) (string, bool) {
	switch name {
	case "station":
		if reading.Station == "" {
			return r.fallback, true
		}
		return reading.Station, true
	case "time":
		return r.timeValue(&reading.Time, verb), true
	case "sunrise":
		return r.timeValue(reading.Sunrise, verb), true
	case "sunset":
		return r.timeValue(reading.Sunset, verb), true

	case "temperature":
		return r.floatValue(reading.Temperature, verb), true
	case "feelsLike":
		return r.floatValue(reading.FeelsLike, verb), true
	case "dewpoint":
		return r.floatValue(reading.Dewpoint, verb), true
	case "humidity":
		return r.floatValue(reading.Humidity, verb), true
	case "windSpeed":
		return r.floatValue(reading.WindSpeed, verb), true
	case "windGust":
		return r.floatValue(reading.WindGust, verb), true
	case "windDir":
		if strings.EqualFold(verb, "ord") {
			return r.ordinalValue(reading.WindDir), true
		}
		return r.floatValue(reading.WindDir, verb), true
	case "pressure":
		return r.floatValue(reading.Pressure, verb), true
	case "cloudCover":
		return r.floatValue(reading.CloudCover, verb), true
	case "rainRate":
		return r.floatValue(reading.RainRate, verb), true
	case "rainTotal":
		return r.floatValue(reading.RainTotal, verb), true
	case "snowRate":
		return r.floatValue(reading.SnowRate, verb), true
	case "snowTotal":
		return r.floatValue(reading.SnowTotal, verb), true
	case "uvIndex":
		return r.floatValue(reading.UVIndex, verb), true
	case "solarRadiation":
		return r.floatValue(reading.SolarRadiation, verb), true

	case "sky":
		return descr.Sky, true
	case "wind":
		return descr.Wind, true
	case "precipitation":
		return descr.Precipitation, true
	case "moon":
		return strings.TrimSpace(descr.MoonEmoji + " " + descr.Moon), true
	case "moonEmoji":
		return descr.MoonEmoji, true
	case "uv":
		return descr.UVBand, true
	case "pressureTrend":
		if descr.PressureTrend == "" {
			return r.fallback, true
		}
		return string(descr.PressureTrend) + descr.PressureTrend.Arrow(), true
	}
	return "", false
}

// floatValue renders an optional numeric field, honoring the printf verb when
// present. A missing value renders the fallback token, never zero.
func (r *Renderer) floatValue(value *float64, verb string) string {
	if value == nil {
		return r.fallback
	}
	if verb == "" {
		return strconv.FormatFloat(*value, 'f', -1, 64)
	}
	return fmt.Sprintf(verb, *value)
}

// timeValue renders an optional timestamp using verb as a Go time layout.
func (r *Renderer) timeValue(value *time.Time, verb string) string {
	if value == nil || value.IsZero() {
		return r.fallback
	}
	layout := verb
	if layout == "" {
		layout = defaultTimeLayout
	}
	return value.Format(layout)
}

// ordinalValue maps a wind direction in degrees to the 16-point compass rose.
func (r *Renderer) ordinalValue(degrees *float64) string {
	if degrees == nil {
		return r.fallback
	}
	idx := int(math.Round(*degrees / 22.5))
	if idx < 0 || idx >= len(compassOrdinals)-1 {
		return compassOrdinals[len(compassOrdinals)-1]
	}
	return compassOrdinals[idx]
}
