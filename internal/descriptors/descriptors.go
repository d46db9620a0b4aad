// Package descriptors maps numeric reading fields to the human vocabulary used in
// rendered posts. Every mapping is total: a missing input yields an explicit
// "unknown" descriptor, never band zero.
package descriptors

import (
	"github.com/avikko/wxpost/internal/trend"
	"github.com/avikko/wxpost/internal/weather"
)

// Unknown is the descriptor for any missing input.
const Unknown = "unknown"

// Wind speed bands in m/s.
const (
	calmEpsilon   = 0.5
	lightMax      = 3.0
	breezyMax     = 8.0
	gustyDeltaMin = 5.0 // gust this far above sustained speed reads as gusty
)

// Set holds the derived descriptors for one Reading. Computed fresh per Reading,
// never cached independently of it.
type Set struct {
	Sky           string
	Wind          string
	Precipitation string
	Moon          string
	MoonEmoji     string
	UVBand        string
	PressureTrend trend.Trend
}

// Derive computes the full descriptor set for a reading.
func Derive(reading *weather.Reading, pressureTrend trend.Trend) Set {
	moonLabel, moonEmoji := Moon(reading.MoonIllumination, reading.MoonWaxing)
	return Set{
		Sky:           Sky(reading.CloudCover),
		Wind:          Wind(reading.WindSpeed, reading.WindGust),
		Precipitation: Precipitation(reading.RainRate, reading.RainTotal, reading.SnowRate, reading.SnowTotal),
		Moon:          moonLabel,
		MoonEmoji:     moonEmoji,
		UVBand:        UVBand(reading.UVIndex),
		PressureTrend: pressureTrend,
	}
}

// Sky maps cloud cover percentage to a sky condition band.
func Sky(cloudCover *float64) string {
	if cloudCover == nil {
		return Unknown
	}
	switch cover := *cloudCover; {
	case cover <= 20:
		return "clear"
	case cover <= 50:
		return "partly cloudy"
	case cover <= 80:
		return "mostly cloudy"
	default:
		return "overcast"
	}
}

// Wind maps sustained speed and gust to a wind descriptor. Calm is reserved for
// speed below a small epsilon regardless of gust.
func Wind(speed, gust *float64) string {
	if speed == nil {
		return Unknown
	}
	s := *speed
	if s < calmEpsilon {
		return "calm"
	}
	if gust != nil && *gust-s >= gustyDeltaMin {
		return "gusty"
	}
	switch {
	case s <= lightMax:
		return "light"
	case s <= breezyMax:
		return "breezy"
	default:
		return "windy"
	}
}

// Heavy precipitation threshold in mm/h water equivalent.
const heavyRateMM = 4.0

// Precipitation maps rain and snow signals to a precipitation state. Rain and snow
// are mutually exclusive per reading; when both rates are non-zero the rain rate
// takes precedence, since simultaneous values typically indicate mixed precipitation
// misreported by one source. All inputs missing yields unknown; any zero-valued
// input present yields none.
func Precipitation(rainRate, rainTotal, snowRate, snowTotal *float64) string {
	if rainRate == nil && rainTotal == nil && snowRate == nil && snowTotal == nil {
		return Unknown
	}

	rain := nonNilPositive(rainRate)
	snow := !rain && nonNilPositive(snowRate)

	switch {
	case rain:
		if *rainRate >= heavyRateMM {
			return "heavy rain"
		}
		return "rain"
	case snow:
		if *snowRate >= heavyRateMM {
			return "heavy snow"
		}
		return "snow"
	default:
		return "none"
	}
}

func nonNilPositive(v *float64) bool {
	return v != nil && *v > 0
}

// Moon phase illumination bands, as fractions.
const (
	newMoonMax  = 0.06
	crescentMax = 0.40
	quarterMax  = 0.60
	gibbousMax  = 0.94
)

// Moon maps illumination fraction and waxing flag to one of the 8 discrete phase
// labels with its emoji. This is a presentation mapping, not an astronomical
// computation; the inputs come from the ephemeris calculator or a source adapter.
func Moon(illumination *float64, waxing *bool) (label, emoji string) {
	if illumination == nil {
		return Unknown, ""
	}
	frac := *illumination

	if frac < newMoonMax {
		return "new moon", "🌑"
	}
	if frac > gibbousMax {
		return "full moon", "🌕"
	}

	// In between, the waxing flag splits each band in two. Without it the safest
	// presentation is the generic quarter label.
	if waxing == nil {
		return "quarter moon", "🌓"
	}

	if *waxing {
		switch {
		case frac <= crescentMax:
			return "waxing crescent", "🌒"
		case frac <= quarterMax:
			return "first quarter", "🌓"
		default:
			return "waxing gibbous", "🌔"
		}
	}
	switch {
	case frac <= crescentMax:
		return "waning crescent", "🌘"
	case frac <= quarterMax:
		return "last quarter", "🌗"
	default:
		return "waning gibbous", "🌖"
	}
}

// UVBand maps a UV index to the standard exposure bands.
func UVBand(uv *float64) string {
	if uv == nil {
		return Unknown
	}
	switch index := *uv; {
	case index < 3:
		return "low"
	case index < 6:
		return "moderate"
	case index < 8:
		return "high"
	case index < 11:
		return "very high"
	default:
		return "extreme"
	}
}
