package weather

import (
	"time"
)

// Reading is the canonical normalized weather snapshot. Units are fixed at
// normalization time: °C, %, m/s, degrees, hPa, mm, mm/h, W/m². Every field except
// Time is optional; nil means the value is unknown, never zero. Readings are handed
// around by value and treated as immutable once constructed.
type Reading struct {
	Time    time.Time
	Station string

	Temperature *float64 // °C
	FeelsLike   *float64 // °C
	Dewpoint    *float64 // °C
	Humidity    *float64 // %

	WindSpeed *float64 // m/s
	WindDir   *float64 // degrees, meteorological
	WindGust  *float64 // m/s

	Pressure   *float64 // hPa at sea level
	CloudCover *float64 // %

	RainRate  *float64 // mm/h
	RainTotal *float64 // mm since local midnight
	SnowRate  *float64 // mm/h water equivalent
	SnowTotal *float64 // mm water equivalent

	UVIndex        *float64
	SolarRadiation *float64 // W/m²

	Sunrise *time.Time
	Sunset  *time.Time

	// MoonIllumination is the illuminated fraction 0..1; MoonWaxing tells whether the
	// phase is growing toward full.
	MoonIllumination *float64
	MoonWaxing       *bool
}

// Float returns a pointer to v, for building partial readings.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Timeptr returns a pointer to t.
func Timeptr(t time.Time) *time.Time { return &t }

// FailureKind classifies why a source adapter could not produce a fragment.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureTimeout     FailureKind = "timeout"
	FailureAuth        FailureKind = "auth"
	FailureRateLimited FailureKind = "rate-limited"
	FailureMalformed   FailureKind = "malformed"
)

// SourceResult is the per-provider outcome of one fetch: either a partial Reading
// fragment with its source identifier and fetch timestamp, or a typed failure.
// Never both.
type SourceResult struct {
	SourceID  string
	FetchedAt time.Time
	Fragment  *Reading
	Failure   FailureKind
	Err       error
}

// OK reports whether the source produced a usable fragment.
func (r SourceResult) OK() bool {
	return r.Fragment != nil && r.Failure == FailureNone
}
