// Package astro computes sun event times and moon phase for the observing site.
package astro

import (
	"math"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"

	"github.com/avikko/wxpost/internal/errors"
)

const synodicHalfCycle = 14.0 // astral phase range is 0..28, 14 is full moon

// SunEventTimes holds the calculated sun event times.
type SunEventTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// MoonState is the presentation-ready moon input for the descriptor engine.
type MoonState struct {
	// Illumination is the illuminated fraction 0..1.
	Illumination float64
	// Waxing tells whether the phase is growing toward full.
	Waxing bool
}

// Calculator handles caching and calculation of sun and moon ephemeris. Sun event
// times are cached per calendar date; time-of-day does not affect them.
type Calculator struct {
	cache    map[string]SunEventTimes
	lock     sync.RWMutex
	observer astral.Observer
}

// NewCalculator creates a Calculator for the given site.
func NewCalculator(latitude, longitude float64) *Calculator {
	return &Calculator{
		cache:    make(map[string]SunEventTimes),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
	}
}

// SunEventTimes returns sunrise and sunset for the given date, using the cache when
// available. Polar day/night make the underlying calculation fail; callers treat
// that as "unknown" rather than an abort.
func (c *Calculator) SunEventTimes(date time.Time) (SunEventTimes, error) {
	dateKey := date.Format("2006-01-02")

	c.lock.RLock()
	times, exists := c.cache[dateKey]
	c.lock.RUnlock()
	if exists {
		return times, nil
	}

	sunrise, err := astral.Sunrise(c.observer, date)
	if err != nil {
		return SunEventTimes{}, errors.New(err).
			Component("astro").
			Category(errors.CategoryValidation).
			Context("operation", "sunrise").
			Build()
	}
	sunset, err := astral.Sunset(c.observer, date)
	if err != nil {
		return SunEventTimes{}, errors.New(err).
			Component("astro").
			Category(errors.CategoryValidation).
			Context("operation", "sunset").
			Build()
	}

	times = SunEventTimes{Sunrise: sunrise, Sunset: sunset}

	c.lock.Lock()
	c.cache[dateKey] = times
	c.lock.Unlock()

	return times, nil
}

// Moon returns the moon state for the given date. The astral phase value runs
// 0..28 (0 new, 14 full); illumination is derived from the phase angle.
func (c *Calculator) Moon(date time.Time) MoonState {
	phase := astral.MoonPhase(date)
	return MoonState{
		Illumination: illuminationFromPhase(phase),
		Waxing:       phase < synodicHalfCycle,
	}
}

// illuminationFromPhase maps the 0..28 phase value to an illuminated fraction 0..1.
func illuminationFromPhase(phase float64) float64 {
	angle := math.Pi * phase / synodicHalfCycle
	return (1 - math.Cos(angle)) / 2
}
