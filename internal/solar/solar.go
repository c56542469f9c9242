// Package solar reports sunrise, sunset and solar noon for a location and
// calendar day.
package solar

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Times holds the solar events for one calendar day. When the sun does not
// rise (or set) that day NoSunrise (or NoSunset) is set and Rise (or Set)
// equals Noon.
type Times struct {
	Rise, Set, Noon time.Time
	NoSunrise       bool
	NoSunset        bool
}

// Compute returns the solar events at latitude lat and longitude lon
// (degrees, east positive) for the calendar date of day in day's location.
// Results are expressed in day's location.
func Compute(lat, lon float64, day time.Time) Times {
	loc := day.Location()
	y, m, d := day.Date()

	rise, set := sunrise.SunriseSunset(lat, lon, y, m, d)
	out := Times{
		Rise:      rise,
		Set:       set,
		NoSunrise: rise.IsZero(),
		NoSunset:  set.IsZero(),
	}
	if out.NoSunrise || out.NoSunset {
		out.Noon = sunrise.JulianDayToTime(sunrise.MeanSolarNoon(lon, y, m, d))
	} else {
		out.Noon = rise.Add(set.Sub(rise) / 2)
	}
	if out.NoSunrise {
		out.Rise = out.Noon
	}
	if out.NoSunset {
		out.Set = out.Noon
	}

	out.Rise, out.Set, out.Noon = out.Rise.In(loc), out.Set.In(loc), out.Noon.In(loc)
	return out
}
