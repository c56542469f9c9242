package temporal

import (
	"time"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/solar"
)

const halfDay = 12 * time.Hour

// window is a day's burn period after interpretation.
type window struct {
	Start, End     time.Time
	StartOK, EndOK bool
}

// solarTimes returns the solar events at pt for the local day holding t.
// Without a converter pt is taken as geographic (X longitude, Y latitude).
// Must be called with f.mu held.
func (f *Filter) solarTimes(pt grid.Point, t time.Time) solar.Times {
	lat, lon := pt.Y, pt.X
	if f.conv != nil {
		lat, lon = f.conv.ToLatLon(pt)
	}
	return f.tm.SunTimes(lat, lon, t)
}

// burnWindow interprets the start and end offsets of a at pt. A boundary
// is usable only when its effective bit is set and, for sun-relative
// offsets, the sun rises (start) or sets (end) that day. Must be called
// with f.mu held.
func (f *Filter) burnWindow(a DailyAttribute, pt grid.Point) window {
	var (
		w     window
		sun   solar.Times
		sunOK bool
	)
	sunTimes := func() solar.Times {
		if !sunOK {
			sun, sunOK = f.solarTimes(pt, a.Day.Add(halfDay)), true
		}
		return sun
	}

	switch a.StartRelative {
	case FromSunRiseSet:
		st := sunTimes()
		if a.Has(StartEffective) && !st.NoSunrise {
			w.Start, w.StartOK = st.Rise.Add(a.Start), true
		}
	default:
		w.Start = anchor(a.Day, a.StartRelative)
		if a.Has(StartEffective) {
			w.Start, w.StartOK = w.Start.Add(a.Start), true
		}
	}

	switch a.EndRelative {
	case FromSunRiseSet:
		st := sunTimes()
		if a.Has(EndEffective) && !st.NoSunset {
			w.End, w.EndOK = st.Set.Add(a.End), true
		}
	default:
		w.End = anchor(a.Day, a.EndRelative)
		if a.Has(EndEffective) {
			w.End, w.EndOK = w.End.Add(a.End), true
		}
	}
	return w
}

func anchor(day time.Time, r Relative) time.Time {
	if r == FromNoon {
		return day.Add(halfDay)
	}
	return day
}
