package timeutil

import (
	"time"

	"github.com/banshee-data/gridstack/internal/solar"
)

const day = 24 * time.Hour

// SunFunc computes solar events at lat/lon (degrees) for the calendar day
// of its argument.
type SunFunc func(lat, lon float64, day time.Time) solar.Times

// Manager converts between absolute instants and the local calendar of a
// simulation's world location. DST follows the zone's rules.
type Manager struct {
	loc *time.Location
	sun SunFunc
}

// NewManager returns a Manager for loc using the NOAA sun calculator.
// A nil loc means UTC.
func NewManager(loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{loc: loc, sun: solar.Compute}
}

// WithSun returns a copy of m using fn for solar events.
func (m *Manager) WithSun(fn SunFunc) *Manager {
	c := *m
	c.sun = fn
	return &c
}

// Location returns the manager's zone.
func (m *Manager) Location() *time.Location { return m.loc }

// Local returns t in the manager's zone.
func (m *Manager) Local(t time.Time) time.Time { return t.In(m.loc) }

// LocalMidnight returns the start of the local calendar day holding t.
func (m *Manager) LocalMidnight(t time.Time) time.Time {
	y, mo, d := t.In(m.loc).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, m.loc)
}

// LocalNoon returns 12:00 local on the calendar day holding t.
func (m *Manager) LocalNoon(t time.Time) time.Time {
	y, mo, d := t.In(m.loc).Date()
	return time.Date(y, mo, d, 12, 0, 0, 0, m.loc)
}

// YearStart returns local midnight on January 1 of t's local year.
func (m *Manager) YearStart(t time.Time) time.Time {
	return time.Date(t.In(m.loc).Year(), time.January, 1, 0, 0, 0, 0, m.loc)
}

// DayOfYear returns the whole-day offset of t into its local year, in
// the range [0, 365].
func (m *Manager) DayOfYear(t time.Time) int {
	return t.In(m.loc).YearDay() - 1
}

// Anniversary returns local midnight offset days into the local year that
// holds t.
func (m *Manager) Anniversary(t time.Time, offset int) time.Time {
	return m.YearStart(t).AddDate(0, 0, offset)
}

// DayOffset converts a whole-day count into a span.
func DayOffset(days int) time.Duration { return time.Duration(days) * day }

// Days truncates a span to whole days.
func Days(d time.Duration) int { return int(d / day) }

// SunTimes returns the solar events at lat/lon for the local day holding t.
func (m *Manager) SunTimes(lat, lon float64, t time.Time) solar.Times {
	return m.sun(lat, lon, m.LocalNoon(t))
}
