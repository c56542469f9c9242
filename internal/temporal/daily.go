package temporal

import (
	"slices"
	"time"
)

// Bits records which fields of a DailyAttribute are in force.
type Bits uint32

const (
	RHEffective Bits = 1 << iota
	FWIEffective
	ISIEffective
	WindEffective
	StartEffective
	EndEffective

	TimesEffective = StartEffective | EndEffective
)

// Relative selects what a burn-period offset is measured from.
type Relative uint8

const (
	FromMidnight Relative = iota
	FromNoon
	FromSunRiseSet

	relativeCount
)

func (r Relative) String() string {
	switch r {
	case FromMidnight:
		return "midnight"
	case FromNoon:
		return "noon"
	case FromSunRiseSet:
		return "sun_rise_set"
	}
	return "invalid"
}

// Defaults seeds newly created entries.
type Defaults struct {
	MinRH  float64
	MaxWS  float64
	MinFWI float64
	MinISI float64
	Start  time.Duration
	End    time.Duration
	Curing float64
}

// BuiltinDefaults returns the values new entries start with when no
// configuration overrides them.
func BuiltinDefaults() Defaults {
	return Defaults{
		MinRH:  1.0,
		MinISI: 8.0,
		End:    23*time.Hour + 59*time.Minute + 59*time.Second,
		Curing: 60.0,
	}
}

// DailyAttribute overrides burn conditions for one local calendar day.
type DailyAttribute struct {
	// Day is local midnight of the calendar day.
	Day time.Time

	MinRH  float64
	MaxWS  float64
	MinFWI float64
	MinISI float64

	Start, End                 time.Duration
	StartRelative, EndRelative Relative

	Effective Bits
}

func newDaily(day time.Time, d Defaults) DailyAttribute {
	return DailyAttribute{
		Day:    day,
		MinRH:  d.MinRH,
		MaxWS:  d.MaxWS,
		MinFWI: d.MinFWI,
		MinISI: d.MinISI,
		Start:  d.Start,
		End:    d.End,
	}
}

// Has reports whether every bit in b is set.
func (a DailyAttribute) Has(b Bits) bool { return a.Effective&b == b }

func compareDay(a DailyAttribute, key time.Time) int { return a.Day.Compare(key) }

// findDaily returns the index of the entry for the local day holding t,
// creating it when autocreate is set. ok is false when absent and not
// created. Must be called with f.mu held (write-locked when autocreate).
func (f *Filter) findDaily(t time.Time, autocreate bool) (int, bool) {
	key := f.tm.LocalMidnight(t)
	i, found := slices.BinarySearchFunc(f.daily, key, compareDay)
	if found {
		return i, true
	}
	if !autocreate {
		return i, false
	}
	f.daily = slices.Insert(f.daily, i, newDaily(key, f.defaults))
	return i, true
}

// insertDaily adds a fully built entry, merging into an existing entry for
// the same day: fields the incoming entry sets replace the existing ones.
func (f *Filter) insertDaily(a DailyAttribute) {
	i, found := slices.BinarySearchFunc(f.daily, a.Day, compareDay)
	if !found {
		f.daily = slices.Insert(f.daily, i, a)
		return
	}
	cur := &f.daily[i]
	if a.Has(RHEffective) {
		cur.MinRH = a.MinRH
	}
	if a.Has(WindEffective) {
		cur.MaxWS = a.MaxWS
	}
	if a.Has(FWIEffective) {
		cur.MinFWI = a.MinFWI
	}
	if a.Has(ISIEffective) {
		cur.MinISI = a.MinISI
	}
	if a.Has(StartEffective) {
		cur.Start, cur.StartRelative = a.Start, a.StartRelative
	}
	if a.Has(EndEffective) {
		cur.End, cur.EndRelative = a.End, a.EndRelative
	}
	cur.Effective |= a.Effective
}
