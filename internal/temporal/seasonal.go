package temporal

import (
	"slices"

	"github.com/banshee-data/gridstack/internal/grid"
)

// MaxSeasonalDay is the largest day-of-year offset a seasonal entry may use.
const MaxSeasonalDay = 366

// Flag is a seasonal boolean option.
type Flag uint8

const (
	GrassPhenology Flag = 1 << iota
	Greenup
)

// SeasonalAttribute overrides seasonal values from Day (whole days into the
// local year) onward.
type SeasonalAttribute struct {
	Day int

	// Flags holds the option values; FlagsSet marks which of them this
	// entry sets.
	Flags    Flag
	FlagsSet Flag

	Curing    float64
	CuringSet bool
}

func newSeasonal(day int, d Defaults) SeasonalAttribute {
	return SeasonalAttribute{Day: day, Curing: d.Curing}
}

// Empty reports whether the entry sets nothing.
func (s SeasonalAttribute) Empty() bool { return s.FlagsSet == 0 && !s.CuringSet }

// sets reports whether s explicitly sets the value selected by key.
func (s SeasonalAttribute) sets(key grid.AttributeKey) bool {
	if key == grid.AttrCuringDegree {
		return s.CuringSet
	}
	return s.FlagsSet&flagFor(key) != 0
}

func flagFor(key grid.AttributeKey) Flag {
	switch key {
	case grid.AttrGrassPhenology:
		return GrassPhenology
	case grid.AttrGreenup:
		return Greenup
	}
	return 0
}

// findSeasonal resolves the entry for day and key.
//
// An exact entry is used when it sets key (or when autocreate is set).
// Otherwise, with acceptEarlier, the latest earlier entry that sets key
// is used. Otherwise autocreate inserts an entry at day. The result is -1
// when nothing applies. Must be called with f.mu held (write-locked when
// autocreate).
func (f *Filter) findSeasonal(day int, key grid.AttributeKey, autocreate, acceptEarlier bool) int {
	exact, last := -1, -1
	for i, s := range f.seasonal {
		if s.Day == day {
			exact = i
			break
		}
		if s.Day > day {
			break
		}
		if s.sets(key) {
			last = i
		}
	}

	if exact >= 0 && (autocreate || f.seasonal[exact].sets(key)) {
		return exact
	}
	if acceptEarlier && last >= 0 {
		return last
	}
	if autocreate {
		i, _ := slices.BinarySearchFunc(f.seasonal, day, compareSeasonDay)
		f.seasonal = slices.Insert(f.seasonal, i, newSeasonal(day, f.defaults))
		return i
	}
	return -1
}

func compareSeasonDay(s SeasonalAttribute, day int) int { return s.Day - day }

// insertSeasonal adds an imported entry, merging into an existing entry for
// the same day. Values the incoming entry sets replace the existing ones.
func (f *Filter) insertSeasonal(s SeasonalAttribute) {
	i, found := slices.BinarySearchFunc(f.seasonal, s.Day, compareSeasonDay)
	if !found {
		f.seasonal = slices.Insert(f.seasonal, i, s)
		return
	}
	cur := &f.seasonal[i]
	cur.Flags = cur.Flags&^s.FlagsSet | s.Flags&s.FlagsSet
	cur.FlagsSet |= s.FlagsSet
	if s.CuringSet {
		cur.Curing, cur.CuringSet = s.Curing, true
	}
}

// ensureDefaultSeason keeps the day-0 entry present.
func (f *Filter) ensureDefaultSeason() {
	if len(f.seasonal) == 0 || f.seasonal[0].Day != 0 {
		f.seasonal = slices.Insert(f.seasonal, 0, newSeasonal(0, f.defaults))
	}
}
