package temporal

import (
	"fmt"
	"slices"
	"time"

	"github.com/banshee-data/gridstack/internal/grid"
)

// Bounds enforced by the option setters.
const (
	maxSetWS    = 200.0
	maxSetStart = 24 * time.Hour
	maxSetEnd   = 36 * time.Hour
	maxCuring   = 100.0
)

func checkDailyKey(key grid.AttributeKey) error {
	switch key {
	case grid.AttrPeriodStartComputed, grid.AttrPeriodEndComputed:
		return fmt.Errorf("%w: %s is computed", grid.ErrInvalidArgument, key)
	}
	if !key.IsBurnCondition() {
		return fmt.Errorf("%w: %s is not a daily option", grid.ErrInvalidArgument, key)
	}
	return nil
}

func checkSeasonalKey(key grid.AttributeKey, day int) error {
	if !key.IsSeasonal() {
		return fmt.Errorf("%w: %s is not a seasonal option", grid.ErrInvalidArgument, key)
	}
	if day < 0 || day > MaxSeasonalDay {
		return fmt.Errorf("%w: day %d outside [0, %d]", grid.ErrOutOfRange, day, MaxSeasonalDay)
	}
	return nil
}

func checkTime(t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("%w: zero time", grid.ErrInvalidArgument)
	}
	return nil
}

// DailyOption returns the stored value of key for the local day holding t
// and whether it is in force. It fails with ErrInvalidTime when no entry
// exists for that day.
func (f *Filter) DailyOption(key grid.AttributeKey, t time.Time) (grid.Value, bool, error) {
	if err := checkDailyKey(key); err != nil {
		return grid.Value{}, false, err
	}
	if err := checkTime(t); err != nil {
		return grid.Value{}, false, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	i, ok := f.findDaily(t, false)
	if !ok {
		return grid.Value{}, false, fmt.Errorf("%w: no daily entry for %s", grid.ErrInvalidTime, t.Format(time.DateOnly))
	}
	v, valid := f.dailyValue(f.daily[i], key, grid.Point{})
	return v, valid == grid.Set, nil
}

// SetDailyOption stores v for key on the local day holding t, creating the
// day's entry when needed. valid sets or clears the field's effective bit;
// the interpretation keys share the bit of their offset and leave it alone.
func (f *Filter) SetDailyOption(key grid.AttributeKey, t time.Time, v grid.Value, valid bool) error {
	if err := checkDailyKey(key); err != nil {
		return err
	}
	if err := checkTime(t); err != nil {
		return err
	}
	apply, err := dailySetter(key, v)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i, _ := f.findDaily(t, true)
	apply(&f.daily[i], valid)
	f.dirty = true
	return nil
}

func dailySetter(key grid.AttributeKey, v grid.Value) (func(*DailyAttribute, bool), error) {
	switch key {
	case grid.AttrPeriodStart, grid.AttrPeriodEnd:
		d, err := v.Duration()
		if err != nil {
			return nil, err
		}
		limit, bit := maxSetStart, StartEffective
		if key == grid.AttrPeriodEnd {
			limit, bit = maxSetEnd, EndEffective
		}
		if d < 0 || d >= limit {
			return nil, fmt.Errorf("%w: %s %v outside [0, %v)", grid.ErrOutOfRange, key, d, limit)
		}
		return func(a *DailyAttribute, valid bool) {
			if bit == StartEffective {
				a.Start = d
			} else {
				a.End = d
			}
			a.setBit(bit, valid)
		}, nil

	case grid.AttrPeriodStartInterpret, grid.AttrPeriodEndInterpret:
		u, err := v.Uint16()
		if err != nil {
			return nil, err
		}
		if u >= uint16(relativeCount) {
			return nil, fmt.Errorf("%w: interpretation %d", grid.ErrOutOfRange, u)
		}
		start := key == grid.AttrPeriodStartInterpret
		return func(a *DailyAttribute, _ bool) {
			if start {
				a.StartRelative = Relative(u)
			} else {
				a.EndRelative = Relative(u)
			}
		}, nil
	}

	x, err := v.Float()
	if err != nil {
		return nil, err
	}
	var (
		field func(*DailyAttribute) *float64
		bit   Bits
		upper = -1.0
	)
	switch key {
	case grid.AttrMinRH:
		field, bit, upper = func(a *DailyAttribute) *float64 { return &a.MinRH }, RHEffective, 1.0
	case grid.AttrMaxWS:
		field, bit, upper = func(a *DailyAttribute) *float64 { return &a.MaxWS }, WindEffective, maxSetWS
	case grid.AttrMinFWI:
		field, bit = func(a *DailyAttribute) *float64 { return &a.MinFWI }, FWIEffective
	case grid.AttrMinISI:
		field, bit = func(a *DailyAttribute) *float64 { return &a.MinISI }, ISIEffective
	default:
		return nil, fmt.Errorf("%w: %s", grid.ErrInvalidArgument, key)
	}
	if x < 0 || (upper >= 0 && x > upper) {
		return nil, fmt.Errorf("%w: %s %g", grid.ErrOutOfRange, key, x)
	}
	return func(a *DailyAttribute, valid bool) {
		*field(a) = x
		a.setBit(bit, valid)
	}, nil
}

func (a *DailyAttribute) setBit(b Bits, on bool) {
	if on {
		a.Effective |= b
	} else {
		a.Effective &^= b
	}
}

// ClearDailyOption takes key out of force for the local day holding t.
// Clearing an interpretation key resets it to local midnight.
func (f *Filter) ClearDailyOption(key grid.AttributeKey, t time.Time) error {
	if err := checkDailyKey(key); err != nil {
		return err
	}
	if err := checkTime(t); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.findDaily(t, false)
	if !ok {
		return fmt.Errorf("%w: no daily entry for %s", grid.ErrInvalidTime, t.Format(time.DateOnly))
	}
	a := &f.daily[i]
	switch key {
	case grid.AttrMinRH:
		a.setBit(RHEffective, false)
	case grid.AttrMinFWI:
		a.setBit(FWIEffective, false)
	case grid.AttrMinISI:
		a.setBit(ISIEffective, false)
	case grid.AttrMaxWS:
		a.setBit(WindEffective, false)
	case grid.AttrPeriodStart:
		a.setBit(StartEffective, false)
	case grid.AttrPeriodEnd:
		a.setBit(EndEffective, false)
	case grid.AttrPeriodStartInterpret:
		a.StartRelative = FromMidnight
	case grid.AttrPeriodEndInterpret:
		a.EndRelative = FromMidnight
	}
	f.dirty = true
	return nil
}

// SeasonalOption returns the value of key set exactly on day. It fails with
// ErrInvalidTime when no entry on day sets key.
func (f *Filter) SeasonalOption(key grid.AttributeKey, day int) (grid.Value, bool, error) {
	if err := checkSeasonalKey(key, day); err != nil {
		return grid.Value{}, false, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.findSeasonal(day, key, false, false)
	if i < 0 {
		return grid.Value{}, false, fmt.Errorf("%w: no seasonal %s on day %d", grid.ErrInvalidTime, key, day)
	}
	v, valid := seasonalValue(f.seasonal[i], key)
	return v, valid == grid.Set, nil
}

// EffectiveSeasonalOption returns the value of key in force on day, carried
// forward from the latest entry at or before day that sets it.
func (f *Filter) EffectiveSeasonalOption(key grid.AttributeKey, day int) (grid.Value, bool, error) {
	if err := checkSeasonalKey(key, day); err != nil {
		return grid.Value{}, false, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.findSeasonal(day, key, false, true)
	if i < 0 {
		return grid.Value{}, false, fmt.Errorf("%w: seasonal %s on day %d", grid.ErrNotFound, key, day)
	}
	v, valid := seasonalValue(f.seasonal[i], key)
	return v, valid == grid.Set, nil
}

// SetSeasonalOption stores v for key on day, creating the entry when
// needed. valid marks whether the entry sets key.
func (f *Filter) SetSeasonalOption(key grid.AttributeKey, day int, v grid.Value, valid bool) error {
	if err := checkSeasonalKey(key, day); err != nil {
		return err
	}
	var (
		b bool
		x float64
	)
	if key == grid.AttrCuringDegree {
		var err error
		if x, err = v.Float(); err != nil {
			return err
		}
		if x < 0 || x > maxCuring {
			return fmt.Errorf("%w: curing degree %g", grid.ErrOutOfRange, x)
		}
	} else {
		var err error
		if b, err = v.Bool(); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s := &f.seasonal[f.findSeasonal(day, key, true, false)]
	if key == grid.AttrCuringDegree {
		s.Curing, s.CuringSet = x, valid
	} else {
		fl := flagFor(key)
		if b {
			s.Flags |= fl
		} else {
			s.Flags &^= fl
		}
		if valid {
			s.FlagsSet |= fl
		} else {
			s.FlagsSet &^= fl
		}
	}
	f.dirty = true
	return nil
}

// ClearSeasonalOption stops day's entry from setting key. An entry left
// setting nothing is removed, except the day-0 default.
func (f *Filter) ClearSeasonalOption(key grid.AttributeKey, day int) error {
	if err := checkSeasonalKey(key, day); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findSeasonal(day, key, false, false)
	if i < 0 {
		return fmt.Errorf("%w: no seasonal %s on day %d", grid.ErrInvalidTime, key, day)
	}
	s := &f.seasonal[i]
	if key == grid.AttrCuringDegree {
		s.CuringSet = false
	} else {
		s.FlagsSet &^= flagFor(key)
	}
	if s.Empty() && s.Day != 0 {
		f.seasonal = slices.Delete(f.seasonal, i, i+1)
	}
	f.dirty = true
	return nil
}

// DailyCount returns the number of daily entries.
func (f *Filter) DailyCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.daily)
}

// SeasonalCount returns the number of seasonal entries, default included.
func (f *Filter) SeasonalCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.seasonal)
}

// DailyTimeAt returns the local midnight key of the i'th daily entry.
func (f *Filter) DailyTimeAt(i int) (time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i < 0 || i >= len(f.daily) {
		return time.Time{}, fmt.Errorf("%w: daily index %d", grid.ErrInvalidArgument, i)
	}
	return f.daily[i].Day, nil
}

// SeasonalDayAt returns the day offset of the i'th seasonal entry.
func (f *Filter) SeasonalDayAt(i int) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i < 0 || i >= len(f.seasonal) {
		return 0, fmt.Errorf("%w: seasonal index %d", grid.ErrInvalidArgument, i)
	}
	return f.seasonal[i].Day, nil
}

// DeleteDaily removes the i'th daily entry.
func (f *Filter) DeleteDaily(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.daily) {
		return fmt.Errorf("%w: daily index %d", grid.ErrInvalidArgument, i)
	}
	f.daily = slices.Delete(f.daily, i, i+1)
	f.dirty = true
	return nil
}

// DeleteSeasonal removes the i'th seasonal entry. The day-0 default cannot
// be deleted.
func (f *Filter) DeleteSeasonal(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.seasonal) {
		return fmt.Errorf("%w: seasonal index %d", grid.ErrInvalidArgument, i)
	}
	if f.seasonal[i].Day == 0 {
		return fmt.Errorf("%w: default seasonal entry", grid.ErrInvalidArgument)
	}
	f.seasonal = slices.Delete(f.seasonal, i, i+1)
	f.dirty = true
	return nil
}
