package temporal

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/banshee-data/gridstack/internal/geo"
	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/timeutil"
)

// Options configures a Filter.
type Options struct {
	// Registry resolves layers to the engine below the filter.
	Registry *grid.Registry
	// Time is the calendar used for table keys. Nil means UTC until the
	// stack supplies common data.
	Time *timeutil.Manager
	// Defaults seeds new entries. Nil selects BuiltinDefaults.
	Defaults *Defaults
	// Clock and LockWarnAfter configure the lock-wait watchdog.
	Clock         timeutil.Clock
	LockWarnAfter time.Duration
}

// Filter is the temporal burn-condition grid engine.
type Filter struct {
	grid.Chain
	lock grid.StateLock

	mu          sync.RWMutex
	daily       []DailyAttribute
	seasonal    []SeasonalAttribute
	dirty       bool
	loadWarning string
	tm          *timeutil.Manager
	conv        *geo.Converter
	defaults    Defaults
	opts        Options
}

// New returns an empty filter holding only the default seasonal entry.
func New(opts Options) *Filter {
	f := &Filter{opts: opts, tm: opts.Time, defaults: BuiltinDefaults()}
	if opts.Defaults != nil {
		f.defaults = *opts.Defaults
	}
	if f.tm == nil {
		f.tm = timeutil.NewManager(time.UTC)
	}
	f.Init(f, opts.Registry)
	f.lock.Name = "temporal"
	if opts.LockWarnAfter > 0 {
		f.lock.SetWaitWarning(opts.Clock, opts.LockWarnAfter)
	}
	f.ensureDefaultSeason()
	return f
}

// Clone returns a deep copy of the filter's tables and configuration. The
// copy has no stack bindings and is not dirty.
func (f *Filter) Clone() *Filter {
	f.lock.RLock()
	defer f.lock.RUnlock()

	f.mu.RLock()
	defer f.mu.RUnlock()

	c := New(f.opts)
	c.tm = f.tm
	c.conv = f.conv
	c.defaults = f.defaults
	c.daily = slices.Clone(f.daily)
	c.seasonal = slices.Clone(f.seasonal)
	return c
}

// IsDirty reports whether the tables changed since the last Serialize or
// load.
func (f *Filter) IsDirty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dirty
}

// LoadWarning returns the most recent diagnostic retained while loading.
func (f *Filter) LoadWarning() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loadWarning
}

// Daily returns a copy of the daily table.
func (f *Filter) Daily() []DailyAttribute {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.daily)
}

// Seasonal returns a copy of the seasonal table.
func (f *Filter) Seasonal() []SeasonalAttribute {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.seasonal)
}

// TimeManager returns the calendar currently used for table keys.
func (f *Filter) TimeManager() *timeutil.Manager {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tm
}

// Lock applies the stacked locking protocol with the filter's own lock.
func (f *Filter) Lock(layer *grid.Layer, exclusive bool, mode grid.LockMode) (grid.LockState, error) {
	return f.LockThrough(&f.lock, layer, exclusive, mode)
}

// Valid forwards and then refreshes the world location from the root
// engine.
func (f *Filter) Valid(layer *grid.Layer, start time.Time, span time.Duration, option uint32) error {
	next, err := f.Next(layer)
	if err != nil {
		return err
	}
	err = next.Valid(layer, start, span, option)
	if root := f.Root(); root != nil {
		if werr := f.SetWorldLocation(root); werr != nil {
			diagf("world location refresh failed: %v", werr)
		}
	}
	return err
}

// PutGridEngine binds next below the filter. Binding the root engine also
// loads the world location from it.
func (f *Filter) PutGridEngine(layer *grid.Layer, next grid.Engine) error {
	if err := f.Chain.PutGridEngine(layer, next); err != nil {
		return err
	}
	if layer == nil && next != nil {
		return f.SetWorldLocation(next)
	}
	return nil
}

// SetWorldLocation reads the time manager and spatial reference from root.
func (f *Filter) SetWorldLocation(root grid.Engine) error {
	cd, err := root.CommonData(nil)
	if err != nil {
		return fmt.Errorf("common data: %w", err)
	}
	v, err := root.GetAttribute(nil, grid.AttrSpatialReference)
	if err != nil {
		return fmt.Errorf("spatial reference: %w", err)
	}
	src, err := v.Text()
	if err != nil {
		return fmt.Errorf("%w: %v", grid.ErrProjectionUnknown, err)
	}
	conv, err := geo.Parse(src)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if cd != nil && cd.Time != nil {
		f.setTimeManager(cd.Time)
	}
	f.conv = conv
	return nil
}

// setTimeManager switches the calendar, re-keying daily entries so each
// keeps its local calendar date. Must be called with f.mu write-locked.
func (f *Filter) setTimeManager(tm *timeutil.Manager) {
	if tm == f.tm {
		return
	}
	loc := tm.Location()
	for i := range f.daily {
		y, m, d := f.daily[i].Day.Date()
		f.daily[i].Day = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	f.tm = tm
}

// PutCommonData adopts the shared time manager.
func (f *Filter) PutCommonData(_ *grid.Layer, data *grid.CommonData) error {
	if data == nil || data.Time == nil {
		return fmt.Errorf("%w: nil common data", grid.ErrInvalidArgument)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setTimeManager(data.Time)
	return nil
}

// GetAttribute answers the load warning for the nil layer and forwards
// everything else.
func (f *Filter) GetAttribute(layer *grid.Layer, key grid.AttributeKey) (grid.Value, error) {
	if layer == nil && key == grid.AttrLoadWarning {
		return grid.StringValue(f.LoadWarning()), nil
	}
	return f.Chain.GetAttribute(layer, key)
}

var _ grid.Engine = (*Filter)(nil)
