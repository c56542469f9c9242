// Package basegrid provides the root engine that terminates a grid stack.
// It owns the common data and the spatial reference of the run, answers
// static attribute data and never forwards.
package basegrid

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/timeutil"
)

// Extent describes the grid footprint in the source projection.
type Extent struct {
	Projection string
	Resolution float64
	XLL, YLL   float64
	Cols, Rows int
}

// Engine is the bottom-of-stack grid engine.
type Engine struct {
	lock grid.StateLock

	mu     sync.RWMutex
	extent Extent
	common grid.CommonData
	data   map[grid.AttributeKey]grid.Value
}

// New returns a root engine over extent using tm for calendar work.
func New(extent Extent, tm *timeutil.Manager) (*Engine, error) {
	if extent.Projection == "" {
		return nil, fmt.Errorf("%w: empty projection", grid.ErrProjectionUnknown)
	}
	if extent.Resolution <= 0 {
		return nil, fmt.Errorf("%w: resolution %g", grid.ErrInvalidArgument, extent.Resolution)
	}
	if tm == nil {
		tm = timeutil.NewManager(time.UTC)
	}
	e := &Engine{
		extent: extent,
		common: grid.CommonData{Time: tm},
		data:   map[grid.AttributeKey]grid.Value{},
	}
	e.lock.Name = "basegrid"
	return e, nil
}

// SetData makes key answer v everywhere in the grid.
func (e *Engine) SetData(key grid.AttributeKey, v grid.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data[key] = v
}

// ClearData removes a static answer.
func (e *Engine) ClearData(key grid.AttributeKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.data, key)
}

// StateLock exposes the engine's own lock for watchdog configuration.
func (e *Engine) StateLock() *grid.StateLock { return &e.lock }

func (e *Engine) Lock(_ *grid.Layer, exclusive bool, mode grid.LockMode) (grid.LockState, error) {
	switch mode {
	case grid.LockQuery:
	case grid.LockObtain:
		if exclusive {
			e.lock.Lock()
		} else {
			e.lock.LockScenario()
		}
	case grid.LockRelease:
		held := e.lock.UnlockScenario
		if exclusive {
			held = e.lock.Unlock
		}
		if !held() {
			return e.lock.State(), fmt.Errorf("%w: release without obtain", grid.ErrInvalidArgument)
		}
	default:
		return grid.Unlocked, fmt.Errorf("%w: lock mode %d", grid.ErrInvalidArgument, mode)
	}
	return e.lock.State(), nil
}

func (e *Engine) Valid(*grid.Layer, time.Time, time.Duration, uint32) error { return nil }

func (e *Engine) GetAttribute(_ *grid.Layer, key grid.AttributeKey) (grid.Value, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	x := e.extent
	switch key {
	case grid.AttrSpatialReference:
		return grid.StringValue(x.Projection), nil
	case grid.AttrPlotResolution:
		return grid.FloatValue(x.Resolution), nil
	case grid.AttrXLLCorner:
		return grid.FloatValue(x.XLL), nil
	case grid.AttrYLLCorner:
		return grid.FloatValue(x.YLL), nil
	case grid.AttrXURCorner:
		return grid.FloatValue(x.XLL + float64(x.Cols)*x.Resolution), nil
	case grid.AttrYURCorner:
		return grid.FloatValue(x.YLL + float64(x.Rows)*x.Resolution), nil
	case grid.AttrTimezone:
		return grid.StringValue(e.common.Time.Location().String()), nil
	}
	return grid.Value{}, fmt.Errorf("%w: %s", grid.ErrInvalidArgument, key)
}

func (e *Engine) GetAttributeData(_ *grid.Layer, q grid.Query) (grid.Value, grid.Validity, error) {
	if !e.contains(q.Point) {
		return grid.Value{}, grid.NotSet, grid.ErrNoData
	}
	e.mu.RLock()
	v, ok := e.data[q.Key]
	e.mu.RUnlock()
	if !ok {
		return grid.Value{}, grid.NotSet, grid.ErrNoData
	}
	return v, grid.Set, nil
}

func (e *Engine) GetAttributeDataArray(_ *grid.Layer, q grid.ArrayQuery) (*grid.Array, error) {
	cols, rows, err := q.Dims()
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	v, ok := e.data[q.Key]
	e.mu.RUnlock()
	if !ok {
		return nil, grid.ErrNoData
	}
	out := grid.NewArray(cols, rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if e.contains(q.Cell(c, r)) {
				i := r*cols + c
				out.Values[i], out.Valid[i] = v, grid.Set
			}
		}
	}
	return out, nil
}

// GetEventTime reports no events; the root grid is time invariant.
func (e *Engine) GetEventTime(*grid.Layer, grid.Point, grid.EventFlags, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (e *Engine) GridEngine(*grid.Layer) (grid.Engine, error) { return nil, grid.ErrUninitialized }

func (e *Engine) PutGridEngine(*grid.Layer, grid.Engine) error { return grid.ErrNotImplemented }

func (e *Engine) CommonData(*grid.Layer) (*grid.CommonData, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c := e.common
	return &c, nil
}

func (e *Engine) PutCommonData(_ *grid.Layer, data *grid.CommonData) error {
	if data == nil || data.Time == nil {
		return fmt.Errorf("%w: nil common data", grid.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.common = *data
	return nil
}

func (e *Engine) PreCalculationEvent(*grid.Layer, time.Time, uint32) error  { return nil }
func (e *Engine) PostCalculationEvent(*grid.Layer, time.Time, uint32) error { return nil }

func (e *Engine) contains(pt grid.Point) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	x := e.extent
	if x.Cols == 0 || x.Rows == 0 {
		return true
	}
	return pt.X >= x.XLL && pt.Y >= x.YLL &&
		pt.X < x.XLL+float64(x.Cols)*x.Resolution &&
		pt.Y < x.YLL+float64(x.Rows)*x.Resolution
}

var _ grid.Engine = (*Engine)(nil)
