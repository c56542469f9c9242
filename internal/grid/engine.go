package grid

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/gridstack/internal/timeutil"
)

// Engine is the capability every stacked data provider implements.
// Requests a provider does not serve locally are forwarded to the engine
// bound below it for the given layer. A nil layer addresses the root
// (configuration-time) chain.
type Engine interface {
	Lock(layer *Layer, exclusive bool, mode LockMode) (LockState, error)
	Valid(layer *Layer, start time.Time, span time.Duration, option uint32) error

	GetAttribute(layer *Layer, key AttributeKey) (Value, error)
	GetAttributeData(layer *Layer, q Query) (Value, Validity, error)
	GetAttributeDataArray(layer *Layer, q ArrayQuery) (*Array, error)
	GetEventTime(layer *Layer, pt Point, flags EventFlags, from time.Time) (time.Time, bool, error)

	GridEngine(layer *Layer) (Engine, error)
	PutGridEngine(layer *Layer, next Engine) error
	CommonData(layer *Layer) (*CommonData, error)
	PutCommonData(layer *Layer, data *CommonData) error

	PreCalculationEvent(layer *Layer, t time.Time, mode uint32) error
	PostCalculationEvent(layer *Layer, t time.Time, mode uint32) error
}

// CommonData is shared by every engine in a stack.
type CommonData struct {
	Time *timeutil.Manager
}

// Query is a point attribute lookup.
type Query struct {
	Point Point
	Time  time.Time
	Span  time.Duration
	Key   AttributeKey
	Flags uint64
}

// ArrayQuery is a rectangular attribute lookup sampled every Scale units.
type ArrayQuery struct {
	Min, Max Point
	Scale    float64
	Time     time.Time
	Span     time.Duration
	Key      AttributeKey
	Flags    uint64
}

// Dims returns the number of columns and rows the query covers.
func (q ArrayQuery) Dims() (cols, rows int, err error) {
	if q.Scale <= 0 {
		return 0, 0, fmt.Errorf("%w: bad array scale %g", ErrInvalidArgument, q.Scale)
	}
	steps := r2.Scale(1/q.Scale, r2.Sub(q.Max, q.Min))
	if steps.X < 0 || steps.Y < 0 {
		return 0, 0, fmt.Errorf("%w: bad array bounds", ErrInvalidArgument)
	}
	return int(steps.X) + 1, int(steps.Y) + 1, nil
}

// Cell returns the sample point of column c, row r.
func (q ArrayQuery) Cell(c, r int) Point {
	return r2.Add(q.Min, r2.Scale(q.Scale, Point{X: float64(c), Y: float64(r)}))
}

// Array holds a row-major block of attribute values.
type Array struct {
	Cols, Rows int
	Values     []Value
	Valid      []Validity
}

// NewArray allocates a cols by rows block.
func NewArray(cols, rows int) *Array {
	return &Array{
		Cols:   cols,
		Rows:   rows,
		Values: make([]Value, cols*rows),
		Valid:  make([]Validity, cols*rows),
	}
}

// At returns the cell at column c, row r.
func (a *Array) At(c, r int) (Value, Validity) {
	i := r*a.Cols + c
	return a.Values[i], a.Valid[i]
}

// CalculationBinding is the mode bit of Pre/PostCalculationEvent that
// pins the layer binding for the duration of a calculation.
const CalculationBinding uint32 = 0x1

// Chain carries the next-lower-engine plumbing shared by stacked engines.
// Embed it and call Init with the embedding engine; methods the embedding
// type does not override forward unchanged.
type Chain struct {
	self Engine

	mu       sync.RWMutex
	registry *Registry
	root     Engine
}

// Init records the engine that embeds c (used as the binding key) and the
// registry that resolves layers.
func (c *Chain) Init(self Engine, r *Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.self = self
	c.registry = r
}

// Registry returns the layer registry, or nil.
func (c *Chain) Registry() *Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry
}

// Next returns the engine below c on layer. It fails with ErrUninitialized
// when nothing is bound.
func (c *Chain) Next(layer *Layer) (Engine, error) {
	e, _, err := c.next(layer)
	return e, err
}

func (c *Chain) next(layer *Layer) (Engine, *Usage, error) {
	c.mu.RLock()
	root, reg, self := c.root, c.registry, c.self
	c.mu.RUnlock()

	if layer == nil {
		if root == nil {
			return nil, nil, ErrUninitialized
		}
		return root, nil, nil
	}
	if reg == nil {
		return nil, nil, ErrUninitialized
	}
	e, u, err := reg.Binding(layer, self)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, ErrUninitialized
	}
	if err != nil {
		return nil, nil, err
	}
	return e, u, nil
}

// Root returns the engine bound below c for the nil layer.
func (c *Chain) Root() Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

func (c *Chain) Lock(layer *Layer, exclusive bool, mode LockMode) (LockState, error) {
	next, err := c.Next(layer)
	if err != nil {
		return Unlocked, err
	}
	return next.Lock(layer, exclusive, mode)
}

// LockThrough applies the stacked locking protocol with local as this
// engine's own lock. Obtain takes the local lock and then forwards,
// unwinding the local lock if forwarding fails. Release forwards first.
// Non-exclusive obtains are scenario holds.
func (c *Chain) LockThrough(local *StateLock, layer *Layer, exclusive bool, mode LockMode) (LockState, error) {
	next, err := c.Next(layer)
	if err != nil {
		return Unlocked, err
	}

	switch mode {
	case LockQuery:
		return local.State(), nil

	case LockObtain:
		if exclusive {
			local.Lock()
		} else {
			local.LockScenario()
		}
		if _, err := next.Lock(layer, exclusive, mode); err != nil {
			if exclusive {
				local.Unlock()
			} else {
				local.UnlockScenario()
			}
			return local.State(), fmt.Errorf("forward lock: %w", err)
		}
		return local.State(), nil

	case LockRelease:
		_, ferr := next.Lock(layer, exclusive, mode)
		var held bool
		if exclusive {
			held = local.Unlock()
		} else {
			held = local.UnlockScenario()
		}
		if !held {
			opsf("release of %q without matching obtain (exclusive=%t)", local.Name, exclusive)
			return local.State(), fmt.Errorf("%w: release without obtain", ErrInvalidArgument)
		}
		if ferr != nil {
			return local.State(), fmt.Errorf("forward unlock: %w", ferr)
		}
		return local.State(), nil
	}
	return Unlocked, fmt.Errorf("%w: lock mode %d", ErrInvalidArgument, mode)
}

func (c *Chain) Valid(layer *Layer, start time.Time, span time.Duration, option uint32) error {
	next, err := c.Next(layer)
	if err != nil {
		return err
	}
	return next.Valid(layer, start, span, option)
}

func (c *Chain) GetAttribute(layer *Layer, key AttributeKey) (Value, error) {
	next, err := c.Next(layer)
	if err != nil {
		return Value{}, err
	}
	return next.GetAttribute(layer, key)
}

func (c *Chain) GetAttributeData(layer *Layer, q Query) (Value, Validity, error) {
	next, err := c.Next(layer)
	if err != nil {
		return Value{}, NotSet, err
	}
	tracef("forward %s at %s", q.Key, q.Time.Format(time.RFC3339))
	return next.GetAttributeData(layer, q)
}

func (c *Chain) GetAttributeDataArray(layer *Layer, q ArrayQuery) (*Array, error) {
	next, err := c.Next(layer)
	if err != nil {
		return nil, err
	}
	return next.GetAttributeDataArray(layer, q)
}

func (c *Chain) GetEventTime(layer *Layer, pt Point, flags EventFlags, from time.Time) (time.Time, bool, error) {
	next, err := c.Next(layer)
	if err != nil {
		return time.Time{}, false, err
	}
	return next.GetEventTime(layer, pt, flags, from)
}

// GridEngine returns the engine bound below c on layer.
func (c *Chain) GridEngine(layer *Layer) (Engine, error) {
	return c.Next(layer)
}

// PutGridEngine binds next below c on layer. A nil layer sets the root
// engine; a nil next removes the binding.
func (c *Chain) PutGridEngine(layer *Layer, next Engine) error {
	if layer == nil {
		c.mu.Lock()
		c.root = next
		c.mu.Unlock()
		return nil
	}
	reg := c.Registry()
	if reg == nil {
		return fmt.Errorf("%w: no layer registry", ErrUninitialized)
	}
	c.mu.RLock()
	self := c.self
	c.mu.RUnlock()
	return reg.PutBinding(layer, self, next)
}

func (c *Chain) CommonData(layer *Layer) (*CommonData, error) {
	next, err := c.Next(layer)
	if err != nil {
		return nil, err
	}
	return next.CommonData(layer)
}

func (c *Chain) PutCommonData(layer *Layer, data *CommonData) error {
	return ErrNotImplemented
}

// PreCalculationEvent pins the binding for mode CalculationBinding and
// forwards.
func (c *Chain) PreCalculationEvent(layer *Layer, t time.Time, mode uint32) error {
	next, usage, err := c.next(layer)
	if err != nil {
		return err
	}
	if mode&CalculationBinding != 0 && usage != nil {
		usage.Acquire()
	}
	return next.PreCalculationEvent(layer, t, mode)
}

// PostCalculationEvent releases the pin taken by PreCalculationEvent and
// forwards.
func (c *Chain) PostCalculationEvent(layer *Layer, t time.Time, mode uint32) error {
	next, usage, err := c.next(layer)
	if err != nil {
		return err
	}
	if mode&CalculationBinding != 0 && usage != nil {
		usage.Done()
	}
	return next.PostCalculationEvent(layer, t, mode)
}

var _ Engine = (*Chain)(nil)
