package grid

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Layer identifies one stacking position used by one simulation run. It is
// created by Registry.Allocate and owned by the Registry; engines only hold
// references to it.
type Layer struct {
	id       uuid.UUID
	bindings []*binding
}

// ID returns the layer's identifier.
func (l *Layer) ID() uuid.UUID { return l.id }

func (l *Layer) String() string { return "layer:" + l.id.String() }

type binding struct {
	key   Engine
	next  Engine
	usage Usage
	data  any
}

// Usage counts in-flight calculations that depend on a binding. A binding
// with a non-zero count cannot be removed.
type Usage struct {
	n atomic.Int64
}

// Acquire records one more dependent calculation.
func (u *Usage) Acquire() { u.n.Add(1) }

// Done releases one dependent calculation. It never drops below zero.
func (u *Usage) Done() {
	for {
		cur := u.n.Load()
		if cur <= 0 {
			return
		}
		if u.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Count returns the number of dependent calculations.
func (u *Usage) Count() int64 { return u.n.Load() }

// Registry owns the set of live layers and, per layer, which next-lower
// engine each requester delegates to.
type Registry struct {
	mu     sync.RWMutex
	layers []*Layer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Allocate creates a new empty layer.
func (r *Registry) Allocate() (*Layer, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("%w: layer id: %v", ErrOutOfMemory, err)
	}
	l := &Layer{id: id}

	r.mu.Lock()
	r.layers = append(r.layers, l)
	r.mu.Unlock()

	tracef("allocated %s", l)
	return l, nil
}

// Release frees a layer. It fails with ErrInvalidHandle for unknown layers
// and ErrResourceBusy while any binding remains.
func (r *Registry) Release(l *Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(l)
	if idx < 0 {
		return ErrInvalidHandle
	}
	if len(l.bindings) != 0 {
		opsf("release of %s refused: %d bindings remain", l, len(l.bindings))
		return fmt.Errorf("%s has %d bindings: %w", l, len(l.bindings), ErrResourceBusy)
	}
	r.layers = append(r.layers[:idx], r.layers[idx+1:]...)
	tracef("released %s", l)
	return nil
}

// Len returns the number of live layers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.layers)
}

// Binding returns the engine key delegates to on layer l, along with the
// binding's usage counter. A missing binding yields ErrNotFound.
func (r *Registry) Binding(l *Layer, key Engine) (Engine, *Usage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.indexLocked(l) < 0 {
		return nil, nil, ErrInvalidHandle
	}
	b := l.find(key)
	if b == nil {
		return nil, nil, ErrNotFound
	}
	return b.next, &b.usage, nil
}

// PutBinding records that key delegates to next on layer l. A nil next
// removes the binding: ErrNotFound if there is none, ErrResourceBusy while
// its usage counter is non-zero.
func (r *Registry) PutBinding(l *Layer, key, next Engine) error {
	if key == nil {
		return fmt.Errorf("%w: nil binding key", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(l) < 0 {
		return ErrInvalidHandle
	}
	for i, b := range l.bindings {
		if b.key != key {
			continue
		}
		if next != nil {
			b.next = next
			return nil
		}
		if n := b.usage.Count(); n != 0 {
			return fmt.Errorf("binding in use by %d calculations: %w", n, ErrResourceBusy)
		}
		l.bindings = append(l.bindings[:i], l.bindings[i+1:]...)
		return nil
	}
	if next == nil {
		return ErrNotFound
	}
	l.bindings = append(l.bindings, &binding{key: key, next: next})
	return nil
}

// UserData returns the opaque payload attached to key's binding on l.
func (r *Registry) UserData(l *Layer, key Engine) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.indexLocked(l) < 0 {
		return nil, ErrInvalidHandle
	}
	b := l.find(key)
	if b == nil {
		return nil, ErrNotFound
	}
	return b.data, nil
}

// PutUserData attaches an opaque payload to an existing binding.
func (r *Registry) PutUserData(l *Layer, key Engine, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(l) < 0 {
		return ErrInvalidHandle
	}
	b := l.find(key)
	if b == nil {
		return ErrNotFound
	}
	b.data = data
	return nil
}

func (r *Registry) indexLocked(l *Layer) int {
	if l == nil {
		return -1
	}
	for i, x := range r.layers {
		if x == l {
			return i
		}
	}
	return -1
}

func (l *Layer) find(key Engine) *binding {
	for _, b := range l.bindings {
		if b.key == key {
			return b
		}
	}
	return nil
}
