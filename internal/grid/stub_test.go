package grid

import (
	"sync"
	"time"
)

// stubEngine is a bottom-of-stack engine that records what reaches it.
type stubEngine struct {
	mu       sync.Mutex
	lock     StateLock
	lockErr  error
	locks    []LockMode
	attrs    map[AttributeKey]Value
	events   int
	pre      int
	post     int
	validErr error
}

func newStub() *stubEngine {
	return &stubEngine{attrs: map[AttributeKey]Value{}}
}

func (s *stubEngine) Lock(layer *Layer, exclusive bool, mode LockMode) (LockState, error) {
	s.mu.Lock()
	s.locks = append(s.locks, mode)
	err := s.lockErr
	s.mu.Unlock()
	if err != nil {
		return Unlocked, err
	}
	switch mode {
	case LockObtain:
		if exclusive {
			s.lock.Lock()
		} else {
			s.lock.LockScenario()
		}
	case LockRelease:
		if exclusive {
			s.lock.Unlock()
		} else {
			s.lock.UnlockScenario()
		}
	}
	return s.lock.State(), nil
}

func (s *stubEngine) Valid(*Layer, time.Time, time.Duration, uint32) error { return s.validErr }

func (s *stubEngine) GetAttribute(_ *Layer, key AttributeKey) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	if !ok {
		return Value{}, ErrInvalidArgument
	}
	return v, nil
}

func (s *stubEngine) GetAttributeData(_ *Layer, q Query) (Value, Validity, error) {
	v, err := s.GetAttribute(nil, q.Key)
	if err != nil {
		return Value{}, NotSet, ErrNoData
	}
	return v, Set, nil
}

func (s *stubEngine) GetAttributeDataArray(_ *Layer, q ArrayQuery) (*Array, error) {
	cols, rows, err := q.Dims()
	if err != nil {
		return nil, err
	}
	return NewArray(cols, rows), nil
}

func (s *stubEngine) GetEventTime(_ *Layer, _ Point, _ EventFlags, from time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	s.events++
	s.mu.Unlock()
	return time.Time{}, false, nil
}

func (s *stubEngine) GridEngine(*Layer) (Engine, error)       { return nil, ErrUninitialized }
func (s *stubEngine) PutGridEngine(*Layer, Engine) error      { return ErrNotImplemented }
func (s *stubEngine) CommonData(*Layer) (*CommonData, error)  { return &CommonData{}, nil }
func (s *stubEngine) PutCommonData(*Layer, *CommonData) error { return nil }

func (s *stubEngine) PreCalculationEvent(*Layer, time.Time, uint32) error {
	s.mu.Lock()
	s.pre++
	s.mu.Unlock()
	return nil
}

func (s *stubEngine) PostCalculationEvent(*Layer, time.Time, uint32) error {
	s.mu.Lock()
	s.post++
	s.mu.Unlock()
	return nil
}

// passEngine is a stacked engine that only forwards, with its own lock.
type passEngine struct {
	Chain
	lock StateLock
}

func newPass(r *Registry) *passEngine {
	p := &passEngine{}
	p.Init(p, r)
	p.lock.Name = "pass"
	return p
}

func (p *passEngine) Lock(layer *Layer, exclusive bool, mode LockMode) (LockState, error) {
	return p.LockThrough(&p.lock, layer, exclusive, mode)
}
