package grid

import (
	"sync"
	"time"

	"github.com/banshee-data/gridstack/internal/monitoring"
	"github.com/banshee-data/gridstack/internal/timeutil"
)

// ScenarioWeight is the counter weight a scenario reader contributes in
// the packed counter form returned by StateLock.Counter.
const ScenarioWeight = 1_000_000

// LockState is the observable state of an engine's lock.
type LockState uint8

const (
	Unlocked LockState = iota
	WriteLocked
	ReadLocked
	ScenarioLocked
)

func (s LockState) String() string {
	switch s {
	case WriteLocked:
		return "write"
	case ReadLocked:
		return "read"
	case ScenarioLocked:
		return "scenario"
	}
	return "unlocked"
}

// LockMode selects what Engine.Lock does.
type LockMode uint8

const (
	LockRelease LockMode = iota
	LockObtain
	LockQuery
)

func (m LockMode) String() string {
	switch m {
	case LockObtain:
		return "obtain"
	case LockQuery:
		return "query"
	}
	return "release"
}

// StateLock is a reader/writer lock that distinguishes ordinary readers
// (editors inspecting state) from scenario readers (running simulations).
// Both reader kinds block writers identically. Waiters are never timed out;
// when a wait threshold is configured, a long wait is only reported.
type StateLock struct {
	Name string

	mu        sync.Mutex
	cond      sync.Cond
	writer    bool
	readers   int64
	scenarios int64

	clock     timeutil.Clock
	warnAfter time.Duration
}

// SetWaitWarning enables the contention watchdog. A zero threshold turns it
// off.
func (l *StateLock) SetWaitWarning(clock timeutil.Clock, threshold time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
	l.warnAfter = threshold
}

// Lock takes the lock exclusively.
func (l *StateLock) Lock() {
	l.acquire("write", func() bool { return l.writer || l.readers > 0 || l.scenarios > 0 }, func() { l.writer = true })
}

// Unlock releases an exclusive hold. It reports false if none was held.
func (l *StateLock) Unlock() bool {
	return l.release(func() bool {
		if !l.writer {
			return false
		}
		l.writer = false
		return true
	})
}

// RLock adds an ordinary reader.
func (l *StateLock) RLock() {
	l.acquire("read", func() bool { return l.writer }, func() { l.readers++ })
}

// RUnlock removes an ordinary reader. It reports false if none was held.
func (l *StateLock) RUnlock() bool {
	return l.release(func() bool {
		if l.readers == 0 {
			return false
		}
		l.readers--
		return true
	})
}

// LockScenario adds a scenario reader.
func (l *StateLock) LockScenario() {
	l.acquire("scenario", func() bool { return l.writer }, func() { l.scenarios++ })
}

// UnlockScenario removes a scenario reader. It reports false if none was held.
func (l *StateLock) UnlockScenario() bool {
	return l.release(func() bool {
		if l.scenarios == 0 {
			return false
		}
		l.scenarios--
		return true
	})
}

// State reports which of the four states currently holds.
func (l *StateLock) State() LockState {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.writer:
		return WriteLocked
	case l.scenarios > 0:
		return ScenarioLocked
	case l.readers > 0:
		return ReadLocked
	}
	return Unlocked
}

// Counter returns the packed signed form of the lock state: negative when
// write-locked, otherwise readers plus ScenarioWeight per scenario reader.
func (l *StateLock) Counter() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer {
		return -1
	}
	return l.readers + l.scenarios*ScenarioWeight
}

func (l *StateLock) acquire(kind string, blocked func() bool, take func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cond.L == nil {
		l.cond.L = &l.mu
	}
	if blocked() {
		monitoring.LockWaits.WithLabelValues(kind).Inc()
		stop := l.watch(kind)
		for blocked() {
			l.cond.Wait()
		}
		stop()
	}
	take()
}

func (l *StateLock) release(drop func() bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !drop() {
		return false
	}
	if l.cond.L != nil {
		l.cond.Broadcast()
	}
	return true
}

// watch must be called with l.mu held.
func (l *StateLock) watch(kind string) func() {
	if l.warnAfter <= 0 {
		return func() {}
	}
	clock := l.clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	threshold, name := l.warnAfter, l.Name
	timer := clock.NewTimer(threshold)
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C():
			monitoring.LockWaitWarnings.WithLabelValues(kind).Inc()
			diagf("%s lock on %q still waiting after %v", kind, name, threshold)
		case <-done:
			timer.Stop()
		}
	}()
	return func() { close(done) }
}
