package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock_NewTimer(t *testing.T) {
	timer := RealClock{}.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestMockClock_AdvanceFiresDueTimers(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	short := clock.NewTimer(time.Second)
	long := clock.NewTimer(time.Minute)
	require.Equal(t, 2, clock.PendingTimers())

	clock.Advance(2 * time.Second)
	select {
	case got := <-short.C():
		assert.Equal(t, start.Add(2*time.Second), got)
	default:
		t.Fatal("short timer did not fire")
	}
	select {
	case <-long.C():
		t.Fatal("long timer fired early")
	default:
	}
	assert.Equal(t, 1, clock.PendingTimers())
	assert.Equal(t, 2*time.Second, clock.Since(start))
}

func TestMockClock_StoppedTimerNeverFires(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(time.Second)
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clock.Advance(time.Hour)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
	assert.Zero(t, clock.PendingTimers())
}

func TestMockClock_Set(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	target := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(target)
	assert.Equal(t, target, clock.Now())
}
