package grid

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stack(t *testing.T) (*Registry, *Layer, *passEngine, *stubEngine) {
	t.Helper()
	reg := NewRegistry()
	layer, err := reg.Allocate()
	require.NoError(t, err)
	top, bottom := newPass(reg), newStub()
	require.NoError(t, top.PutGridEngine(layer, bottom))
	return reg, layer, top, bottom
}

func TestChain_Uninitialized(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	layer, err := reg.Allocate()
	require.NoError(t, err)
	top := newPass(reg)

	for _, mode := range []LockMode{LockObtain, LockRelease, LockQuery} {
		_, err := top.Lock(layer, true, mode)
		assert.ErrorIs(t, err, ErrUninitialized, mode.String())
	}
	_, _, err = top.GetAttributeData(layer, Query{Key: AttrMinRH})
	assert.ErrorIs(t, err, ErrUninitialized)
	_, _, err = top.GetEventTime(layer, Point{}, SearchForward, time.Now())
	assert.ErrorIs(t, err, ErrUninitialized)
	_, err = top.GetAttribute(nil, AttrLoadWarning)
	assert.ErrorIs(t, err, ErrUninitialized)
	assert.Equal(t, Unlocked, top.lock.State())
}

func TestChain_Forwarding(t *testing.T) {
	t.Parallel()

	_, layer, top, bottom := stack(t)
	bottom.attrs[AttrMaxWS] = FloatValue(12)

	v, valid, err := top.GetAttributeData(layer, Query{Key: AttrMaxWS})
	require.NoError(t, err)
	assert.Equal(t, Set, valid)
	f, err := v.Float()
	require.NoError(t, err)
	assert.Equal(t, 12.0, f)

	arr, err := top.GetAttributeDataArray(layer, ArrayQuery{Max: Point{X: 2, Y: 1}, Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, arr.Cols)
	assert.Equal(t, 2, arr.Rows)

	_, ok, err := top.GetEventTime(layer, Point{}, SearchForward, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, bottom.events)

	got, err := top.GridEngine(layer)
	require.NoError(t, err)
	assert.Same(t, bottom, got.(*stubEngine))

	assert.ErrorIs(t, top.PutCommonData(layer, &CommonData{}), ErrNotImplemented)
}

func TestChain_RootEngine(t *testing.T) {
	t.Parallel()

	top := newPass(NewRegistry())
	root := newStub()
	root.attrs[AttrPlotResolution] = FloatValue(100)

	require.NoError(t, top.PutGridEngine(nil, root))
	assert.Same(t, root, top.Root().(*stubEngine))

	v, err := top.GetAttribute(nil, AttrPlotResolution)
	require.NoError(t, err)
	assert.Equal(t, "100", v.String())
}

func TestChain_LockProtocol(t *testing.T) {
	t.Parallel()

	_, layer, top, bottom := stack(t)

	st, err := top.Lock(layer, false, LockObtain)
	require.NoError(t, err)
	assert.Equal(t, ScenarioLocked, st)
	assert.Equal(t, ScenarioLocked, bottom.lock.State())

	st, err = top.Lock(layer, false, LockQuery)
	require.NoError(t, err)
	assert.Equal(t, ScenarioLocked, st)

	st, err = top.Lock(layer, false, LockRelease)
	require.NoError(t, err)
	assert.Equal(t, Unlocked, st)
	assert.Equal(t, Unlocked, bottom.lock.State())
	assert.Equal(t, []LockMode{LockObtain, LockRelease}, bottom.locks, "query must not forward")

	st, err = top.Lock(layer, true, LockObtain)
	require.NoError(t, err)
	assert.Equal(t, WriteLocked, st)
	_, err = top.Lock(layer, true, LockRelease)
	require.NoError(t, err)
	assert.Zero(t, top.lock.Counter())
}

func TestChain_LockUnwindsOnForwardFailure(t *testing.T) {
	t.Parallel()

	_, layer, top, bottom := stack(t)
	boom := errors.New("lower lock failed")
	bottom.lockErr = boom

	st, err := top.Lock(layer, true, LockObtain)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Unlocked, st)
	assert.Zero(t, top.lock.Counter())
}

func TestChain_ReleaseWithoutObtain(t *testing.T) {
	t.Parallel()

	_, layer, top, _ := stack(t)
	_, err := top.Lock(layer, true, LockRelease)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestChain_CalculationEventsPinBinding(t *testing.T) {
	t.Parallel()

	reg, layer, top, bottom := stack(t)
	now := time.Now()

	require.NoError(t, top.PreCalculationEvent(layer, now, CalculationBinding))
	_, usage, err := reg.Binding(layer, top)
	require.NoError(t, err)
	assert.EqualValues(t, 1, usage.Count())
	assert.ErrorIs(t, top.PutGridEngine(layer, nil), ErrResourceBusy)

	require.NoError(t, top.PostCalculationEvent(layer, now, CalculationBinding))
	assert.Zero(t, usage.Count())

	// Other modes forward without pinning.
	require.NoError(t, top.PreCalculationEvent(layer, now, 0))
	assert.Zero(t, usage.Count())
	assert.Equal(t, 2, bottom.pre)
	assert.Equal(t, 1, bottom.post)

	require.NoError(t, top.PutGridEngine(layer, nil))
	require.NoError(t, reg.Release(layer))
}

func TestArrayQuery_Dims(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		q          ArrayQuery
		cols, rows int
		wantErr    bool
	}{
		{"zero scale", ArrayQuery{Scale: 0}, 0, 0, true},
		{"negative scale", ArrayQuery{Max: Point{X: 4, Y: 4}, Scale: -1}, 0, 0, true},
		{"inverted x", ArrayQuery{Min: Point{X: 5}, Max: Point{X: 1}, Scale: 1}, 0, 0, true},
		{"inverted y", ArrayQuery{Min: Point{Y: 5}, Max: Point{X: 1}, Scale: 1}, 0, 0, true},
		{"single cell", ArrayQuery{Min: Point{X: 3, Y: 3}, Max: Point{X: 3, Y: 3}, Scale: 1}, 1, 1, false},
		{"partial step", ArrayQuery{Min: Point{X: -10, Y: 0}, Max: Point{X: 10, Y: 5}, Scale: 4}, 6, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cols, rows, err := tt.q.Dims()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cols, cols)
			assert.Equal(t, tt.rows, rows)
		})
	}

	q := ArrayQuery{Min: Point{X: -10, Y: 2}, Max: Point{X: 10, Y: 8}, Scale: 2.5}
	assert.Equal(t, Point{X: -10, Y: 2}, q.Cell(0, 0))
	assert.Equal(t, Point{X: -2.5, Y: 7}, q.Cell(3, 2))

	arr := NewArray(2, 2)
	arr.Values[3] = BoolValue(true)
	arr.Valid[3] = Set
	v, valid := arr.At(1, 1)
	assert.Equal(t, Set, valid)
	b, err := v.Bool()
	require.NoError(t, err)
	assert.True(t, b)
}
