package basegrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/timeutil"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Extent{Projection: "EPSG:4326", Resolution: 0.5, XLL: -114, YLL: 53, Cols: 4, Rows: 2}, nil)
	require.NoError(t, err)
	return e
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Extent{Resolution: 1}, nil)
	assert.ErrorIs(t, err, grid.ErrProjectionUnknown)
	_, err = New(Extent{Projection: "EPSG:4326"}, nil)
	assert.ErrorIs(t, err, grid.ErrInvalidArgument)
}

func TestEngine_SpatialAttributes(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	tests := []struct {
		key  grid.AttributeKey
		want string
	}{
		{grid.AttrSpatialReference, "EPSG:4326"},
		{grid.AttrPlotResolution, "0.5"},
		{grid.AttrXLLCorner, "-114"},
		{grid.AttrYLLCorner, "53"},
		{grid.AttrXURCorner, "-112"},
		{grid.AttrYURCorner, "54"},
		{grid.AttrTimezone, "UTC"},
	}
	for _, tt := range tests {
		v, err := e.GetAttribute(nil, tt.key)
		require.NoError(t, err, tt.key.String())
		assert.Equal(t, tt.want, v.String(), tt.key.String())
	}
	_, err := e.GetAttribute(nil, grid.AttrMinRH)
	assert.ErrorIs(t, err, grid.ErrInvalidArgument)
}

func TestEngine_AttributeData(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	q := grid.Query{Point: grid.Point{X: -113.2, Y: 53.4}, Key: grid.AttrCuringDegree}

	_, _, err := e.GetAttributeData(nil, q)
	assert.ErrorIs(t, err, grid.ErrNoData)

	e.SetData(grid.AttrCuringDegree, grid.FloatValue(75))
	v, valid, err := e.GetAttributeData(nil, q)
	require.NoError(t, err)
	assert.Equal(t, grid.Set, valid)
	assert.Equal(t, "75", v.String())

	q.Point = grid.Point{X: 0, Y: 0}
	_, _, err = e.GetAttributeData(nil, q)
	assert.ErrorIs(t, err, grid.ErrNoData, "outside the extent")

	arr, err := e.GetAttributeDataArray(nil, grid.ArrayQuery{
		Min: grid.Point{X: -112.5, Y: 53}, Max: grid.Point{X: -111.5, Y: 53}, Scale: 0.5, Key: grid.AttrCuringDegree,
	})
	require.NoError(t, err)
	_, in := arr.At(0, 0)
	_, out := arr.At(2, 0)
	assert.Equal(t, grid.Set, in)
	assert.Equal(t, grid.NotSet, out)

	e.ClearData(grid.AttrCuringDegree)
	_, err = e.GetAttributeDataArray(nil, grid.ArrayQuery{Max: grid.Point{X: 1, Y: 1}, Scale: 1, Key: grid.AttrCuringDegree})
	assert.ErrorIs(t, err, grid.ErrNoData)
}

func TestEngine_Lock(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	st, err := e.Lock(nil, false, grid.LockObtain)
	require.NoError(t, err)
	assert.Equal(t, grid.ScenarioLocked, st)

	st, err = e.Lock(nil, false, grid.LockRelease)
	require.NoError(t, err)
	assert.Equal(t, grid.Unlocked, st)

	_, err = e.Lock(nil, true, grid.LockRelease)
	assert.ErrorIs(t, err, grid.ErrInvalidArgument)
}

func TestEngine_CommonData(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	loc, err := timeutil.FixedZone(-7 * 60)
	require.NoError(t, err)
	require.NoError(t, e.PutCommonData(nil, &grid.CommonData{Time: timeutil.NewManager(loc)}))

	cd, err := e.CommonData(nil)
	require.NoError(t, err)
	assert.Equal(t, loc, cd.Time.Location())
	assert.ErrorIs(t, e.PutCommonData(nil, nil), grid.ErrInvalidArgument)

	_, ok, err := e.GetEventTime(nil, grid.Point{}, grid.SearchForward, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = e.GridEngine(nil)
	assert.ErrorIs(t, err, grid.ErrUninitialized)
}
