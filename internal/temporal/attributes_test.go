package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridstack/internal/grid"
)

func TestGetAttributeData_DailyOverrides(t *testing.T) {
	t.Parallel()

	s := newTestStack(t, fixedSun)
	s.root.SetData(grid.AttrMinRH, grid.FloatValue(0.5))
	require.NoError(t, s.f.SetDailyOption(grid.AttrMinRH, s.at(10, 0), grid.FloatValue(0.3), true))
	require.NoError(t, s.f.SetDailyOption(grid.AttrMaxWS, s.at(10, 0), grid.FloatValue(25), false))

	v, valid, err := s.f.GetAttributeData(s.layer, grid.Query{Time: s.at(10, 14), Key: grid.AttrMinRH})
	require.NoError(t, err)
	assert.Equal(t, grid.Set, valid)
	assert.Equal(t, 0.3, floatOf(t, v))

	// The entry answers even when the field is not in force.
	v, valid, err = s.f.GetAttributeData(s.layer, grid.Query{Time: s.at(10, 14), Key: grid.AttrMaxWS})
	require.NoError(t, err)
	assert.Equal(t, grid.NotSet, valid)
	assert.Equal(t, 25.0, floatOf(t, v))

	v, valid, err = s.f.GetAttributeData(s.layer, grid.Query{Time: s.at(11, 14), Key: grid.AttrMinRH})
	require.NoError(t, err, "days without an entry forward")
	assert.Equal(t, grid.Set, valid)
	assert.Equal(t, 0.5, floatOf(t, v))

	_, _, err = s.f.GetAttributeData(s.layer, grid.Query{Time: s.at(11, 14), Key: grid.AttrMinFWI})
	assert.ErrorIs(t, err, grid.ErrNoData)
}

func TestGetAttributeData_SeasonalPrefersLowerEngine(t *testing.T) {
	t.Parallel()

	s := newTestStack(t, fixedSun)
	require.NoError(t, s.f.SetSeasonalOption(grid.AttrCuringDegree, 100, grid.FloatValue(80), true))

	q := grid.Query{Time: s.yearDay(150), Key: grid.AttrCuringDegree}
	v, valid, err := s.f.GetAttributeData(s.layer, q)
	require.NoError(t, err)
	assert.Equal(t, grid.Set, valid)
	assert.Equal(t, 80.0, floatOf(t, v))

	s.root.SetData(grid.AttrCuringDegree, grid.FloatValue(55))
	v, _, err = s.f.GetAttributeData(s.layer, q)
	require.NoError(t, err)
	assert.Equal(t, 55.0, floatOf(t, v))

	s.root.ClearData(grid.AttrCuringDegree)
	_, _, err = s.f.GetAttributeData(s.layer, grid.Query{Time: s.yearDay(50), Key: grid.AttrCuringDegree})
	assert.ErrorIs(t, err, grid.ErrNoData, "before the first entry the query forwards")
}

func TestGetAttributeData_Uninitialized(t *testing.T) {
	t.Parallel()

	reg := grid.NewRegistry()
	layer, err := reg.Allocate()
	require.NoError(t, err)
	f := New(Options{Registry: reg})

	_, _, err = f.GetAttributeData(layer, grid.Query{Key: grid.AttrMinRH})
	assert.ErrorIs(t, err, grid.ErrUninitialized)
	_, err = f.GetAttributeDataArray(layer, grid.ArrayQuery{Scale: 1})
	assert.ErrorIs(t, err, grid.ErrUninitialized)
	_, _, err = f.GetEventTime(layer, grid.Point{}, grid.SearchForward, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, grid.ErrUninitialized)
	_, err = f.Lock(layer, false, grid.LockObtain)
	assert.ErrorIs(t, err, grid.ErrUninitialized)
}

func TestGetAttributeDataArray_Forwards(t *testing.T) {
	t.Parallel()

	s := newTestStack(t, fixedSun)
	s.root.SetData(grid.AttrMaxWS, grid.FloatValue(7))

	arr, err := s.f.GetAttributeDataArray(s.layer, grid.ArrayQuery{Max: grid.Point{X: 1, Y: 1}, Scale: 1, Key: grid.AttrMaxWS})
	require.NoError(t, err)
	v, valid := arr.At(1, 1)
	assert.Equal(t, grid.Set, valid)
	assert.Equal(t, 7.0, floatOf(t, v))
}
