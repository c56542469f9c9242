package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridstack/internal/grid"
)

func TestDailyOption_SetGetClear(t *testing.T) {
	t.Parallel()

	s := newTestStack(t, fixedSun)
	f := s.f
	when := s.at(10, 15)

	_, _, err := f.DailyOption(grid.AttrMinRH, when)
	assert.ErrorIs(t, err, grid.ErrInvalidTime)
	assert.False(t, f.IsDirty())

	require.NoError(t, f.SetDailyOption(grid.AttrMinRH, when, grid.FloatValue(0.35), true))
	require.NoError(t, f.SetDailyOption(grid.AttrPeriodStart, when, grid.DurationValue(9*time.Hour), true))
	require.NoError(t, f.SetDailyOption(grid.AttrPeriodEndInterpret, when, grid.UintValue(uint64(FromSunRiseSet)), true))
	assert.True(t, f.IsDirty())
	assert.Equal(t, 1, f.DailyCount())

	v, valid, err := f.DailyOption(grid.AttrMinRH, s.at(10, 1))
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, 0.35, floatOf(t, v))

	v, valid, err = f.DailyOption(grid.AttrPeriodStart, when)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, 9*time.Hour, durationOf(t, v))

	// Fields not set on the day report their defaults as not in force.
	v, valid, err = f.DailyOption(grid.AttrMinISI, when)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Equal(t, BuiltinDefaults().MinISI, floatOf(t, v))

	require.NoError(t, f.ClearDailyOption(grid.AttrMinRH, when))
	_, valid, err = f.DailyOption(grid.AttrMinRH, when)
	require.NoError(t, err)
	assert.False(t, valid)

	require.NoError(t, f.ClearDailyOption(grid.AttrPeriodEndInterpret, when))
	assert.Equal(t, FromMidnight, f.Daily()[0].EndRelative)
	assert.Equal(t, FromMidnight, f.Daily()[0].StartRelative)

	assert.ErrorIs(t, f.ClearDailyOption(grid.AttrMinRH, s.at(11, 0)), grid.ErrInvalidTime)
}

func TestDailyOption_Validation(t *testing.T) {
	t.Parallel()

	s := newTestStack(t, fixedSun)
	when := s.at(10, 0)

	tests := []struct {
		name string
		key  grid.AttributeKey
		v    grid.Value
		want error
	}{
		{"rh above one", grid.AttrMinRH, grid.FloatValue(1.5), grid.ErrOutOfRange},
		{"negative rh", grid.AttrMinRH, grid.FloatValue(-0.1), grid.ErrOutOfRange},
		{"wind above 200", grid.AttrMaxWS, grid.FloatValue(201), grid.ErrOutOfRange},
		{"negative fwi", grid.AttrMinFWI, grid.FloatValue(-1), grid.ErrOutOfRange},
		{"negative isi", grid.AttrMinISI, grid.FloatValue(-1), grid.ErrOutOfRange},
		{"start at 24h", grid.AttrPeriodStart, grid.DurationValue(24 * time.Hour), grid.ErrOutOfRange},
		{"negative start", grid.AttrPeriodStart, grid.DurationValue(-time.Minute), grid.ErrOutOfRange},
		{"end at 36h", grid.AttrPeriodEnd, grid.DurationValue(36 * time.Hour), grid.ErrOutOfRange},
		{"interpretation 3", grid.AttrPeriodStartInterpret, grid.UintValue(3), grid.ErrOutOfRange},
		{"computed key", grid.AttrPeriodStartComputed, grid.FloatValue(0), grid.ErrInvalidArgument},
		{"seasonal key", grid.AttrCuringDegree, grid.FloatValue(50), grid.ErrInvalidArgument},
		{"wrong kind", grid.AttrMinRH, grid.TimeValue(when), grid.ErrInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, s.f.SetDailyOption(tc.key, when, tc.v, true), tc.want)
		})
	}
	assert.Zero(t, s.f.DailyCount(), "rejected sets must not create entries")
	assert.ErrorIs(t, s.f.SetDailyOption(grid.AttrMinRH, time.Time{}, grid.FloatValue(0.5), true), grid.ErrInvalidArgument)

	require.NoError(t, s.f.SetDailyOption(grid.AttrPeriodEnd, when, grid.DurationValue(35*time.Hour), true))
}

func TestSeasonalOption_SetGetClear(t *testing.T) {
	t.Parallel()

	s := newTestStack(t, fixedSun)
	f := s.f

	require.NoError(t, f.SetSeasonalOption(grid.AttrCuringDegree, 120, grid.FloatValue(85), true))
	require.NoError(t, f.SetSeasonalOption(grid.AttrGrassPhenology, 120, grid.BoolValue(true), true))
	assert.Equal(t, 2, f.SeasonalCount())

	v, valid, err := f.SeasonalOption(grid.AttrCuringDegree, 120)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, 85.0, floatOf(t, v))

	day, err := f.SeasonalDayAt(1)
	require.NoError(t, err)
	assert.Equal(t, 120, day)

	require.NoError(t, f.ClearSeasonalOption(grid.AttrCuringDegree, 120))
	assert.Equal(t, 2, f.SeasonalCount(), "entry still sets phenology")
	require.NoError(t, f.ClearSeasonalOption(grid.AttrGrassPhenology, 120))
	assert.Equal(t, 1, f.SeasonalCount(), "empty entry is removed")

	require.NoError(t, f.SetSeasonalOption(grid.AttrGreenup, 0, grid.BoolValue(true), true))
	require.NoError(t, f.ClearSeasonalOption(grid.AttrGreenup, 0))
	assert.Equal(t, 1, f.SeasonalCount(), "default entry survives")

	assert.ErrorIs(t, f.SetSeasonalOption(grid.AttrCuringDegree, 10, grid.FloatValue(101), true), grid.ErrOutOfRange)
	assert.ErrorIs(t, f.SetSeasonalOption(grid.AttrCuringDegree, MaxSeasonalDay+1, grid.FloatValue(50), true), grid.ErrOutOfRange)
	assert.ErrorIs(t, f.SetSeasonalOption(grid.AttrMinRH, 10, grid.FloatValue(0.5), true), grid.ErrInvalidArgument)
	assert.ErrorIs(t, f.ClearSeasonalOption(grid.AttrGreenup, 77), grid.ErrInvalidTime)
}

func TestDeleteByIndex(t *testing.T) {
	t.Parallel()

	s := newTestStack(t, fixedSun)
	f := s.f
	for _, d := range []int{12, 10, 11} {
		require.NoError(t, f.SetDailyOption(grid.AttrMaxWS, s.at(d, 6), grid.FloatValue(20), true))
	}
	require.NoError(t, f.SetSeasonalOption(grid.AttrGreenup, 90, grid.BoolValue(true), true))

	first, err := f.DailyTimeAt(0)
	require.NoError(t, err)
	assert.Equal(t, s.at(10, 0), first)

	_, err = f.Serialize(SerializeOptions{})
	require.NoError(t, err)
	assert.False(t, f.IsDirty())

	require.NoError(t, f.DeleteDaily(1))
	assert.True(t, f.IsDirty())
	last, err := f.DailyTimeAt(1)
	require.NoError(t, err)
	assert.Equal(t, s.at(12, 0), last)

	assert.ErrorIs(t, f.DeleteDaily(5), grid.ErrInvalidArgument)
	_, err = f.DailyTimeAt(-1)
	assert.ErrorIs(t, err, grid.ErrInvalidArgument)

	assert.ErrorIs(t, f.DeleteSeasonal(0), grid.ErrInvalidArgument)
	require.NoError(t, f.DeleteSeasonal(1))
	assert.Equal(t, 1, f.SeasonalCount())
	_, err = f.SeasonalDayAt(3)
	assert.ErrorIs(t, err, grid.ErrInvalidArgument)
}
