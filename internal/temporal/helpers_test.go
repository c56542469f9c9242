package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridstack/internal/basegrid"
	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/solar"
	"github.com/banshee-data/gridstack/internal/timeutil"
)

// fixedSun rises at 06:00, peaks at 13:00 and sets at 20:00 local.
func fixedSun(_, _ float64, day time.Time) solar.Times {
	y, m, d := day.Date()
	at := func(h int) time.Time { return time.Date(y, m, d, h, 0, 0, 0, day.Location()) }
	return solar.Times{Rise: at(6), Noon: at(13), Set: at(20)}
}

// darkSun never rises.
func darkSun(_, _ float64, day time.Time) solar.Times {
	y, m, d := day.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, day.Location())
	return solar.Times{Rise: noon, Noon: noon, Set: noon, NoSunrise: true, NoSunset: true}
}

type testStack struct {
	reg   *grid.Registry
	layer *grid.Layer
	root  *basegrid.Engine
	f     *Filter
	tm    *timeutil.Manager
}

func newTestStack(t *testing.T, sun timeutil.SunFunc) *testStack {
	t.Helper()
	loc, err := timeutil.FixedZone(-6 * 60)
	require.NoError(t, err)
	tm := timeutil.NewManager(loc).WithSun(sun)

	root, err := basegrid.New(basegrid.Extent{Projection: "EPSG:4326", Resolution: 1}, tm)
	require.NoError(t, err)

	reg := grid.NewRegistry()
	layer, err := reg.Allocate()
	require.NoError(t, err)

	f := New(Options{Registry: reg, Time: tm})
	require.NoError(t, f.PutGridEngine(nil, root))
	require.NoError(t, f.PutGridEngine(layer, root))
	return &testStack{reg: reg, layer: layer, root: root, f: f, tm: tm}
}

// at returns hour:00 local on the given July 2024 day.
func (s *testStack) at(day, hour int) time.Time {
	return time.Date(2024, time.July, day, hour, 0, 0, 0, s.tm.Location())
}

// yearDay returns local noon day whole days into 2024.
func (s *testStack) yearDay(day int) time.Time {
	return time.Date(2024, time.January, 1, 12, 0, 0, 0, s.tm.Location()).AddDate(0, 0, day)
}

func floatOf(t *testing.T, v grid.Value) float64 {
	t.Helper()
	x, err := v.Float()
	require.NoError(t, err)
	return x
}

func durationOf(t *testing.T, v grid.Value) time.Duration {
	t.Helper()
	d, err := v.Duration()
	require.NoError(t, err)
	return d
}
