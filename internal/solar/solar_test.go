package solar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_MidLatitudeEquinox(t *testing.T) {
	t.Parallel()

	utc := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	got := Compute(0, 0, utc)

	require.False(t, got.NoSunrise)
	require.False(t, got.NoSunset)
	// On the equator at the prime meridian the day is close to 12h and
	// noon is within the equation of time of 12:00 UTC.
	assert.InDelta(t, 12*60, got.Set.Sub(got.Rise).Minutes(), 10)
	assert.InDelta(t, 0, got.Noon.Sub(time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)).Minutes(), 10)
	assert.True(t, got.Rise.Before(got.Noon))
	assert.True(t, got.Noon.Before(got.Set))
}

func TestCompute_LocalZone(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Edmonton")
	require.NoError(t, err)

	got := Compute(53.5, -113.5, time.Date(2024, time.June, 21, 12, 0, 0, 0, loc))
	require.False(t, got.NoSunrise)

	// Edmonton on the solstice: sunrise about 05:05, sunset about 22:07 MDT.
	assert.Equal(t, loc, got.Rise.Location())
	assert.Equal(t, loc, got.Noon.Location())
	assert.Equal(t, 5, got.Rise.Hour())
	assert.Equal(t, 22, got.Set.Hour())
	assert.Equal(t, 21, got.Rise.Day())
	assert.Equal(t, 13, got.Noon.Hour())
}

func TestCompute_Polar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		day  time.Time
	}{
		{"polar night", time.Date(2024, time.December, 21, 12, 0, 0, 0, time.UTC)},
		{"midnight sun", time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Compute(80, 0, tt.day)
			assert.True(t, got.NoSunrise)
			assert.True(t, got.NoSunset)
			assert.Equal(t, got.Noon, got.Rise)
			assert.Equal(t, got.Noon, got.Set)
			// Mean solar noon at the prime meridian.
			assert.InDelta(t, 0, got.Noon.Sub(tt.day).Minutes(), 5)
		})
	}
}
