package gridpb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/banshee-data/gridstack/internal/grid"
)

func sample() *TemporalCondition {
	return &TemporalCondition{
		Version: CurrentVersion,
		Daily: []*DailyAttribute{{
			LocalStartTime:    String("2024-07-01T00:00:00-06:00"),
			StartTime:         String("1h0m0s"),
			EndTime:           String("-2h0m0s"),
			StartTimeRelative: SunRiseSet,
			EndTimeRelative:   SunRiseSet,
			MinRH:             NewDouble(45, true),
			MaxWS:             NewDouble(30, false),
		}, {
			LocalStartTime: String("2024-07-02T00:00:00-06:00"),
			MinISI:         NewDouble(8, false),
		}},
		Seasonal: []*SeasonalAttribute{{
			LocalStartDate: String("0s"),
		}, {
			LocalStartDate: String("2400h0m0s"),
			Attributes: []*EffectiveAttribute{
				{Type: Greenup, Active: Bool(true)},
				{Type: CuringDegree, Value: Float64(60)},
			},
		}},
	}
}

func TestTemporalCondition_Envelope(t *testing.T) {
	t.Parallel()

	in := sample()
	raw, err := MarshalEnvelope(in)
	require.NoError(t, err)

	env, err := UnmarshalEnvelope(raw)
	require.NoError(t, err)
	out, err := Unpack(env)
	require.NoError(t, err)

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("decoded condition mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "45", out.Daily[0].MinRH.Text)
	assert.Empty(t, out.Daily[0].MaxWS.Text)
	assert.Nil(t, out.Daily[1].StartTime, "absent fields stay absent")
}

func TestUnpack_WrongType(t *testing.T) {
	t.Parallel()

	_, err := Unpack(&anypb.Any{TypeUrl: "type.googleapis.com/gridstack.grid.FuelMap"})
	assert.ErrorIs(t, err, grid.ErrInvalidSchema)
	_, err = Unpack(nil)
	assert.ErrorIs(t, err, grid.ErrInvalidSchema)
	_, err = Unpack(&anypb.Any{TypeUrl: TemporalConditionTypeURL, Value: []byte{0x12, 0x05, 0x01}})
	assert.ErrorIs(t, err, grid.ErrInvalidSchema, "truncated payload")
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	t.Parallel()

	b, err := (&TemporalCondition{Version: 2}).Marshal()
	require.NoError(t, err)
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")
	b = protowire.AppendTag(b, 100, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	var c TemporalCondition
	require.NoError(t, c.Unmarshal(b))
	assert.EqualValues(t, 2, c.Version)
}

func TestEnums_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SUN_RISE_SET", SunRiseSet.String())
	assert.Equal(t, "TimeRelative(7)", TimeRelative(7).String())
}
