package gridpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/banshee-data/gridstack/internal/grid"
)

// TemporalConditionTypeURL identifies a packed TemporalCondition.
const TemporalConditionTypeURL = "type.googleapis.com/gridstack.grid.TemporalCondition"

// Pack wraps c in an Any envelope.
func Pack(c *TemporalCondition) (*anypb.Any, error) {
	b, err := c.Marshal()
	if err != nil {
		return nil, err
	}
	return &anypb.Any{TypeUrl: TemporalConditionTypeURL, Value: b}, nil
}

// Unpack decodes a TemporalCondition from an Any envelope. A foreign type
// URL fails with grid.ErrInvalidSchema.
func Unpack(a *anypb.Any) (*TemporalCondition, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil message", grid.ErrInvalidSchema)
	}
	if a.GetTypeUrl() != TemporalConditionTypeURL {
		return nil, fmt.Errorf("%w: got %q, want %q", grid.ErrInvalidSchema, a.GetTypeUrl(), TemporalConditionTypeURL)
	}
	c := &TemporalCondition{}
	if err := c.Unmarshal(a.GetValue()); err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrInvalidSchema, err)
	}
	return c, nil
}

// MarshalEnvelope packs c and encodes the envelope for storage.
func MarshalEnvelope(c *TemporalCondition) ([]byte, error) {
	a, err := Pack(c)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(a)
}

// UnmarshalEnvelope decodes stored envelope bytes.
func UnmarshalEnvelope(b []byte) (*anypb.Any, error) {
	a := &anypb.Any{}
	if err := proto.Unmarshal(b, a); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", grid.ErrInvalidSchema, err)
	}
	return a, nil
}
