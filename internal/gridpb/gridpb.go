package gridpb

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// CurrentVersion is the schema version written by default.
const CurrentVersion = 3

// TimeRelative selects what a burn-period offset is measured from.
type TimeRelative int32

const (
	LocalMidnight TimeRelative = 0
	LocalNoon     TimeRelative = 1
	SunRiseSet    TimeRelative = 2
)

func (r TimeRelative) String() string {
	switch r {
	case LocalMidnight:
		return "LOCAL_MIDNIGHT"
	case LocalNoon:
		return "LOCAL_NOON"
	case SunRiseSet:
		return "SUN_RISE_SET"
	}
	return "TimeRelative(" + strconv.Itoa(int(r)) + ")"
}

// AttributeType tags an EffectiveAttribute.
type AttributeType int32

const (
	GrassPhenology AttributeType = 0
	Greenup        AttributeType = 1
	CuringDegree   AttributeType = 2
)

// Double is an optionally verbose floating point value. Text carries a
// human-readable rendering when the writer asked for it.
type Double struct {
	Value float64
	Text  string
}

// NewDouble returns a Double, rendering Text when verbose is set.
func NewDouble(v float64, verbose bool) *Double {
	d := &Double{Value: v}
	if verbose {
		d.Text = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return d
}

// DailyAttribute is one per-day burn-condition override.
type DailyAttribute struct {
	LocalStartTime    *string
	StartTime         *string
	EndTime           *string
	StartTimeRelative TimeRelative
	EndTimeRelative   TimeRelative
	MinRH             *Double
	MaxWS             *Double
	MinFWI            *Double
	MinISI            *Double
}

// EffectiveAttribute is one seasonal value.
type EffectiveAttribute struct {
	Type   AttributeType
	Active *bool
	Value  *float64
}

// SeasonalAttribute is one day-of-year override.
type SeasonalAttribute struct {
	LocalStartDate *string
	Attributes     []*EffectiveAttribute
}

// TemporalCondition is the persisted form of a temporal filter.
type TemporalCondition struct {
	Version  int32
	Daily    []*DailyAttribute
	Seasonal []*SeasonalAttribute
}

// String and pointer helpers for building messages.
func String(s string) *string    { return &s }
func Bool(b bool) *bool          { return &b }
func Float64(f float64) *float64 { return &f }

func appendString(b []byte, num protowire.Number, s *string) []byte {
	if s == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *s)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// Marshal encodes d.
func (d *Double) Marshal() []byte {
	var b []byte
	b = appendDouble(b, 1, d.Value)
	if d.Text != "" {
		b = appendString(b, 2, &d.Text)
	}
	return b
}

// Unmarshal decodes d from b.
func (d *Double) Unmarshal(b []byte) error {
	*d = Double{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			d.Value = math.Float64frombits(v)
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			d.Text = s
			return n, nil
		}
		return skip(num, typ, b)
	})
}

// Marshal encodes a.
func (a *DailyAttribute) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, a.LocalStartTime)
	b = appendString(b, 2, a.StartTime)
	b = appendString(b, 3, a.EndTime)
	if a.StartTimeRelative != LocalMidnight {
		b = appendVarint(b, 4, uint64(a.StartTimeRelative))
	}
	if a.EndTimeRelative != LocalMidnight {
		b = appendVarint(b, 5, uint64(a.EndTimeRelative))
	}
	for i, d := range []*Double{a.MinRH, a.MaxWS, a.MinFWI, a.MinISI} {
		if d != nil {
			b = appendMessage(b, protowire.Number(6+i), d.Marshal())
		}
	}
	return b
}

// Unmarshal decodes a from b.
func (a *DailyAttribute) Unmarshal(b []byte) error {
	*a = DailyAttribute{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num >= 1 && num <= 3 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, nil
			}
			switch num {
			case 1:
				a.LocalStartTime = &s
			case 2:
				a.StartTime = &s
			case 3:
				a.EndTime = &s
			}
			return n, nil
		case (num == 4 || num == 5) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if num == 4 {
				a.StartTimeRelative = TimeRelative(int32(v))
			} else {
				a.EndTimeRelative = TimeRelative(int32(v))
			}
			return n, nil
		case num >= 6 && num <= 9 && typ == protowire.BytesType:
			m, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			d := &Double{}
			if err := d.Unmarshal(m); err != nil {
				return 0, err
			}
			switch num {
			case 6:
				a.MinRH = d
			case 7:
				a.MaxWS = d
			case 8:
				a.MinFWI = d
			case 9:
				a.MinISI = d
			}
			return n, nil
		}
		return skip(num, typ, b)
	})
}

// Marshal encodes e.
func (e *EffectiveAttribute) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(e.Type))
	if e.Active != nil {
		b = appendVarint(b, 2, protowire.EncodeBool(*e.Active))
	}
	if e.Value != nil {
		b = appendDouble(b, 3, *e.Value)
	}
	return b
}

// Unmarshal decodes e from b.
func (e *EffectiveAttribute) Unmarshal(b []byte) error {
	*e = EffectiveAttribute{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			e.Type = AttributeType(int32(v))
			return n, nil
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			e.Active = Bool(protowire.DecodeBool(v))
			return n, nil
		case num == 3 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			e.Value = Float64(math.Float64frombits(v))
			return n, nil
		}
		return skip(num, typ, b)
	})
}

// Marshal encodes s.
func (s *SeasonalAttribute) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, s.LocalStartDate)
	for _, a := range s.Attributes {
		b = appendMessage(b, 2, a.Marshal())
	}
	return b
}

// Unmarshal decodes s from b.
func (s *SeasonalAttribute) Unmarshal(b []byte) error {
	*s = SeasonalAttribute{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n >= 0 {
				s.LocalStartDate = &v
			}
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			m, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			a := &EffectiveAttribute{}
			if err := a.Unmarshal(m); err != nil {
				return 0, err
			}
			s.Attributes = append(s.Attributes, a)
			return n, nil
		}
		return skip(num, typ, b)
	})
}

// Marshal encodes c.
func (c *TemporalCondition) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(int64(c.Version)))
	for _, d := range c.Daily {
		b = appendMessage(b, 2, d.Marshal())
	}
	for _, s := range c.Seasonal {
		b = appendMessage(b, 3, s.Marshal())
	}
	return b, nil
}

// Unmarshal decodes c from b.
func (c *TemporalCondition) Unmarshal(b []byte) error {
	*c = TemporalCondition{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			c.Version = int32(v)
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			m, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			d := &DailyAttribute{}
			if err := d.Unmarshal(m); err != nil {
				return 0, err
			}
			c.Daily = append(c.Daily, d)
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			m, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			s := &SeasonalAttribute{}
			if err := s.Unmarshal(m); err != nil {
				return 0, err
			}
			c.Seasonal = append(c.Seasonal, s)
			return n, nil
		}
		return skip(num, typ, b)
	})
}

// walk iterates the fields of b. fn consumes one field value and returns
// its length, or a negative protowire error code.
func walk(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("gridpb: %w", protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("gridpb: field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return protowire.ConsumeFieldValue(num, typ, b), nil
}
