package grid

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a location in the source projection of the root grid.
type Point = r2.Vec

// AttributeKey selects the attribute a GetAttribute/GetAttributeData call
// is asking for. Numeric values match the persisted option identifiers.
type AttributeKey uint16

const (
	AttrLoadWarning      AttributeKey = 10000
	AttrLatitude         AttributeKey = 10001
	AttrLongitude        AttributeKey = 10002
	AttrXLLCorner        AttributeKey = 10003
	AttrYLLCorner        AttributeKey = 10004
	AttrXURCorner        AttributeKey = 10005
	AttrYURCorner        AttributeKey = 10006
	AttrPlotResolution   AttributeKey = 10007
	AttrSpatialReference AttributeKey = 10008

	AttrTimezone        AttributeKey = 10200
	AttrDaylightSavings AttributeKey = 10201

	AttrMinRH                AttributeKey = 10400
	AttrMinFWI               AttributeKey = 10401
	AttrMinISI               AttributeKey = 10402
	AttrMaxWS                AttributeKey = 10403
	AttrPeriodStart          AttributeKey = 10404
	AttrPeriodEnd            AttributeKey = 10405
	AttrPeriodStartInterpret AttributeKey = 10412
	AttrPeriodEndInterpret   AttributeKey = 10413
	AttrPeriodStartComputed  AttributeKey = 10414
	AttrPeriodEndComputed    AttributeKey = 10415

	// Seasonal options.
	AttrGreenup        AttributeKey = 11
	AttrGrassPhenology AttributeKey = 12
	AttrCuringDegree   AttributeKey = 1010
)

// IsBurnCondition reports whether key is answered from the per-day table.
func (k AttributeKey) IsBurnCondition() bool {
	switch k {
	case AttrMinRH, AttrMinFWI, AttrMinISI, AttrMaxWS,
		AttrPeriodStart, AttrPeriodEnd,
		AttrPeriodStartInterpret, AttrPeriodEndInterpret,
		AttrPeriodStartComputed, AttrPeriodEndComputed:
		return true
	}
	return false
}

// IsSeasonal reports whether key is answered from the day-of-year table.
func (k AttributeKey) IsSeasonal() bool {
	return k == AttrGreenup || k == AttrGrassPhenology || k == AttrCuringDegree
}

func (k AttributeKey) String() string {
	switch k {
	case AttrLoadWarning:
		return "load_warning"
	case AttrSpatialReference:
		return "spatial_reference"
	case AttrPlotResolution:
		return "plot_resolution"
	case AttrXLLCorner:
		return "xll_corner"
	case AttrYLLCorner:
		return "yll_corner"
	case AttrMinRH:
		return "min_rh"
	case AttrMinFWI:
		return "min_fwi"
	case AttrMinISI:
		return "min_isi"
	case AttrMaxWS:
		return "max_ws"
	case AttrPeriodStart:
		return "period_start"
	case AttrPeriodEnd:
		return "period_end"
	case AttrPeriodStartInterpret:
		return "period_start_interpret"
	case AttrPeriodEndInterpret:
		return "period_end_interpret"
	case AttrPeriodStartComputed:
		return "period_start_computed"
	case AttrPeriodEndComputed:
		return "period_end_computed"
	case AttrGreenup:
		return "greenup"
	case AttrGrassPhenology:
		return "grass_phenology"
	case AttrCuringDegree:
		return "curing_degree"
	}
	return "attr(" + strconv.Itoa(int(k)) + ")"
}

// Validity describes whether a returned attribute value was explicitly set.
type Validity uint8

const (
	NotSet Validity = iota
	Set
	Default
)

func (v Validity) String() string {
	switch v {
	case Set:
		return "set"
	case Default:
		return "default"
	}
	return "not_set"
}

// ValidityOf maps an effective bit to Set or NotSet.
func ValidityOf(effective bool) Validity {
	if effective {
		return Set
	}
	return NotSet
}

// ValueKind tags the payload carried by a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindFloat
	KindBool
	KindUint
	KindDuration
	KindString
	KindTime
)

// Value is the polymorphic attribute payload passed between engines.
// The zero Value is empty.
type Value struct {
	kind ValueKind
	f    float64
	u    uint64
	b    bool
	d    time.Duration
	s    string
	t    time.Time
}

func FloatValue(v float64) Value          { return Value{kind: KindFloat, f: v} }
func BoolValue(v bool) Value              { return Value{kind: KindBool, b: v} }
func UintValue(v uint64) Value            { return Value{kind: KindUint, u: v} }
func DurationValue(v time.Duration) Value { return Value{kind: KindDuration, d: v} }
func StringValue(v string) Value          { return Value{kind: KindString, s: v} }
func TimeValue(v time.Time) Value         { return Value{kind: KindTime, t: v} }
func (v Value) Kind() ValueKind           { return v.kind }
func (v Value) IsEmpty() bool             { return v.kind == KindNone }

// Float converts numeric payloads to float64. Durations convert to seconds.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindUint:
		return float64(v.u), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindDuration:
		return v.d.Seconds(), nil
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidArgument, v.s)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: cannot convert %s to float", ErrInvalidArgument, v.kind)
}

// Bool converts the payload to a boolean; numbers are true when non-zero.
func (v Value) Bool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindFloat:
		return v.f != 0, nil
	case KindUint:
		return v.u != 0, nil
	case KindString:
		b, err := strconv.ParseBool(v.s)
		if err != nil {
			return false, fmt.Errorf("%w: %q is not boolean", ErrInvalidArgument, v.s)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: cannot convert %s to bool", ErrInvalidArgument, v.kind)
}

// Uint16 converts integral payloads, rejecting fractions and overflow.
func (v Value) Uint16() (uint16, error) {
	var f float64
	switch v.kind {
	case KindUint:
		if v.u > math.MaxUint16 {
			return 0, fmt.Errorf("%w: %d overflows uint16", ErrInvalidArgument, v.u)
		}
		return uint16(v.u), nil
	case KindFloat:
		f = v.f
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: cannot convert %s to uint16", ErrInvalidArgument, v.kind)
	}
	if f < 0 || f > math.MaxUint16 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %g is not a uint16", ErrInvalidArgument, f)
	}
	return uint16(f), nil
}

// Duration converts the payload to a time span. Floats are seconds and
// strings use time.ParseDuration syntax.
func (v Value) Duration() (time.Duration, error) {
	switch v.kind {
	case KindDuration:
		return v.d, nil
	case KindFloat:
		return time.Duration(v.f * float64(time.Second)), nil
	case KindUint:
		return time.Duration(v.u) * time.Second, nil
	case KindString:
		d, err := time.ParseDuration(v.s)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return d, nil
	}
	return 0, fmt.Errorf("%w: cannot convert %s to duration", ErrInvalidArgument, v.kind)
}

// Text returns string payloads.
func (v Value) Text() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("%w: cannot convert %s to string", ErrInvalidArgument, v.kind)
	}
	return v.s, nil
}

// Time returns time payloads.
func (v Value) Time() (time.Time, error) {
	if v.kind != KindTime {
		return time.Time{}, fmt.Errorf("%w: cannot convert %s to time", ErrInvalidArgument, v.kind)
	}
	return v.t, nil
}

func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindDuration:
		return v.d.String()
	case KindString:
		return v.s
	case KindTime:
		return v.t.Format(time.RFC3339)
	}
	return "<empty>"
}

func (k ValueKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindDuration:
		return "duration"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	}
	return "empty"
}

// EventFlags steers GetEventTime.
type EventFlags uint64

const (
	SearchForward        EventFlags = 0x0
	SearchBackward       EventFlags = 0x1
	SearchSunrise        EventFlags = 0x2
	SearchSunset         EventFlags = 0x4
	SearchSolarNoon      EventFlags = 0x6
	QueryPrimaryWxStream EventFlags = 1 << 25
	QueryAnyWxStream     EventFlags = 1 << 26

	solarMask = SearchSunrise | SearchSunset
)

// Backward reports whether the search runs toward earlier times.
func (f EventFlags) Backward() bool { return f&SearchBackward != 0 }

// Solar returns the solar event selector bits (sunrise, sunset or noon), or 0.
func (f EventFlags) Solar() EventFlags { return f & solarMask }
