package temporal

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/anypb"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/gridpb"
	"github.com/banshee-data/gridstack/internal/monitoring"
	"github.com/banshee-data/gridstack/internal/timeutil"
	"github.com/banshee-data/gridstack/internal/validation"
)

const conditionType = "gridstack.grid.TemporalCondition"

// Accepted ranges for persisted values.
var (
	minStartDate = time.Date(1600, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxStartDate = time.Date(2900, time.January, 1, 0, 0, 0, 0, time.UTC)
)

const (
	minSpan      = -24 * time.Hour
	maxStartSpan = 24 * time.Hour
	maxEndSpan   = 48 * time.Hour
)

// Deserialize builds a filter from a packed TemporalCondition.
//
// With a nil validation node the load is strict: the first problem that is
// more than informational aborts it. With a node, such problems are
// recorded as warnings and loading continues: spans are clamped, numbers
// are kept as read, and records with an unusable key are dropped. A hard
// failure never returns a filter.
func Deserialize(msg *anypb.Any, opts Options, v *validation.Node, name string) (*Filter, error) {
	c, err := gridpb.Unpack(msg)
	if err != nil {
		v.Add(validation.Record{
			SchemaPath: conditionType,
			Field:      name,
			Severity:   validation.Severe,
			ID:         validation.ObjectInvalid,
			Observed:   msg.GetTypeUrl(),
		})
		return nil, hardFailure(name, "object invalid", err)
	}
	return DeserializeCondition(c, opts, v, name)
}

// DeserializeCondition builds a filter from an unpacked TemporalCondition.
func DeserializeCondition(c *gridpb.TemporalCondition, opts Options, v *validation.Node, name string) (*Filter, error) {
	if c == nil {
		return nil, hardFailure(name, "object invalid", grid.ErrInvalidSchema)
	}
	switch c.Version {
	case 1, 2, 3:
	default:
		v.Add(validation.Record{
			SchemaPath: conditionType,
			Field:      name,
			Severity:   validation.Severe,
			ID:         validation.VersionMismatch,
			Observed:   strconv.Itoa(int(c.Version)),
		})
		return nil, hardFailure(name, "version is invalid", fmt.Errorf("%w: %d", grid.ErrUnsupportedVersion, c.Version))
	}

	f := New(opts)
	l := &loader{f: f, strict: v == nil, version: c.Version}
	if c.Version != gridpb.CurrentVersion {
		l.note(v, validation.Record{
			SchemaPath: conditionType,
			Field:      name,
			Severity:   validation.Information,
			ID:         validation.VersionNotCurrent,
			Observed:   strconv.Itoa(int(c.Version)),
		})
	}
	node := v.Child(conditionType, name)

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, d := range c.Daily {
		if d == nil {
			if err := l.missing(node, name, fmt.Sprintf("daily[%d]", i)); err != nil {
				return nil, err
			}
			continue
		}
		path := fmt.Sprintf("%s.daily[%d]", name, i)
		a, ok, err := l.daily(node.Child(conditionType+".DailyAttribute", fmt.Sprintf("daily[%d]", i)), path, d)
		if err != nil {
			return nil, err
		}
		if ok {
			f.insertDaily(a)
		}
	}

	f.seasonal = f.seasonal[:0]
	for i, s := range c.Seasonal {
		if s == nil {
			if err := l.missing(node, name, fmt.Sprintf("seasonal[%d]", i)); err != nil {
				return nil, err
			}
			continue
		}
		path := fmt.Sprintf("%s.seasonal[%d]", name, i)
		a, ok, err := l.seasonal(node.Child(conditionType+".SeasonalAttribute", fmt.Sprintf("seasonal[%d]", i)), path, s)
		if err != nil {
			return nil, err
		}
		if ok {
			f.insertSeasonal(a)
		}
	}
	f.ensureDefaultSeason()

	f.dirty = false
	f.loadWarning = l.warning
	diagf("loaded %q: %d daily, %d seasonal entries", name, len(f.daily), len(f.seasonal))
	return f, nil
}

func hardFailure(path, msg string, err error) error {
	monitoring.DeserializeProblems.WithLabelValues(validation.Severe.String()).Inc()
	opsf("deserialize %s: %s: %v", path, msg, err)
	return &DeserializeError{Path: path, Message: msg, Err: err}
}

type loader struct {
	f       *Filter
	strict  bool
	version int32
	warning string
}

// note records a non-fatal problem.
func (l *loader) note(n *validation.Node, r validation.Record) {
	monitoring.DeserializeProblems.WithLabelValues(r.Severity.String()).Inc()
	if r.Severity > validation.Information {
		l.warning = r.String()
		if r.Message != "" {
			l.warning = r.Message
		}
		diagf("%s", r)
	}
	n.Add(r)
}

// recoverable records a warning in lenient mode and fails the load in
// strict mode.
func (l *loader) recoverable(n *validation.Node, path string, r validation.Record, err error) error {
	if l.strict {
		return hardFailure(path+"."+r.Field, r.Message, err)
	}
	r.Severity = validation.Warning
	l.note(n, r)
	return nil
}

// missing reports an empty repeated entry; the entry is skipped.
func (l *loader) missing(n *validation.Node, path, field string) error {
	return l.recoverable(n, path, validation.Record{
		Field:   field,
		ID:      validation.ObjectInvalid,
		Message: "empty " + field + " entry",
	}, fmt.Errorf("%w: empty %s", grid.ErrInvalidSchema, field))
}

func (l *loader) daily(n *validation.Node, path string, d *gridpb.DailyAttribute) (DailyAttribute, bool, error) {
	day, ok, err := l.startTime(n, path, d.LocalStartTime)
	if err != nil || !ok {
		return DailyAttribute{}, false, err
	}

	a := newDaily(day, l.f.defaults)

	if span, ok, err := l.span(n, path, "startTime", d.StartTime, maxStartSpan); err != nil {
		return a, false, err
	} else if ok {
		a.Start = span
		a.Effective |= StartEffective
	}
	if span, ok, err := l.span(n, path, "endTime", d.EndTime, maxEndSpan); err != nil {
		return a, false, err
	} else if ok {
		a.End = span
		a.Effective |= EndEffective
	}
	if a.StartRelative, err = l.relative(n, path, "startTimeRelative", d.StartTimeRelative); err != nil {
		return a, false, err
	}
	if a.EndRelative, err = l.relative(n, path, "endTimeRelative", d.EndTimeRelative); err != nil {
		return a, false, err
	}

	rhMax, rhScale := 1.0, 1.0
	if l.version >= 2 {
		rhMax, rhScale = 100.0, 0.01
	}
	numbers := []struct {
		field string
		in    *gridpb.Double
		upper float64
		scale float64
		dst   *float64
		bit   Bits
	}{
		{"minRh", d.MinRH, rhMax, rhScale, &a.MinRH, RHEffective},
		{"maxWs", d.MaxWS, 200, 1, &a.MaxWS, WindEffective},
		{"minFwi", d.MinFWI, math.Inf(1), 1, &a.MinFWI, FWIEffective},
		{"minIsi", d.MinISI, math.Inf(1), 1, &a.MinISI, ISIEffective},
	}
	for _, num := range numbers {
		x, ok, err := l.number(n, path, num.field, num.in, 0, num.upper)
		if err != nil {
			return a, false, err
		}
		if ok {
			*num.dst = x * num.scale
			a.Effective |= num.bit
		}
	}
	return a, true, nil
}

// startTime reads a daily key and normalizes it to local midnight. ok is
// false when the record must be dropped.
func (l *loader) startTime(n *validation.Node, path string, s *string) (time.Time, bool, error) {
	bad := func(observed, msg string) (time.Time, bool, error) {
		err := l.recoverable(n, path, validation.Record{
			Field:    "localStartTime",
			ID:       validation.TimeInvalid,
			Observed: observed,
			Min:      minStartDate.Format(time.RFC3339),
			Max:      maxStartDate.Format(time.RFC3339),
			Message:  msg,
		}, fmt.Errorf("%w: %s", grid.ErrInvalidTime, msg))
		return time.Time{}, false, err
	}
	if s == nil {
		return bad("", "missing start date")
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return bad(*s, "invalid start date")
	}
	if t.Before(minStartDate) || !t.Before(maxStartDate) {
		return bad(*s, "start date out of range")
	}
	if t.Nanosecond() != 0 {
		l.note(n, validation.Record{
			Field:    "localStartTime",
			Severity: validation.Information,
			ID:       validation.TimeTruncated,
			Observed: *s,
			Message:  "fractions of seconds purged",
		})
		t = t.Truncate(time.Second)
	}
	day := l.f.tm.LocalMidnight(t)
	if !day.Equal(t) {
		l.note(n, validation.Record{
			Field:    "localStartTime",
			Severity: validation.Information,
			ID:       validation.TimeTruncated,
			Observed: *s,
			Message:  "start date moved to local midnight",
		})
	}
	return day, true, nil
}

// span reads an optional offset, clamping it to [minSpan, upper].
func (l *loader) span(n *validation.Node, path, field string, s *string, upper time.Duration) (time.Duration, bool, error) {
	if s == nil {
		return 0, false, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		err := l.recoverable(n, path, validation.Record{
			Field:    field,
			ID:       validation.ParseInvalid,
			Observed: *s,
			Message:  "invalid " + field,
		}, fmt.Errorf("%w: %s %q", grid.ErrInvalidTime, field, *s))
		return 0, false, err
	}
	if d%time.Second != 0 {
		l.note(n, validation.Record{
			Field:    field,
			Severity: validation.Information,
			ID:       validation.TimeTruncated,
			Observed: *s,
			Message:  "fractions of seconds purged",
		})
		d = d.Truncate(time.Second)
	}
	if d < minSpan || d > upper {
		clamped := min(max(d, minSpan), upper)
		err := l.recoverable(n, path, validation.Record{
			Field:    field,
			ID:       validation.ValueOutOfRange,
			Observed: *s,
			Min:      minSpan.String(),
			Max:      upper.String(),
			Message:  fmt.Sprintf("%s clamped to %v", field, clamped),
		}, fmt.Errorf("%w: %s %v", grid.ErrOutOfRange, field, d))
		if err != nil {
			return 0, false, err
		}
		d = clamped
	}
	return d, true, nil
}

func (l *loader) relative(n *validation.Node, path, field string, r gridpb.TimeRelative) (Relative, error) {
	if r >= 0 && r < gridpb.TimeRelative(relativeCount) {
		return Relative(r), nil
	}
	err := l.recoverable(n, path, validation.Record{
		Field:    field,
		ID:       validation.ValueOutOfRange,
		Observed: r.String(),
		Message:  "unknown interpretation " + r.String(),
	}, fmt.Errorf("%w: %s %d", grid.ErrOutOfRange, field, r))
	return FromMidnight, err
}

// number reads an optional value checked against [lo, hi]. Out-of-range
// values are kept in lenient mode.
func (l *loader) number(n *validation.Node, path, field string, d *gridpb.Double, lo, hi float64) (float64, bool, error) {
	if d == nil {
		return 0, false, nil
	}
	x := d.Value
	if d.Text != "" {
		parsed, err := strconv.ParseFloat(d.Text, 64)
		if err != nil {
			err := l.recoverable(n, path, validation.Record{
				Field:    field,
				ID:       validation.ParseInvalid,
				Observed: d.Text,
				Message:  "invalid " + field,
			}, fmt.Errorf("%w: %s %q", grid.ErrInvalidArgument, field, d.Text))
			return 0, false, err
		}
		x = parsed
	}
	if x < lo || x > hi || math.IsNaN(x) {
		r := validation.Record{
			Field:    field,
			ID:       validation.ValueOutOfRange,
			Observed: strconv.FormatFloat(x, 'g', -1, 64),
			Min:      strconv.FormatFloat(lo, 'g', -1, 64),
			Message:  "invalid " + field + " value",
		}
		if !math.IsInf(hi, 1) {
			r.Max = strconv.FormatFloat(hi, 'g', -1, 64)
		}
		if err := l.recoverable(n, path, r, fmt.Errorf("%w: %s %g", grid.ErrOutOfRange, field, x)); err != nil {
			return 0, false, err
		}
	}
	return x, true, nil
}

func (l *loader) seasonal(n *validation.Node, path string, s *gridpb.SeasonalAttribute) (SeasonalAttribute, bool, error) {
	day, ok, err := l.seasonDay(n, path, s.LocalStartDate)
	if err != nil || !ok {
		return SeasonalAttribute{}, false, err
	}
	a := SeasonalAttribute{Day: day, Curing: l.f.defaults.Curing}
	for i, e := range s.Attributes {
		field := fmt.Sprintf("attributes[%d]", i)
		if e == nil {
			if err := l.missing(n, path, field); err != nil {
				return a, false, err
			}
			continue
		}
		switch e.Type {
		case gridpb.GrassPhenology, gridpb.Greenup:
			if e.Active == nil {
				if err := l.recoverable(n, path, validation.Record{
					Field:   field,
					ID:      validation.ParseInvalid,
					Message: "phenology flag without a value",
				}, fmt.Errorf("%w: %s", grid.ErrInvalidArgument, field)); err != nil {
					return a, false, err
				}
				continue
			}
			fl := GrassPhenology
			if e.Type == gridpb.Greenup {
				fl = Greenup
			}
			a.FlagsSet |= fl
			if *e.Active {
				a.Flags |= fl
			} else {
				a.Flags &^= fl
			}

		case gridpb.CuringDegree:
			if e.Value == nil {
				if err := l.recoverable(n, path, validation.Record{
					Field:   field,
					ID:      validation.ParseInvalid,
					Message: "curing degree without a value",
				}, fmt.Errorf("%w: %s", grid.ErrInvalidArgument, field)); err != nil {
					return a, false, err
				}
				continue
			}
			x, _, err := l.number(n, path, "curingDegree", &gridpb.Double{Value: *e.Value}, 0, maxCuring)
			if err != nil {
				return a, false, err
			}
			a.Curing, a.CuringSet = x, true

		default:
			if err := l.recoverable(n, path, validation.Record{
				Field:    field,
				ID:       validation.ObjectInvalid,
				Observed: strconv.Itoa(int(e.Type)),
				Message:  "unknown seasonal attribute type",
			}, fmt.Errorf("%w: attribute type %d", grid.ErrInvalidSchema, e.Type)); err != nil {
				return a, false, err
			}
		}
	}
	return a, true, nil
}

// seasonDay reads a seasonal key as whole days into the year.
func (l *loader) seasonDay(n *validation.Node, path string, s *string) (int, bool, error) {
	bad := func(observed, msg string) (int, bool, error) {
		err := l.recoverable(n, path, validation.Record{
			Field:    "localStartDate",
			ID:       validation.TimeInvalid,
			Observed: observed,
			Min:      "0s",
			Max:      timeutil.DayOffset(MaxSeasonalDay).String(),
			Message:  msg,
		}, fmt.Errorf("%w: %s", grid.ErrInvalidTime, msg))
		return 0, false, err
	}
	if s == nil {
		return bad("", "missing seasonal start")
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return bad(*s, "invalid seasonal start")
	}
	if d < 0 || d > timeutil.DayOffset(MaxSeasonalDay) {
		return bad(*s, "seasonal start out of range")
	}
	days := timeutil.Days(d)
	if timeutil.DayOffset(days) != d {
		l.note(n, validation.Record{
			Field:    "localStartDate",
			Severity: validation.Information,
			ID:       validation.TimeTruncated,
			Observed: *s,
			Message:  "seasonal start truncated to the day",
		})
	}
	return days, true, nil
}
