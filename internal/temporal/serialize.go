package temporal

import (
	"fmt"
	"time"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/gridpb"
	"github.com/banshee-data/gridstack/internal/timeutil"
)

// SerializeOptions controls the persisted form.
type SerializeOptions struct {
	// Version is the schema version to write; 0 selects the current one.
	Version int32
	// VerboseFloats adds a text rendering to every floating point value.
	VerboseFloats bool
}

func (o SerializeOptions) version() (int32, error) {
	switch v := o.Version; {
	case v == 0:
		return gridpb.CurrentVersion, nil
	case v < 1 || v > gridpb.CurrentVersion:
		return 0, fmt.Errorf("%w: schema version %d", grid.ErrUnsupportedVersion, v)
	default:
		return v, nil
	}
}

// Serialize converts the filter to its persisted form and clears the dirty
// flag. Only fields whose effective bit is set are written.
func (f *Filter) Serialize(opts SerializeOptions) (*gridpb.TemporalCondition, error) {
	version, err := opts.version()
	if err != nil {
		return nil, err
	}

	f.lock.RLock()
	defer f.lock.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	c := &gridpb.TemporalCondition{Version: version}
	for _, a := range f.daily {
		c.Daily = append(c.Daily, serializeDaily(a, f.tm, version, opts.VerboseFloats))
	}
	for _, s := range f.seasonal {
		c.Seasonal = append(c.Seasonal, serializeSeasonal(s))
	}
	f.dirty = false
	return c, nil
}

// Marshal serializes the filter into envelope bytes suitable for storage.
func (f *Filter) Marshal(opts SerializeOptions) ([]byte, error) {
	c, err := f.Serialize(opts)
	if err != nil {
		return nil, err
	}
	return gridpb.MarshalEnvelope(c)
}

func serializeDaily(a DailyAttribute, tm *timeutil.Manager, version int32, verbose bool) *gridpb.DailyAttribute {
	d := &gridpb.DailyAttribute{
		LocalStartTime: gridpb.String(tm.Local(a.Day).Format(time.RFC3339)),
	}
	if a.Has(StartEffective) {
		d.StartTime = gridpb.String(a.Start.String())
		d.StartTimeRelative = gridpb.TimeRelative(a.StartRelative)
	}
	if a.Has(EndEffective) {
		d.EndTime = gridpb.String(a.End.String())
		d.EndTimeRelative = gridpb.TimeRelative(a.EndRelative)
	}
	if a.Has(RHEffective) {
		rh := a.MinRH
		if version >= 2 {
			rh *= 100
		}
		d.MinRH = gridpb.NewDouble(rh, verbose)
	}
	if a.Has(WindEffective) {
		d.MaxWS = gridpb.NewDouble(a.MaxWS, verbose)
	}
	if a.Has(FWIEffective) {
		d.MinFWI = gridpb.NewDouble(a.MinFWI, verbose)
	}
	if a.Has(ISIEffective) {
		d.MinISI = gridpb.NewDouble(a.MinISI, verbose)
	}
	return d
}

func serializeSeasonal(s SeasonalAttribute) *gridpb.SeasonalAttribute {
	p := &gridpb.SeasonalAttribute{
		LocalStartDate: gridpb.String(timeutil.DayOffset(s.Day).String()),
	}
	for _, fl := range []struct {
		flag Flag
		typ  gridpb.AttributeType
	}{
		{GrassPhenology, gridpb.GrassPhenology},
		{Greenup, gridpb.Greenup},
	} {
		if s.FlagsSet&fl.flag != 0 {
			p.Attributes = append(p.Attributes, &gridpb.EffectiveAttribute{
				Type:   fl.typ,
				Active: gridpb.Bool(s.Flags&fl.flag != 0),
			})
		}
	}
	if s.CuringSet {
		p.Attributes = append(p.Attributes, &gridpb.EffectiveAttribute{
			Type:   gridpb.CuringDegree,
			Active: gridpb.Bool(true),
			Value:  gridpb.Float64(s.Curing),
		})
	}
	return p
}
