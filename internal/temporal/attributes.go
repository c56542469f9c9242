package temporal

import (
	"fmt"
	"time"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/monitoring"
)

// GetAttributeData resolves burn conditions from the daily table and
// seasonal values from the seasonal table, forwarding everything the
// tables cannot answer. Seasonal values from the lower engine take
// precedence over the local table.
func (f *Filter) GetAttributeData(layer *grid.Layer, q grid.Query) (grid.Value, grid.Validity, error) {
	next, err := f.Next(layer)
	if err != nil {
		return grid.Value{}, grid.NotSet, err
	}

	switch {
	case q.Key.IsSeasonal():
		f.mu.RLock()
		i := f.findSeasonal(f.tm.DayOfYear(q.Time), q.Key, false, true)
		var s SeasonalAttribute
		if i >= 0 {
			s = f.seasonal[i]
		}
		f.mu.RUnlock()
		if i < 0 {
			break
		}
		if v, valid, err := next.GetAttributeData(layer, q); err == nil {
			countQuery(q.Key, "lower")
			return v, valid, nil
		}
		countQuery(q.Key, "local")
		v, valid := seasonalValue(s, q.Key)
		return v, valid, nil

	case q.Key.IsBurnCondition():
		f.mu.RLock()
		i, ok := f.findDaily(q.Time, false)
		if !ok {
			f.mu.RUnlock()
			break
		}
		v, valid := f.dailyValue(f.daily[i], q.Key, q.Point)
		f.mu.RUnlock()
		countQuery(q.Key, "local")
		return v, valid, nil
	}

	countQuery(q.Key, "forwarded")
	tracef("forward %s at %s", q.Key, q.Time.Format(time.RFC3339))
	return next.GetAttributeData(layer, q)
}

func countQuery(key grid.AttributeKey, outcome string) {
	monitoring.AttributeQueries.WithLabelValues(key.String(), outcome).Inc()
}

// dailyValue reads key from a. Must be called with f.mu held.
func (f *Filter) dailyValue(a DailyAttribute, key grid.AttributeKey, pt grid.Point) (grid.Value, grid.Validity) {
	switch key {
	case grid.AttrMinRH:
		return grid.FloatValue(a.MinRH), grid.ValidityOf(a.Has(RHEffective))
	case grid.AttrMinFWI:
		return grid.FloatValue(a.MinFWI), grid.ValidityOf(a.Has(FWIEffective))
	case grid.AttrMinISI:
		return grid.FloatValue(a.MinISI), grid.ValidityOf(a.Has(ISIEffective))
	case grid.AttrMaxWS:
		return grid.FloatValue(a.MaxWS), grid.ValidityOf(a.Has(WindEffective))
	case grid.AttrPeriodStart:
		return grid.DurationValue(a.Start), grid.ValidityOf(a.Has(StartEffective))
	case grid.AttrPeriodEnd:
		return grid.DurationValue(a.End), grid.ValidityOf(a.Has(EndEffective))
	case grid.AttrPeriodStartInterpret:
		return grid.UintValue(uint64(a.StartRelative)), grid.ValidityOf(a.Has(StartEffective))
	case grid.AttrPeriodEndInterpret:
		return grid.UintValue(uint64(a.EndRelative)), grid.ValidityOf(a.Has(EndEffective))
	case grid.AttrPeriodStartComputed:
		w := f.burnWindow(a, pt)
		return grid.DurationValue(w.Start.Sub(a.Day)), grid.ValidityOf(w.StartOK)
	case grid.AttrPeriodEndComputed:
		w := f.burnWindow(a, pt)
		return grid.DurationValue(w.End.Sub(a.Day)), grid.ValidityOf(w.EndOK)
	}
	return grid.Value{}, grid.NotSet
}

func seasonalValue(s SeasonalAttribute, key grid.AttributeKey) (grid.Value, grid.Validity) {
	if key == grid.AttrCuringDegree {
		return grid.FloatValue(s.Curing), grid.ValidityOf(s.CuringSet)
	}
	fl := flagFor(key)
	return grid.BoolValue(s.Flags&fl != 0), grid.ValidityOf(s.FlagsSet&fl != 0)
}

// GetAttributeDataArray forwards unchanged; the tables hold no spatial
// variation.
func (f *Filter) GetAttributeDataArray(layer *grid.Layer, q grid.ArrayQuery) (*grid.Array, error) {
	next, err := f.Next(layer)
	if err != nil {
		return nil, err
	}
	if _, _, err := q.Dims(); err != nil {
		return nil, fmt.Errorf("array query: %w", err)
	}
	return next.GetAttributeDataArray(layer, q)
}
