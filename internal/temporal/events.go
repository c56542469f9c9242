package temporal

import (
	"time"

	"github.com/banshee-data/gridstack/internal/grid"
)

// GetEventTime returns the closest burn-condition change on the requested
// side of from. Solar flags select the sun event for from's local day
// instead. The lower engine's answer bounds the search; when it has none
// the search is unbounded.
func (f *Filter) GetEventTime(layer *grid.Layer, pt grid.Point, flags grid.EventFlags, from time.Time) (time.Time, bool, error) {
	next, err := f.Next(layer)
	if err != nil {
		return time.Time{}, false, err
	}
	event, valid, err := next.GetEventTime(layer, pt, flags, from)
	if err != nil {
		return time.Time{}, false, err
	}

	if sel := flags.Solar(); sel != 0 {
		f.mu.RLock()
		st := f.solarTimes(pt, from)
		f.mu.RUnlock()
		switch sel {
		case grid.SearchSunrise:
			return st.Rise, !st.NoSunrise, nil
		case grid.SearchSunset:
			return st.Set, !st.NoSunset, nil
		}
		return st.Noon, true, nil
	}
	if flags&(grid.QueryPrimaryWxStream|grid.QueryAnyWxStream) != 0 {
		return event, valid, nil
	}

	backward := flags.Backward()
	consider := func(c time.Time) {
		if backward {
			if c.Before(from) && (!valid || c.After(event)) {
				event, valid = c, true
			}
			return
		}
		if c.After(from) && (!valid || c.Before(event)) {
			event, valid = c, true
		}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, a := range f.daily {
		if !a.Has(TimesEffective) {
			continue
		}
		w := f.burnWindow(a, pt)
		if w.StartOK {
			consider(w.Start)
		}
		if w.EndOK {
			consider(w.End)
		}
	}
	for _, s := range f.seasonal {
		if s.Empty() {
			continue
		}
		consider(f.tm.Anniversary(from, s.Day))
	}
	tracef("event search from %s backward=%t: %s valid=%t", from.Format(time.RFC3339), backward, event.Format(time.RFC3339), valid)
	return event, valid, nil
}
