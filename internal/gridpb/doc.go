// Package gridpb defines the persisted wire schema for temporal conditions.
//
// Messages are hand-encoded with protowire so the field numbers below are
// the schema. A persisted filter is a TemporalCondition wrapped in an
// anypb.Any whose type URL identifies the message; Unpack rejects any
// other type with grid.ErrInvalidSchema.
//
//	TemporalCondition  1 version int32, 2 daily repeated, 3 seasonal repeated
//	DailyAttribute     1 localStartTime string (RFC 3339), 2 startTime string,
//	                   3 endTime string, 4 startTimeRelative enum,
//	                   5 endTimeRelative enum, 6 minRh, 7 maxWs, 8 minFwi,
//	                   9 minIsi (Double)
//	SeasonalAttribute  1 localStartDate string, 2 attributes repeated
//	EffectiveAttribute 1 type enum, 2 active bool, 3 value double
//	Double             1 value double, 2 text string
//
// Spans are Go duration strings ("13h30m0s").
package gridpb
