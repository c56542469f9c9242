// Package temporal implements the burn-condition filter: a stacked grid
// engine holding two override tables.
//
// The daily table is keyed by local midnight and overrides burn thresholds
// (minimum RH, FWI and ISI, maximum wind speed) and the burn period for one
// calendar day. The seasonal table is keyed by whole days into the local
// year and carries curing degree and the grass phenology and green-up
// flags; a value set on one day stays in force until the next entry that
// sets the same value.
//
// Queries the tables cannot answer are forwarded to the engine bound below
// the filter for the caller's layer.
package temporal
