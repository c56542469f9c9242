// Package grid owns the stacking model for grid engines.
//
// Responsibilities: the GridEngine capability every stacked data provider
// implements, the Layer handles that identify one stacking position per
// simulation run, the Registry that records which next-lower engine each
// requester delegates to, and the shared/exclusive lock used by the
// locking protocol.
// Key types: Engine, Layer, Registry, Chain, StateLock.
//
// Dependency rule: grid depends only on timeutil and monitoring. Concrete layers
// (basegrid, temporal) depend on grid, never the other way around.
package grid
