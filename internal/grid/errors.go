package grid

import "errors"

var (
	// ErrUninitialized means no next-lower engine is bound for the layer.
	ErrUninitialized = errors.New("grid engine uninitialized")
	// ErrInvalidHandle means the layer or key is unknown to the registry.
	ErrInvalidHandle = errors.New("invalid layer handle")
	// ErrResourceBusy means a binding or layer is still in use.
	ErrResourceBusy = errors.New("resource busy")
	// ErrNotFound is the recoverable absence signal. Callers fall back,
	// usually by forwarding down the stack.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSchema means a persisted message has the wrong type tag.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrUnsupportedVersion means a persisted message declares an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrOutOfRange means a validated value lies outside its policy bounds.
	ErrOutOfRange = errors.New("value out of range")
	// ErrOutOfMemory is reported when an allocation cannot be satisfied.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrInvalidArgument covers malformed requests (unknown attribute key,
	// index past the end of a table, wrong value type).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidTime means a burn-condition time key does not resolve.
	ErrInvalidTime = errors.New("invalid burn condition time")
	// ErrNotImplemented is returned by capability methods a layer does not serve.
	ErrNotImplemented = errors.New("not implemented")
	// ErrProjectionUnknown means the spatial reference could not be parsed.
	ErrProjectionUnknown = errors.New("projection unknown")
	// ErrNoData means the requested location has no data.
	ErrNoData = errors.New("no data")
)

// IsRecoverable reports whether err is a recoverable signal rather than a
// hard failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound)
}
