package temporal

import "fmt"

// DeserializeError is a hard load failure. It unwraps to the grid
// sentinel that classifies it.
type DeserializeError struct {
	Path    string
	Message string
	Err     error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("deserialize %s: %s: %v", e.Path, e.Message, e.Err)
}

func (e *DeserializeError) Unwrap() error { return e.Err }
