// Package validation collects structured problem reports produced while
// loading persisted objects. A nil *Node is a valid "no context" value:
// every method is a no-op on it, and loaders use that to pick strict mode.
package validation

import (
	"fmt"
	"strings"
	"sync"
)

// Severity ranks a recorded problem.
type Severity uint8

const (
	Information Severity = iota
	Warning
	Severe
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Severe:
		return "severe"
	}
	return "information"
}

// ProblemID classifies a recorded problem.
type ProblemID string

const (
	ObjectInvalid     ProblemID = "object_invalid"
	VersionMismatch   ProblemID = "version_mismatch"
	VersionNotCurrent ProblemID = "version_not_current"
	TimeInvalid       ProblemID = "time_invalid"
	ParseInvalid      ProblemID = "parse_invalid"
	ValueOutOfRange   ProblemID = "value_out_of_range"
	TimeTruncated     ProblemID = "time_truncated"
)

// Record is one problem attached to a node.
type Record struct {
	SchemaPath string
	Field      string
	Severity   Severity
	ID         ProblemID
	Observed   string
	Min, Max   string
	Units      string
	Message    string
}

func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s.%s: %s", r.Severity, r.SchemaPath, r.Field, r.ID)
	if r.Observed != "" {
		fmt.Fprintf(&b, " (observed %s", r.Observed)
		if r.Min != "" || r.Max != "" {
			fmt.Fprintf(&b, ", expected [%s, %s]", r.Min, r.Max)
		}
		if r.Units != "" {
			fmt.Fprintf(&b, " %s", r.Units)
		}
		b.WriteString(")")
	}
	if r.Message != "" {
		fmt.Fprintf(&b, ": %s", r.Message)
	}
	return b.String()
}

// Node is one object in the validation tree.
type Node struct {
	TypeName string
	Path     string

	mu       sync.Mutex
	records  []Record
	children []*Node
}

// NewRoot returns the root of a validation tree.
func NewRoot(typeName, path string) *Node {
	return &Node{TypeName: typeName, Path: path}
}

// Child returns a new node below n. It returns nil when n is nil.
func (n *Node) Child(typeName, name string) *Node {
	if n == nil {
		return nil
	}
	c := &Node{TypeName: typeName, Path: n.Path + "." + name}
	if n.Path == "" {
		c.Path = name
	}
	n.mu.Lock()
	n.children = append(n.children, c)
	n.mu.Unlock()
	return c
}

// Add attaches r to n, filling SchemaPath when empty.
func (n *Node) Add(r Record) {
	if n == nil {
		return
	}
	if r.SchemaPath == "" {
		r.SchemaPath = n.Path
	}
	n.mu.Lock()
	n.records = append(n.records, r)
	n.mu.Unlock()
}

// Records returns the records attached directly to n.
func (n *Node) Records() []Record {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Record(nil), n.records...)
}

// All returns every record in the subtree rooted at n, depth first.
func (n *Node) All() []Record {
	if n == nil {
		return nil
	}
	out := n.Records()
	n.mu.Lock()
	kids := append([]*Node(nil), n.children...)
	n.mu.Unlock()
	for _, c := range kids {
		out = append(out, c.All()...)
	}
	return out
}

// Count returns how many records in the subtree have severity s.
func (n *Node) Count(s Severity) int {
	c := 0
	for _, r := range n.All() {
		if r.Severity == s {
			c++
		}
	}
	return c
}

// Find returns the records in the subtree with the given problem id.
func (n *Node) Find(id ProblemID) []Record {
	var out []Record
	for _, r := range n.All() {
		if r.ID == id {
			out = append(out, r)
		}
	}
	return out
}
