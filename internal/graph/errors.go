package graph

import "fmt"

// UnknownTaskError reports a task name with no corresponding registry
// entry. Raised only when Builder.Build is given a WithTaskValidator
// option — the graph package itself has no registry dependency.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("graph: unknown task %q", e.Name)
}

// ShapeError reports a structurally invalid construct: a replica count
// below 1, a negative retry factor, or a descriptor/retry operator applied
// to an operand that doesn't reduce to a single node.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("graph: %s", e.Reason)
}

func shapeErrorf(format string, args ...any) error {
	return &ShapeError{Reason: fmt.Sprintf(format, args...)}
}
