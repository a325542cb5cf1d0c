// Package registry is the Task Registry contract: the mapping from a
// Pointy-Lang task name to the handler that actually runs it.
package registry

import (
	"context"
	"fmt"
	"sync"
)

// HandlerKind tells the scheduler which Executor Pool a handler belongs
// to.
type HandlerKind int

const (
	// IOBound handlers run on the cooperative pool: many logically
	// concurrent handlers sharing a small number of OS threads, suited
	// to handlers that spend most of their time waiting on I/O.
	IOBound HandlerKind = iota
	// CPUBound handlers run on the fixed-size worker pool.
	CPUBound
	// Remote marks a handler whose work happens out of process. The
	// scheduler runs a Remote handler's Run on the cooperative pool, as
	// for IOBound; remoteexec.Handler itself reports IOBound.
	Remote
)

func (k HandlerKind) String() string {
	switch k {
	case IOBound:
		return "IOBound"
	case CPUBound:
		return "CPUBound"
	case Remote:
		return "Remote"
	default:
		return "Unknown"
	}
}

// Value is the data a node's handler receives and produces. Pointy-Lang
// itself is untyped; values flow as opaque payloads between tasks.
type Value = any

// Inputs maps a predecessor's node ID to the value it delivered.
type Inputs map[string]Value

// Handler implements one task's behavior.
type Handler interface {
	Kind() HandlerKind
	Run(ctx context.Context, taskName string, in Inputs) (Value, error)
}

// HandlerFunc adapts a plain function into a Handler running on the
// given kind's pool.
type HandlerFunc struct {
	kind HandlerKind
	fn   func(ctx context.Context, taskName string, in Inputs) (Value, error)
}

// NewHandlerFunc builds a Handler from fn, scheduled on the given pool.
func NewHandlerFunc(kind HandlerKind, fn func(ctx context.Context, taskName string, in Inputs) (Value, error)) HandlerFunc {
	return HandlerFunc{kind: kind, fn: fn}
}

func (h HandlerFunc) Kind() HandlerKind { return h.kind }

func (h HandlerFunc) Run(ctx context.Context, taskName string, in Inputs) (Value, error) {
	return h.fn(ctx, taskName, in)
}

// Registry is a concurrency-safe task-name -> Handler lookup table.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds name to handler. A later call for the same name
// overwrites the earlier one. name is validated against the same shape
// the lexer's TaskName rule accepts before it is stored; a name that
// could never come out of the parser is rejected here instead of
// silently sitting dead in the registry.
func (r *Registry) Register(name string, handler Handler) error {
	if err := registryValidator.Struct(registeredTask{Name: name}); err != nil {
		return &InvalidTaskNameError{Name: name, Err: err}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
	return nil
}

// Lookup returns the handler bound to name, if any.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Known reports whether name has a registered handler. It satisfies the
// graph.WithTaskValidator signature.
func (r *Registry) Known(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns every registered task name, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// UnknownTaskError mirrors graph.UnknownTaskError for callers that only
// import registry.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("registry: unknown task %q", e.Name)
}
