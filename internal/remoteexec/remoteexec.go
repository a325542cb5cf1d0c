// Package remoteexec is the transport contract for a Remote handler: a
// task whose work happens outside this process, on another service or
// worker fleet. The scheduler depends only on the Client interface
// here; wiring a live transport (gRPC, an activity queue, an HTTP
// callback) is left to a caller-supplied implementation, since this
// module carries no network client of its own (see DESIGN.md). Grounded
// on the teacher's go.temporal.io/sdk/workflow activity-dispatch
// vocabulary (internal/workflow/patterns/saga_workflow.go): a named
// call, a typed input/output payload, a timeout, and a RetryPolicy,
// reshaped from Temporal's workflow.Context API into a plain
// request/response contract a Handler can call synchronously.
package remoteexec

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoClient is returned by Handler.Run when the Handler was built with
// a nil Client.
var ErrNoClient = errors.New("remoteexec: no client configured for remote task")

// Request is one remote invocation of a named task.
type Request struct {
	TaskName string
	NodeID   string
	Replica  int
	Input    any
	Timeout  time.Duration
}

// Response is the result of a remote invocation: either Ok(Output) or
// Err(Err, retryable?). NonRetryable is only meaningful when Err is
// non-nil; its zero value (false) means the remote side expressed no
// opinion, so the error retries like any other handler failure. A remote
// side that knows retrying won't help sets NonRetryable true, which
// forces immediate failure regardless of attempts remaining.
type Response struct {
	Output       any
	Err          error
	NonRetryable bool
}

// Client dispatches a Request to whatever executes remote tasks and
// waits for its Response. Implementations own the actual transport;
// this package only fixes the shape callers and handlers agree on.
type Client interface {
	Dispatch(ctx context.Context, req Request) (Response, error)
}

// ClientFunc adapts a plain function into a Client.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

func (f ClientFunc) Dispatch(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// UnreachableError marks a Dispatch call that could not reach the
// remote side at all, as distinct from the remote side running the
// task and reporting a failure.
type UnreachableError struct {
	TaskName string
	Cause    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("remoteexec: task %q unreachable: %v", e.TaskName, e.Cause)
}

func (e *UnreachableError) Unwrap() error { return e.Cause }
