package remoteexec

import (
	"context"
	"time"

	"github.com/bargom/pointyflow/internal/registry"
)

// Handler adapts a Client into a registry.Handler bound to
// registry.IOBound: dispatching to a remote worker is itself an I/O
// wait, so it shares the cooperative pool rather than needing a
// dedicated Remote pool of its own.
type Handler struct {
	taskName string
	client   Client
	timeout  time.Duration
}

// NewHandler returns a Handler that dispatches taskName through client,
// cancelling the request if it runs longer than timeout (zero means no
// per-call timeout beyond the run's own budget).
func NewHandler(taskName string, client Client, timeout time.Duration) *Handler {
	return &Handler{taskName: taskName, client: client, timeout: timeout}
}

func (h *Handler) Kind() registry.HandlerKind { return registry.IOBound }

func (h *Handler) Run(ctx context.Context, taskName string, in registry.Inputs) (registry.Value, error) {
	if h.client == nil {
		return nil, ErrNoClient
	}

	callCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.client.Dispatch(callCtx, Request{
		TaskName: taskName,
		Input:    in,
		Timeout:  h.timeout,
	})
	if err != nil {
		return nil, &UnreachableError{TaskName: taskName, Cause: err}
	}
	if resp.Err != nil {
		if resp.NonRetryable {
			return nil, registry.NonRetryable(resp.Err)
		}
		return nil, resp.Err
	}
	return resp.Output, nil
}
