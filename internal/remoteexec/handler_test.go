package remoteexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bargom/pointyflow/internal/registry"
)

func TestHandlerDispatchesThroughClient(t *testing.T) {
	var seen Request
	client := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		seen = req
		return Response{Output: "remote-result"}, nil
	})

	h := NewHandler("fetch", client, 0)
	require.Equal(t, registry.IOBound, h.Kind())

	out, err := h.Run(context.Background(), "fetch", registry.Inputs{"url": "http://example.com"})
	require.NoError(t, err)
	require.Equal(t, "remote-result", out)
	require.Equal(t, "fetch", seen.TaskName)
}

func TestHandlerWrapsUnreachableTransport(t *testing.T) {
	client := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{}, errors.New("connection refused")
	})

	h := NewHandler("fetch", client, 0)
	_, err := h.Run(context.Background(), "fetch", registry.Inputs{})

	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
}

func TestHandlerPropagatesRemoteFailure(t *testing.T) {
	client := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{Err: errors.New("remote task failed")}, nil
	})

	h := NewHandler("fetch", client, 0)
	_, err := h.Run(context.Background(), "fetch", registry.Inputs{})
	require.EqualError(t, err, "remote task failed")
}

func TestHandlerWrapsNonRetryableRemoteFailure(t *testing.T) {
	client := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{Err: errors.New("bad input"), NonRetryable: true}, nil
	})

	h := NewHandler("fetch", client, 0)
	_, err := h.Run(context.Background(), "fetch", registry.Inputs{})

	var nonRetryable *registry.NonRetryableError
	require.ErrorAs(t, err, &nonRetryable)
	require.EqualError(t, err, "bad input")
}

func TestHandlerWithoutClientReturnsErrNoClient(t *testing.T) {
	h := NewHandler("fetch", nil, 0)
	_, err := h.Run(context.Background(), "fetch", registry.Inputs{})
	require.ErrorIs(t, err, ErrNoClient)
}

func TestHandlerTimesOutSlowDispatch(t *testing.T) {
	client := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	})

	h := NewHandler("slow", client, 10*time.Millisecond)
	_, err := h.Run(context.Background(), "slow", registry.Inputs{})
	require.Error(t, err)
}
