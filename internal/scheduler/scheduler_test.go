package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bargom/pointyflow/internal/executor"
	"github.com/bargom/pointyflow/internal/graph"
	"github.com/bargom/pointyflow/internal/parser"
	"github.com/bargom/pointyflow/internal/registry"
	"github.com/bargom/pointyflow/internal/resultstore"
)

func buildGraph(t *testing.T, src string) *graph.Graph {
	t.Helper()
	expr, err := parser.Parse("t.ptly", src)
	require.NoError(t, err)
	g, err := graph.NewBuilder().Build(expr)
	require.NoError(t, err)
	return g
}

func ioHandler(fn func(ctx context.Context, in registry.Inputs) (registry.Value, error)) registry.Handler {
	return registry.NewHandlerFunc(registry.IOBound, func(ctx context.Context, _ string, in registry.Inputs) (registry.Value, error) {
		return fn(ctx, in)
	})
}

func alwaysOK(value registry.Value) registry.Handler {
	return ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		return value, nil
	})
}

func TestRunSimpleSequenceSucceeds(t *testing.T) {
	g := buildGraph(t, "a -> b")
	reg := registry.New()
	reg.Register("a", alwaysOK("a-result"))
	reg.Register("b", alwaysOK("b-result"))

	out, err := Run(context.Background(), g, reg)
	require.NoError(t, err)
	require.Equal(t, Succeeded, out.Status)
	require.Empty(t, out.FailedNodes)

	entryB := out.Results[instanceLabel("b", 0)]
	require.Equal(t, resultstore.Succeeded, entryB.Status)
	require.Equal(t, "b-result", entryB.Value)
}

func TestRunRetriesUntilBudgetExhaustedThenSucceeds(t *testing.T) {
	g := buildGraph(t, "a * 2 -> b")
	reg := registry.New()

	var invocations int64
	reg.Register("a", ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		n := atomic.AddInt64(&invocations, 1)
		if n < 3 {
			return nil, errors.New("transient failure")
		}
		return "a-result", nil
	}))
	reg.Register("b", alwaysOK("b-result"))

	out, err := Run(context.Background(), g, reg, WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	require.Equal(t, Succeeded, out.Status)
	require.EqualValues(t, 3, atomic.LoadInt64(&invocations))

	timingA := out.Timings[instanceLabel("a", 0)]
	require.Equal(t, 3, timingA.Attempts)
}

func TestRunFailsAfterRetryBudgetExhausted(t *testing.T) {
	g := buildGraph(t, "a * 1 -> b")
	reg := registry.New()

	var invocations int64
	reg.Register("a", ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		atomic.AddInt64(&invocations, 1)
		return nil, errors.New("permanent failure")
	}))
	reg.Register("b", alwaysOK("b-result"))

	out, err := Run(context.Background(), g, reg, WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	require.Equal(t, Failed, out.Status)
	require.EqualValues(t, 2, atomic.LoadInt64(&invocations))
	require.Contains(t, out.FailedNodes, "a")

	entryB := out.Results[instanceLabel("b", 0)]
	require.Equal(t, resultstore.Failed, entryB.Status)
	var upstream *UpstreamFailedError
	require.True(t, errors.As(entryB.Err, &upstream))
}

func TestRunParallelBranchesJoin(t *testing.T) {
	g := buildGraph(t, "a || b -> c")
	reg := registry.New()
	reg.Register("a", alwaysOK("a-result"))
	reg.Register("b", alwaysOK("b-result"))

	var mu sync.Mutex
	var seen []registry.Inputs
	reg.Register("c", ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		mu.Lock()
		seen = append(seen, in)
		mu.Unlock()
		return "c-result", nil
	}))

	out, err := Run(context.Background(), g, reg)
	require.NoError(t, err)
	require.Equal(t, Succeeded, out.Status)
	require.Len(t, seen, 1)
	require.Equal(t, "a-result", seen[0]["a"])
	require.Equal(t, "b-result", seen[0]["b"])
}

func TestRunConditionalSelectsOneBranchAndSkipsSibling(t *testing.T) {
	g := buildGraph(t, "router(success, failure)")
	reg := registry.New()
	reg.Register("router", alwaysOK("success"))
	reg.Register("success", alwaysOK("handled"))
	reg.Register("failure", alwaysOK("unreached"))

	out, err := Run(context.Background(), g, reg)
	require.NoError(t, err)
	require.Equal(t, Succeeded, out.Status)

	require.Equal(t, resultstore.Succeeded, out.Results[instanceLabel("success", 0)].Status)
	require.Equal(t, resultstore.Skipped, out.Results[instanceLabel("failure", 0)].Status)
}

func TestRunReplicaFanOutInvokesConsumerPerReplica(t *testing.T) {
	g := buildGraph(t, "2 |-> producer -> consumer")
	reg := registry.New()
	reg.Register("producer", ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		return "item", nil
	}))

	var mu sync.Mutex
	var invocations int
	reg.Register("consumer", ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		mu.Lock()
		invocations++
		mu.Unlock()
		return "consumed", nil
	}))

	out, err := Run(context.Background(), g, reg)
	require.NoError(t, err)
	require.Equal(t, Succeeded, out.Status)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, invocations)
	require.Equal(t, resultstore.Succeeded, out.Results[instanceLabel("consumer", 0)].Status)
	require.Equal(t, resultstore.Succeeded, out.Results[instanceLabel("consumer", 1)].Status)
}

func TestRunHonorsNonRetryableError(t *testing.T) {
	g := buildGraph(t, "a * 5 -> b")
	reg := registry.New()

	var invocations int64
	reg.Register("a", ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		atomic.AddInt64(&invocations, 1)
		return nil, registry.NonRetryable(errors.New("bad input, retrying won't help"))
	}))
	reg.Register("b", alwaysOK("b-result"))

	out, err := Run(context.Background(), g, reg, WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	require.Equal(t, Failed, out.Status)
	require.EqualValues(t, 1, atomic.LoadInt64(&invocations))
}

func TestRunExceedsBudgetReturnsTimeoutOutcome(t *testing.T) {
	g := buildGraph(t, "a -> b")
	reg := registry.New()
	reg.Register("a", ioHandler(func(ctx context.Context, in registry.Inputs) (registry.Value, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	reg.Register("b", alwaysOK("b-result"))

	out, err := Run(context.Background(), g, reg, WithRunBudget(20*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, Failed, out.Status)
}

// fastRetry keeps retry backoff negligible so these tests don't spend
// wall-clock time waiting on the default policy's delay.
func fastRetry() executor.RetryPolicy {
	return executor.RetryPolicy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}
