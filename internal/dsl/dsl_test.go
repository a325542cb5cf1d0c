package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bargom/pointyflow/internal/graph"
	"github.com/bargom/pointyflow/internal/registry"
)

func TestLoadBuildsGraphFromKnownTasks(t *testing.T) {
	reg := registry.New()
	reg.Register("a", registry.NewHandlerFunc(registry.IOBound, func(ctx context.Context, _ string, in registry.Inputs) (registry.Value, error) {
		return nil, nil
	}))
	reg.Register("b", registry.NewHandlerFunc(registry.IOBound, func(ctx context.Context, _ string, in registry.Inputs) (registry.Value, error) {
		return nil, nil
	}))

	g, err := Load("run.ptly", "a -> b", reg)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
}

func TestLoadRejectsUnknownTask(t *testing.T) {
	reg := registry.New()
	reg.Register("a", registry.NewHandlerFunc(registry.IOBound, nil))

	_, err := Load("run.ptly", "a -> b", reg)
	require.Error(t, err)

	var unknown *graph.UnknownTaskError
	require.ErrorAs(t, err, &unknown)
}

func TestLoadSurfacesSyntaxErrors(t *testing.T) {
	reg := registry.New()
	_, err := Load("run.ptly", "a -> -> b", reg)
	require.Error(t, err)
}

func TestLoadRejectsEmptySourceDocument(t *testing.T) {
	reg := registry.New()

	_, err := Load("run.ptly", "", reg)
	require.Error(t, err)

	_, err = Load("", "a -> b", reg)
	require.Error(t, err)
}
