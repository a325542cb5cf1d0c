package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bargom/pointyflow/internal/graph"
	"github.com/bargom/pointyflow/internal/parser"
	"github.com/bargom/pointyflow/internal/registry"
	"github.com/bargom/pointyflow/internal/scheduler"
)

var runBudget time.Duration

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a Pointy-Lang file against mock handlers",
		Long: `Run loads a Pointy-Lang file, binds every task name it references to
a mock handler that succeeds immediately and echoes its inputs back,
and executes it through the scheduler. It exists to exercise the whole
pipeline end to end without requiring a real task registry; production
callers build their own registry and call the scheduler package
directly instead of going through this command.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
	c.Flags().DurationVar(&runBudget, "budget", 0, "run-wide wall-clock deadline (0 = none)")
	return c
}

func runRun(cmd *cobra.Command, args []string) error {
	filename := args[0]
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	expr, err := parser.Parse(filename, string(data))
	if err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}

	g, err := graph.NewBuilder().Build(expr)
	if err != nil {
		return fmt.Errorf("shape error: %w", err)
	}

	reg := mockRegistryFor(g)

	var opts []scheduler.Option
	if runBudget > 0 {
		opts = append(opts, scheduler.WithRunBudget(runBudget))
	}

	printVerbose(cmd, "Running %s (%d nodes)\n", filename, len(g.Nodes))
	outcome, err := scheduler.Run(context.Background(), g, reg, opts...)
	if err != nil {
		return fmt.Errorf("run error: %w", err)
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(outcome)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s\n", outcome.RunID, outcome.Status)
	for label, entry := range outcome.Results {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", label, entry)
	}
	return nil
}

// mockRegistryFor binds every distinct task name in g to a handler that
// succeeds immediately, echoing its inputs as its result.
func mockRegistryFor(g *graph.Graph) *registry.Registry {
	reg := registry.New()
	seen := map[string]bool{}
	for _, n := range g.Nodes {
		if seen[n.TaskName] {
			continue
		}
		seen[n.TaskName] = true
		reg.Register(n.TaskName, registry.NewHandlerFunc(registry.IOBound, func(ctx context.Context, taskName string, in registry.Inputs) (registry.Value, error) {
			return map[string]any{"task": taskName, "inputs": in}, nil
		}))
	}
	return reg
}
