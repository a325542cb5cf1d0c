// Package cmd provides the CLI commands for pointyflow.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pointyflow",
	Short: "Pointy-Lang workflow runtime",
	Long: `pointyflow parses, validates, and runs workflows written in
Pointy-Lang, a small DSL for describing task graphs: sequencing,
parallel fan-out, per-replica broadcast, retry budgets, and
conditional dispatch.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// NewRootCmd builds a fresh command tree, for tests that don't want to
// share package-level flag state with other test cases.
func NewRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:          "pointyflow",
		Short:        rootCmd.Short,
		Long:         rootCmd.Long,
		SilenceUsage: true,
	}
	c.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	c.PersistentFlags().StringVarP(&outputFormat, "output", "o", "plain", "output format (json|plain)")
	c.AddCommand(newParseCmd())
	c.AddCommand(newValidateCmd())
	c.AddCommand(newRunCmd())
	return c
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "plain", "output format (json|plain)")
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newRunCmd())
}

func printVerbose(cmd *cobra.Command, format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

func exitWithError(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	os.Exit(1)
}
