package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bargom/pointyflow/internal/parser"
)

func newParseCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a Pointy-Lang file and print its AST",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
	return c
}

func runParse(cmd *cobra.Command, args []string) error {
	filename := args[0]
	printVerbose(cmd, "Parsing file: %s\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	expr, err := parser.Parse(filename, string(data))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(expr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), expr.String())
	return nil
}
