// Package main is the entry point for the pointyflow CLI.
package main

import (
	"fmt"
	"os"

	"github.com/bargom/pointyflow/cmd/pointyflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
