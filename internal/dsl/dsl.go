// Package dsl is the end-to-end loader: it takes Pointy-Lang source
// text, runs it through the lexer, parser, and graph builder, and
// hands back a Graph validated against a concrete task Registry. It is
// the one place the engine's pipeline stages get wired together, the
// way the teacher's workflow dsl_loader.go composes its YAML decode ->
// validate -> register steps into a single entry point.
package dsl

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/bargom/pointyflow/internal/graph"
	"github.com/bargom/pointyflow/internal/parser"
	"github.com/bargom/pointyflow/internal/registry"
)

var sourceValidator = validator.New()

// sourceDocument is the struct-tag validation target for a workflow
// source before it reaches the lexer, matching the handler-layer
// validator.Validate idiom used throughout this module (see
// internal/scheduler/options.go).
type sourceDocument struct {
	Filename string `validate:"required"`
	Source   string `validate:"required"`
}

// Load lexes, parses, and lowers the Pointy-Lang source in src (using
// filename only for error messages), rejecting any task name absent
// from reg.
func Load(filename, src string, reg *registry.Registry) (*graph.Graph, error) {
	if err := sourceValidator.Struct(sourceDocument{Filename: filename, Source: src}); err != nil {
		return nil, fmt.Errorf("dsl: invalid source document: %w", err)
	}

	expr, err := parser.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("dsl: parse %s: %w", filename, err)
	}

	g, err := graph.NewBuilder(graph.WithTaskValidator(reg.Known)).Build(expr)
	if err != nil {
		return nil, fmt.Errorf("dsl: build graph from %s: %w", filename, err)
	}
	return g, nil
}

// LoadFile reads path and runs it through Load.
func LoadFile(path string, reg *registry.Registry) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dsl: read %s: %w", path, err)
	}
	return Load(path, string(data), reg)
}
