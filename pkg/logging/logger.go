package logging

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// RunIDKey is the context key for the scheduler run identifier.
	RunIDKey contextKey = "run_id"
	// NodeIDKey is the context key for the graph node being executed.
	NodeIDKey contextKey = "node_id"
	// StepKey is the context key for the current dispatch-loop step.
	StepKey contextKey = "step"
)

// WithRunID returns a context carrying run for log correlation.
func WithRunID(ctx context.Context, run string) context.Context {
	return context.WithValue(ctx, RunIDKey, run)
}

// WithNodeID returns a context carrying node for log correlation.
func WithNodeID(ctx context.Context, node string) context.Context {
	return context.WithValue(ctx, NodeIDKey, node)
}

// WithStep returns a context carrying the current dispatch-loop step.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, StepKey, step)
}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
	config Config
}

// New creates a new Logger with the given configuration.
func New(config Config) *Logger {
	return NewWithWriter(config, config.GetOutput())
}

// NewWithWriter creates a new Logger with a custom writer.
func NewWithWriter(config Config, w io.Writer) *Logger {
	level := ParseLevel(config.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	contextHandler := &ContextHandler{
		Handler:    handler,
		sampleRate: config.SampleRate,
	}

	return &Logger{
		Logger: slog.New(contextHandler),
		config: config,
	}
}

// SetDefault sets this logger as the default slog logger.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), config: l.config}
}

// WithGroup returns a new Logger with the given group name.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{Logger: l.Logger.WithGroup(name), config: l.config}
}

// WithRun returns a new Logger tagged with a run identifier.
func (l *Logger) WithRun(runID string) *Logger {
	return l.With(slog.String("run_id", runID))
}

// WithNode returns a new Logger tagged with a graph node identifier.
func (l *Logger) WithNode(nodeID string) *Logger {
	return l.With(slog.String("node_id", nodeID))
}

// ContextHandler is a slog.Handler that extracts run/node/step values
// stashed in the context by WithRunID/WithNodeID/WithStep.
type ContextHandler struct {
	slog.Handler
	sampleRate float64
}

// Enabled reports whether the handler handles records at the given level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level == slog.LevelDebug && h.sampleRate < 1.0 {
		if rand.Float64() > h.sampleRate {
			return false
		}
	}
	return h.Handler.Enabled(ctx, level)
}

// Handle adds context values to the log record and passes to the wrapped handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		r.AddAttrs(slog.String("run_id", runID))
	}
	if nodeID, ok := ctx.Value(NodeIDKey).(string); ok && nodeID != "" {
		r.AddAttrs(slog.String("node_id", nodeID))
	}
	if step, ok := ctx.Value(StepKey).(string); ok && step != "" {
		r.AddAttrs(slog.String("step", step))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs), sampleRate: h.sampleRate}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name), sampleRate: h.sampleRate}
}

// Default returns a default logger using environment configuration.
func Default() *Logger {
	return New(ConfigFromEnv())
}
