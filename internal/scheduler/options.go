package scheduler

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bargom/pointyflow/internal/executor"
	"github.com/bargom/pointyflow/internal/registry"
	"github.com/bargom/pointyflow/pkg/logging"
	"github.com/bargom/pointyflow/pkg/metrics"
)

// NodePolicy overrides a graph node's DSL-declared retry budget and
// replica count for one run, without touching the source file. Left
// zero-valued, the graph's own values apply.
type NodePolicy struct {
	MaxAttempts int `validate:"omitempty,min=0"`
	Replicas    int `validate:"omitempty,min=1"`
}

// RunOptions configures one Scheduler run. Built via functional Options
// and validated before the run starts, matching the teacher's
// handler-layer validator.Validate idiom.
type RunOptions struct {
	RunID string `validate:"omitempty,min=1"`

	// Budget is a run-wide wall-clock deadline. Zero means no deadline.
	Budget time.Duration `validate:"omitempty,min=0"`

	NodePolicies map[string]NodePolicy

	SelectBranch registry.SelectBranch

	Logger  *logging.Logger
	Metrics *metrics.Registry

	IOPoolBuffer   int `validate:"omitempty,min=1"`
	IOMaxInFlight  int `validate:"omitempty,min=1"`
	CPUWorkers     int `validate:"omitempty,min=1"`
	CPUQueueDepth  int `validate:"omitempty,min=1"`

	RetryPolicy executor.RetryPolicy
}

// Option configures a RunOptions.
type Option func(*RunOptions)

// WithRunID sets an explicit run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *RunOptions) { o.RunID = id }
}

// WithRunBudget sets a run-wide wall-clock deadline; on expiry every
// in-flight node is cancelled and the Outcome's Status is Failed. The
// Outcome carries no separate deadline reason, and Run returns no error.
func WithRunBudget(d time.Duration) Option {
	return func(o *RunOptions) { o.Budget = d }
}

// WithNodePolicy overrides the retry/replica policy for one task name.
func WithNodePolicy(taskName string, p NodePolicy) Option {
	return func(o *RunOptions) {
		if o.NodePolicies == nil {
			o.NodePolicies = map[string]NodePolicy{}
		}
		o.NodePolicies[taskName] = p
	}
}

// WithSelectBranch overrides the default string-match branch selector.
func WithSelectBranch(fn registry.SelectBranch) Option {
	return func(o *RunOptions) { o.SelectBranch = fn }
}

// WithLogger attaches a logger. Without it, a run logs through
// logging.New(logging.DefaultConfig()): JSON at info level to stdout.
func WithLogger(l *logging.Logger) Option {
	return func(o *RunOptions) { o.Logger = l }
}

// WithMetrics attaches a Prometheus-backed metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *RunOptions) { o.Metrics = m }
}

// WithPoolSizes overrides the default executor pool dimensions.
func WithPoolSizes(ioBuffer, ioMaxInFlight, cpuWorkers, cpuQueueDepth int) Option {
	return func(o *RunOptions) {
		o.IOPoolBuffer = ioBuffer
		o.IOMaxInFlight = ioMaxInFlight
		o.CPUWorkers = cpuWorkers
		o.CPUQueueDepth = cpuQueueDepth
	}
}

// WithRetryPolicy overrides the default backoff policy.
func WithRetryPolicy(p executor.RetryPolicy) Option {
	return func(o *RunOptions) { o.RetryPolicy = p }
}

// defaultRunOptions fills in every zero-valued field a run needs even
// when the caller passes no Options.
func defaultRunOptions() RunOptions {
	return RunOptions{
		SelectBranch:  registry.DefaultSelectBranch,
		IOPoolBuffer:  64,
		IOMaxInFlight: 32,
		CPUWorkers:    4,
		CPUQueueDepth: 64,
		RetryPolicy:   executor.DefaultRetryPolicy(),
	}
}

func resolveOptions(opts ...Option) (RunOptions, error) {
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logging.New(logging.DefaultConfig())
	}
	if err := validator.New().Struct(o); err != nil {
		return RunOptions{}, err
	}
	return o, nil
}
