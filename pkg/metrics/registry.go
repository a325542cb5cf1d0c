package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages the Prometheus metrics for one pointyflow process.
// Grounded on the teacher's metrics.Registry (pkg/metrics/registry.go),
// trimmed to the scheduler/executor metric group and stripped of the
// HTTP/DB/integration groups that have no home in this engine.
type Registry struct {
	config   Config
	registry *prometheus.Registry

	activeNodes          *prometheus.GaugeVec
	queueDepth           prometheus.Gauge
	retriesTotal         *prometheus.CounterVec
	nodeDuration         *prometheus.HistogramVec
	backpressureEvents   *prometheus.CounterVec

	mu sync.RWMutex
}

var (
	globalRegistry *Registry
	once           sync.Once
)

// NewRegistry creates a new metrics registry with the given configuration.
func NewRegistry(config Config) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{config: config, registry: reg}
	r.registerSchedulerMetrics()

	if config.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if config.EnableRuntimeMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}

	return r
}

// Global returns the global registry instance, initializing it with default config if needed.
func Global() *Registry {
	once.Do(func() {
		if globalRegistry == nil {
			globalRegistry = NewRegistry(DefaultConfig())
		}
	})
	return globalRegistry
}

// SetGlobal sets the global registry instance.
func SetGlobal(r *Registry) { globalRegistry = r }

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry { return r.registry }

// Config returns the registry configuration.
func (r *Registry) Config() Config { return r.config }

func (r *Registry) registerSchedulerMetrics() {
	ns := r.config.Namespace

	r.activeNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "active_nodes",
			Help:      "Number of graph nodes currently Running, by pool kind",
		},
		[]string{"pool"},
	)

	r.queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of node instances currently in the ready queue",
		},
	)

	r.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "retries_total",
			Help:      "Total number of node retry attempts dispatched",
		},
		[]string{"task_name"},
	)

	r.nodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "node_duration_seconds",
			Help:      "Duration of one node invocation attempt",
			Buckets:   r.config.HistogramBuckets.NodeDuration,
		},
		[]string{"task_name", "status"},
	)

	r.backpressureEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "backpressure_events_total",
			Help:      "Total number of times Submit blocked on a full executor pool",
		},
		[]string{"pool"},
	)

	r.registry.MustRegister(
		r.activeNodes,
		r.queueDepth,
		r.retriesTotal,
		r.nodeDuration,
		r.backpressureEvents,
	)
}
