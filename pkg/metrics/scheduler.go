package metrics

import "time"

// SchedulerMetrics provides methods to record scheduler/executor metrics.
// Mirrors the teacher's WorkflowMetrics accessor shape (pkg/metrics/workflow.go).
type SchedulerMetrics struct {
	registry *Registry
}

// Scheduler returns the scheduler metrics interface for the registry.
func (r *Registry) Scheduler() *SchedulerMetrics { return &SchedulerMetrics{registry: r} }

// SetActiveNodes sets the active node count for one pool kind.
func (m *SchedulerMetrics) SetActiveNodes(pool string, count int) {
	m.registry.activeNodes.WithLabelValues(pool).Set(float64(count))
}

// SetQueueDepth sets the current ready-queue length.
func (m *SchedulerMetrics) SetQueueDepth(depth int) {
	m.registry.queueDepth.Set(float64(depth))
}

// IncRetries records one retry dispatch for taskName.
func (m *SchedulerMetrics) IncRetries(taskName string) {
	m.registry.retriesTotal.WithLabelValues(taskName).Inc()
}

// ObserveNodeDuration records one node invocation's duration and outcome.
func (m *SchedulerMetrics) ObserveNodeDuration(taskName, status string, d time.Duration) {
	m.registry.nodeDuration.WithLabelValues(taskName, status).Observe(d.Seconds())
}

// IncBackpressure records one Submit call that blocked on a full pool.
func (m *SchedulerMetrics) IncBackpressure(pool string) {
	m.registry.backpressureEvents.WithLabelValues(pool).Inc()
}

// NodeTimer times a single node invocation attempt.
type NodeTimer struct {
	metrics  *SchedulerMetrics
	taskName string
	start    time.Time
}

// NewNodeTimer starts timing one node invocation attempt.
func (m *SchedulerMetrics) NewNodeTimer(taskName string) *NodeTimer {
	return &NodeTimer{metrics: m, taskName: taskName, start: time.Now()}
}

// Done records the attempt's duration under status.
func (t *NodeTimer) Done(status string) {
	t.metrics.ObserveNodeDuration(t.taskName, status, time.Since(t.start))
}
