// Package scheduler is the core driver: it owns the runtime state of one
// workflow run, dispatches ready nodes to the Executor Pool, applies
// retry policy, and propagates results along graph edges. Grounded on
// the teacher's service.SchedulerService dispatch shape
// (internal/scheduler/service/scheduler_service.go), reworked from a
// durable job queue into a single in-process run driver, since this
// engine has no persistence layer (see DESIGN.md).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bargom/pointyflow/internal/executor"
	"github.com/bargom/pointyflow/internal/graph"
	"github.com/bargom/pointyflow/internal/registry"
	"github.com/bargom/pointyflow/internal/resultstore"
	"github.com/bargom/pointyflow/pkg/logging"
)

type instanceState int

const (
	pending instanceState = iota
	ready
	running
	succeeded
	failed
	skipped
	cancelledState
)

type instanceKey struct {
	NodeID  string
	Replica int
}

type instance struct {
	key               instanceKey
	state             instanceState
	retryBudget       int
	attemptsRemaining int
	attempts          int
	started           time.Time
	ended             time.Time
	cancel            context.CancelFunc
}

// Run executes the given Task Graph IR to completion against reg,
// applying the configured Options, and returns the run's terminal
// Outcome.
func Run(ctx context.Context, g *graph.Graph, reg *registry.Registry, opts ...Option) (*Outcome, error) {
	o, err := resolveOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid run options: %w", err)
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}

	s := newScheduler(g, reg, o)
	return s.run(ctx)
}

type scheduler struct {
	g    *graph.Graph
	reg  *registry.Registry
	opts RunOptions
	log  *logging.Logger

	store *resultstore.Store

	instances   map[instanceKey]*instance
	childOwner  map[string]string // conditional child entry node ID -> owning selector node ID
	selected    map[instanceKey]string
	readyQueue  []instanceKey
	retryReady  chan instanceKey
	retriesOpen int

	ioPool  executor.Pool
	cpuPool executor.Pool
	waiting map[string]struct {
		key  instanceKey
		pool string
	}
}

func newScheduler(g *graph.Graph, reg *registry.Registry, o RunOptions) *scheduler {
	s := &scheduler{
		g:          g,
		reg:        reg,
		opts:       o,
		log:        o.Logger.WithRun(o.RunID),
		store:      resultstore.New(),
		instances:  map[instanceKey]*instance{},
		childOwner: map[string]string{},
		selected:   map[instanceKey]string{},
		retryReady: make(chan instanceKey, 16),
		waiting: map[string]struct {
			key  instanceKey
			pool string
		}{},
	}

	for id, n := range g.Nodes {
		retryBudget := n.RetryBudget
		replicas := n.ReplicaCount
		if p, ok := o.NodePolicies[n.TaskName]; ok {
			if p.MaxAttempts > 0 {
				retryBudget = p.MaxAttempts
			}
			if p.Replicas > 0 {
				replicas = p.Replicas
			}
		}
		for r := 0; r < replicas; r++ {
			key := instanceKey{NodeID: id, Replica: r}
			s.instances[key] = &instance{
				key:               key,
				state:             pending,
				retryBudget:       retryBudget,
				attemptsRemaining: retryBudget + 1,
			}
		}
		for _, child := range n.ConditionalChildren {
			s.childOwner[child] = id
		}
	}

	return s
}

func (s *scheduler) replicaCountOf(nodeID string) int {
	n := 0
	for key := range s.instances {
		if key.NodeID == nodeID && key.Replica+1 > n {
			n = key.Replica + 1
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

func (s *scheduler) run(ctx context.Context) (*Outcome, error) {
	runCtx := logging.WithRunID(ctx, s.opts.RunID)
	var cancelRun context.CancelFunc
	timedOut := false
	if s.opts.Budget > 0 {
		runCtx, cancelRun = context.WithTimeout(runCtx, s.opts.Budget)
		defer cancelRun()
	}

	s.ioPool = executor.NewIOPool(s.opts.IOPoolBuffer, s.opts.IOMaxInFlight)
	if s.opts.Metrics != nil {
		s.ioPool.OnBackpressure(func() { s.opts.Metrics.Scheduler().IncBackpressure("io") })
	}
	s.cpuPool = executor.NewCPUPool(s.opts.CPUWorkers, s.opts.CPUQueueDepth, s.opts.CPUQueueDepth)
	if s.opts.Metrics != nil {
		s.cpuPool.OnBackpressure(func() { s.opts.Metrics.Scheduler().IncBackpressure("cpu") })
	}
	defer s.ioPool.Shutdown(context.Background())
	defer s.cpuPool.Shutdown(context.Background())

	s.settle()

	inFlight := 0
loop:
	for s.countActive() > 0 {
		for len(s.readyQueue) > 0 {
			key := s.readyQueue[0]
			s.readyQueue = s.readyQueue[1:]
			if s.dispatch(runCtx, key) {
				inFlight++
			}
		}
		// A dispatch can fail immediately (unknown task, pool already
		// shut down) without ever reaching the completion channels;
		// settle again so that failure cascades to dependents and any
		// newly-ready nodes get dispatched before this goroutine blocks.
		s.settle()
		if len(s.readyQueue) > 0 {
			continue
		}

		if s.opts.Metrics != nil {
			s.opts.Metrics.Scheduler().SetQueueDepth(len(s.readyQueue))
		}

		if inFlight == 0 && s.retriesOpen == 0 {
			break
		}

		select {
		case c, ok := <-s.ioPool.Completions():
			if !ok {
				break loop
			}
			s.handleCompletion(c)
			inFlight--
		case c, ok := <-s.cpuPool.Completions():
			if !ok {
				break loop
			}
			s.handleCompletion(c)
			inFlight--
		case key := <-s.retryReady:
			s.retriesOpen--
			s.instances[key].state = ready
			s.readyQueue = append(s.readyQueue, key)
		case <-runCtx.Done():
			timedOut = true
			break loop
		}
		s.settle()
	}

	if timedOut {
		s.cancelAllRunning()
		return s.assembleOutcome(Failed, &TimeoutError{Budget: s.opts.Budget.String()}), nil
	}

	return s.assembleOutcome(s.finalStatus(), nil), nil
}

func (s *scheduler) poolFor(kind registry.HandlerKind) executor.Pool {
	if kind == registry.CPUBound {
		return s.cpuPool
	}
	return s.ioPool
}

func (s *scheduler) poolName(kind registry.HandlerKind) string {
	if kind == registry.CPUBound {
		return "cpu"
	}
	return "io"
}

// dispatch submits key's node for execution, returning true only if a
// job actually entered a pool: the caller tracks in-flight completions
// by that count, and an immediate failure (unknown task, pool shut
// down) never produces one.
func (s *scheduler) dispatch(ctx context.Context, key instanceKey) bool {
	inst := s.instances[key]
	node := s.g.Nodes[key.NodeID]

	handler, ok := s.reg.Lookup(node.TaskName)
	if !ok {
		s.failInstance(inst, &registry.UnknownTaskError{Name: node.TaskName})
		return false
	}

	inst.state = running
	inst.started = time.Now()
	inst.attempts++

	dispatchCtx := logging.WithNodeID(ctx, key.NodeID)
	dispatchCtx = logging.WithStep(dispatchCtx, "dispatch")
	instCtx, cancel := context.WithCancel(dispatchCtx)
	inst.cancel = cancel

	pool := s.poolFor(handler.Kind())
	id, err := pool.Submit(instCtx, executor.Job{
		NodeID:   key.NodeID,
		Replica:  key.Replica,
		TaskName: node.TaskName,
		Handler:  handler,
		Inputs:   s.inputsFor(key),
	})
	if err != nil {
		cancel()
		s.failInstance(inst, err)
		return false
	}
	s.waiting[id] = struct {
		key  instanceKey
		pool string
	}{key: key, pool: s.poolName(handler.Kind())}
	return true
}

func (s *scheduler) inputsFor(key instanceKey) registry.Inputs {
	node := s.g.Nodes[key.NodeID]
	in := registry.Inputs{}
	seen := map[string]bool{}
	for _, e := range node.Incoming {
		if seen[e.From] {
			continue
		}
		seen[e.From] = true
		predReplica := key.Replica % s.replicaCountOf(e.From)
		if entry, ok := s.store.Get(e.From, predReplica); ok && entry.Status == resultstore.Succeeded {
			in[e.From] = entry.Value
		}
	}
	return in
}

func (s *scheduler) handleCompletion(c executor.Completion) {
	w, ok := s.waiting[c.ID]
	if !ok {
		return
	}
	delete(s.waiting, c.ID)
	key := w.key
	inst := s.instances[key]
	inst.ended = time.Now()
	node := s.g.Nodes[key.NodeID]

	if s.opts.Metrics != nil {
		status := "Succeeded"
		if c.Err != nil {
			status = "Failed"
		}
		s.opts.Metrics.Scheduler().ObserveNodeDuration(node.TaskName, status, inst.ended.Sub(inst.started))
	}

	if c.Err == nil {
		inst.state = succeeded
		s.store.Put(resultstore.Entry{NodeID: key.NodeID, Replica: key.Replica, Status: resultstore.Succeeded, Value: c.Value})
		if node.Conditional {
			s.selectBranch(key, node, c.Value)
		}
		return
	}

	if errors.Is(c.Err, context.Canceled) {
		inst.state = cancelledState
		s.store.Put(resultstore.Entry{NodeID: key.NodeID, Replica: key.Replica, Status: resultstore.Cancelled, Err: &CancelledError{NodeID: key.NodeID}})
		return
	}

	var nonRetryable *registry.NonRetryableError
	isNonRetryable := errors.As(c.Err, &nonRetryable)

	inst.attemptsRemaining--
	if isNonRetryable || inst.attemptsRemaining <= 0 {
		s.failInstance(inst, &HandlerError{NodeID: key.NodeID, Cause: c.Err})
		return
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.Scheduler().IncRetries(node.TaskName)
	}
	delay := s.opts.RetryPolicy.Backoff(inst.attempts - 1)
	s.retriesOpen++
	go func() {
		time.Sleep(delay)
		s.retryReady <- key
	}()
}

func (s *scheduler) failInstance(inst *instance, cause error) {
	inst.state = failed
	s.store.Put(resultstore.Entry{NodeID: inst.key.NodeID, Replica: inst.key.Replica, Status: resultstore.Failed, Err: cause})
}

func (s *scheduler) selectBranch(key instanceKey, node *graph.Node, result registry.Value) {
	childNames := make([]string, 0, len(node.ConditionalChildren))
	nameToEntry := map[string]string{}
	for _, entry := range node.ConditionalChildren {
		name := s.g.Nodes[entry].TaskName
		childNames = append(childNames, name)
		nameToEntry[name] = entry
	}
	chosenName, err := s.opts.SelectBranch(result, childNames)
	if err != nil {
		s.log.Warn("conditional branch selection failed, all children skipped", "node_id", key.NodeID, "error", err)
		return
	}
	if entry, ok := nameToEntry[chosenName]; ok {
		s.selected[key] = entry
	}
}

// settle runs the readiness fixed point: nodes whose dependencies have
// resolved move Pending -> Ready (or Skipped/Failed) until no instance
// changes state in a full pass.
func (s *scheduler) settle() {
	changed := true
	for changed {
		changed = false
		for key, inst := range s.instances {
			if inst.state != pending {
				continue
			}
			if s.settleOne(key, inst) {
				changed = true
			}
		}
	}
}

func (s *scheduler) settleOne(key instanceKey, inst *instance) bool {
	node := s.g.Nodes[key.NodeID]

	if owner, ok := s.childOwner[key.NodeID]; ok {
		ownerReplica := key.Replica % s.replicaCountOf(owner)
		ownerInst := s.instances[instanceKey{owner, ownerReplica}]
		switch ownerInst.state {
		case succeeded:
			chosen, decided := s.selected[instanceKey{owner, ownerReplica}]
			if !decided || chosen != key.NodeID {
				inst.state = skipped
				s.store.Put(resultstore.Entry{NodeID: key.NodeID, Replica: key.Replica, Status: resultstore.Skipped})
				return true
			}
			// fall through: this is the selected branch, evaluate normally
		case failed, cancelledState:
			s.failInstance(inst, &UpstreamFailedError{NodeID: key.NodeID, Origin: owner})
			return true
		default:
			return false
		}
	}

	if len(node.Incoming) == 0 {
		inst.state = ready
		s.readyQueue = append(s.readyQueue, key)
		return true
	}

	seen := map[string]bool{}
	anyPending := false
	failedOrigin := ""
	succeededCount := 0
	total := 0
	for _, e := range node.Incoming {
		if seen[e.From] {
			continue
		}
		seen[e.From] = true
		total++
		predReplica := key.Replica % s.replicaCountOf(e.From)
		predInst := s.instances[instanceKey{e.From, predReplica}]
		switch predInst.state {
		case succeeded:
			succeededCount++
		case skipped:
			// contributes nothing, doesn't block
		case failed, cancelledState:
			failedOrigin = e.From
		default:
			anyPending = true
		}
	}

	if failedOrigin != "" {
		s.failInstance(inst, &UpstreamFailedError{NodeID: key.NodeID, Origin: failedOrigin})
		return true
	}
	if anyPending {
		return false
	}
	if total > 0 && succeededCount == 0 {
		inst.state = skipped
		s.store.Put(resultstore.Entry{NodeID: key.NodeID, Replica: key.Replica, Status: resultstore.Skipped})
		return true
	}

	inst.state = ready
	s.readyQueue = append(s.readyQueue, key)
	return true
}

func (s *scheduler) countActive() int {
	n := 0
	for _, inst := range s.instances {
		switch inst.state {
		case succeeded, failed, skipped, cancelledState:
		default:
			n++
		}
	}
	return n
}

func (s *scheduler) cancelAllRunning() {
	for _, inst := range s.instances {
		if inst.state == running && inst.cancel != nil {
			inst.cancel()
		}
	}
}

func (s *scheduler) finalStatus() RunStatus {
	for _, exit := range s.g.Exits {
		for r := 0; r < s.replicaCountOf(exit); r++ {
			inst := s.instances[instanceKey{exit, r}]
			if inst.state != succeeded && inst.state != skipped {
				return Failed
			}
		}
	}
	return Succeeded
}

func (s *scheduler) assembleOutcome(status RunStatus, runErr error) *Outcome {
	_ = runErr
	results := make(map[string]resultstore.Entry)
	for _, e := range s.store.All() {
		results[instanceLabel(e.NodeID, e.Replica)] = e
	}
	timings := make(map[string]Timing)
	var failedNodes []string
	for key, inst := range s.instances {
		timings[instanceLabel(key.NodeID, key.Replica)] = Timing{Started: inst.started, Ended: inst.ended, Attempts: inst.attempts}
		if inst.state == failed {
			failedNodes = append(failedNodes, key.NodeID)
		}
	}
	return &Outcome{
		RunID:       s.opts.RunID,
		Status:      status,
		FailedNodes: failedNodes,
		Results:     results,
		Timings:     timings,
	}
}
