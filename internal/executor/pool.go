// Package executor runs task handlers. Two pool implementations share a
// single Submit/completion-stream contract, matching spec §4.6: an
// IOPool for handlers dominated by I/O wait, and a CPUPool of a fixed
// worker goroutines for CPU-bound handlers. Both are grounded on the
// teacher's queue.Manager worker-pool shape (internal/scheduler/queue/manager.go),
// reimplemented in-process rather than against asynq/Redis, since this
// engine has no durable queue (see DESIGN.md).
package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/bargom/pointyflow/internal/registry"
)

// ErrPoolClosed is returned by Submit once Shutdown has been called.
var ErrPoolClosed = errors.New("executor: pool is shut down")

// Job is one handler invocation submitted to a Pool.
type Job struct {
	NodeID   string
	Replica  int
	TaskName string
	Handler  registry.Handler
	Inputs   registry.Inputs
}

// Completion reports a finished Job, tagged with the ID Submit returned.
type Completion struct {
	ID      string
	NodeID  string
	Replica int
	Value   registry.Value
	Err     error
}

// Pool runs Jobs and reports Completions.
type Pool interface {
	// Submit enqueues job for execution and returns a completion ID.
	// The job's result arrives on Completions(), tagged with that ID.
	Submit(ctx context.Context, job Job) (string, error)
	// Completions is the shared stream of finished jobs.
	Completions() <-chan Completion
	// Shutdown stops accepting new jobs and waits for in-flight ones to
	// finish or ctx to expire.
	Shutdown(ctx context.Context) error
}

func runJob(ctx context.Context, id string, job Job) Completion {
	value, err := job.Handler.Run(ctx, job.TaskName, job.Inputs)
	return Completion{ID: id, NodeID: job.NodeID, Replica: job.Replica, Value: value, Err: err}
}

// IOPool runs every job on its own goroutine: cooperative concurrency
// backed by Go's netpoller rather than a bounded worker count, suited to
// handlers that spend most of their time blocked on I/O. In-flight jobs
// are still capped — a buffered semaphore channel sized by maxInFlight —
// so Submit blocks once the bound is reached instead of spawning an
// unbounded number of goroutines.
type IOPool struct {
	completions chan Completion
	inFlight    chan struct{}
	wg          sync.WaitGroup

	onBackpressure func()

	mu       sync.Mutex
	draining bool
}

// NewIOPool returns an IOPool with the given completion-channel buffer
// and a bound of maxInFlight concurrently-running jobs.
func NewIOPool(bufferSize, maxInFlight int) *IOPool {
	return &IOPool{
		completions: make(chan Completion, bufferSize),
		inFlight:    make(chan struct{}, maxInFlight),
	}
}

// OnBackpressure registers a callback invoked each time Submit blocks
// because the pool is already at maxInFlight. Intended for metrics.
func (p *IOPool) OnBackpressure(fn func()) { p.onBackpressure = fn }

func (p *IOPool) Submit(ctx context.Context, job Job) (string, error) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return "", ErrPoolClosed
	}
	p.mu.Unlock()

	select {
	case p.inFlight <- struct{}{}:
	default:
		if p.onBackpressure != nil {
			p.onBackpressure()
		}
		select {
		case p.inFlight <- struct{}{}:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		<-p.inFlight
		return "", ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	id := uuid.NewString()
	go func() {
		defer p.wg.Done()
		defer func() { <-p.inFlight }()
		c := runJob(ctx, id, job)
		select {
		case p.completions <- c:
		case <-ctx.Done():
		}
	}()
	return id, nil
}

func (p *IOPool) Completions() <-chan Completion { return p.completions }

func (p *IOPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// queuedJob pairs a Job with the context and ID it was submitted under,
// since CPUPool's worker loop reads from a plain channel.
type queuedJob struct {
	ctx context.Context
	id  string
	Job
}

// CPUPool runs jobs on a fixed number of worker goroutines, matching the
// teacher's asynq Concurrency knob without the Redis-backed queue behind
// it.
type CPUPool struct {
	jobs        chan queuedJob
	completions chan Completion
	wg          sync.WaitGroup

	onBackpressure func()

	mu       sync.Mutex
	draining bool
}

// OnBackpressure registers a callback invoked each time Submit blocks
// because the worker queue is already full. Intended for metrics.
func (p *CPUPool) OnBackpressure(fn func()) { p.onBackpressure = fn }

// NewCPUPool starts `workers` goroutines draining a job queue of the
// given depth.
func NewCPUPool(workers, queueDepth, completionBuffer int) *CPUPool {
	p := &CPUPool{
		jobs:        make(chan queuedJob, queueDepth),
		completions: make(chan Completion, completionBuffer),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *CPUPool) worker() {
	defer p.wg.Done()
	for qj := range p.jobs {
		p.completions <- runJob(qj.ctx, qj.id, qj.Job)
	}
}

func (p *CPUPool) Submit(ctx context.Context, job Job) (string, error) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return "", ErrPoolClosed
	}
	p.mu.Unlock()

	id := uuid.NewString()
	select {
	case p.jobs <- queuedJob{ctx: ctx, id: id, Job: job}:
		return id, nil
	default:
		if p.onBackpressure != nil {
			p.onBackpressure()
		}
		select {
		case p.jobs <- queuedJob{ctx: ctx, id: id, Job: job}:
			return id, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (p *CPUPool) Completions() <-chan Completion { return p.completions }

func (p *CPUPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()
	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
