// Package pool runs jobs on a fixed number of workers fed by a bounded
// queue.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
)

const (
	DefaultWorkers = 4
	DefaultQueue   = 64
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("job queue is full")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("pool is shut down")
)

// Job is a unit of work.
type Job struct {
	ID string
	// Run does the work. ctx is cancelled when the pool is forced down.
	Run func(ctx context.Context)
	// Skip, if set, is called instead of Run when the pool context was
	// already cancelled by the time a worker picked the job up.
	Skip func(err error)
}

// Pool is a bounded worker pool.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	jobs   chan Job

	mu     sync.RWMutex
	closed bool

	running atomic.Int64
}

// New starts a pool with the given number of workers and queue size.
// Values of zero or less select the defaults. The pool's context derives
// from ctx, so cancelling ctx cancels every running job.
func New(ctx context.Context, workers, queue int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queue <= 0 {
		queue = DefaultQueue
	}
	pctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(pctx)
	p := &Pool{
		ctx:    gctx,
		cancel: cancel,
		group:  g,
		jobs:   make(chan Job, queue),
	}
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			p.worker(workerID)
			return nil
		})
	}
	return p
}

// Submit queues j without blocking.
func (p *Pool) Submit(j Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Queued returns the number of jobs waiting for a worker.
func (p *Pool) Queued() int { return len(p.jobs) }

// Running returns the number of jobs being executed.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. If ctx ends first the pool context is cancelled, so jobs see
// cancellation, and Shutdown waits for the workers before returning
// ctx's error.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		p.cancel()
		return err
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("pool shutdown: %w", ctx.Err())
	}
}

// worker is the processing loop for a single worker.
func (p *Pool) worker(workerID int) {
	logger := ctxlog.FromContext(p.ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range p.jobs {
		if err := p.ctx.Err(); err != nil {
			logger.Debug("Pool cancelled, skipping job.", "workerID", workerID, "jobID", j.ID)
			if j.Skip != nil {
				j.Skip(err)
			}
			continue
		}
		p.run(workerID, j)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (p *Pool) run(workerID int, j Job) {
	logger := ctxlog.FromContext(p.ctx).With("workerID", workerID, "jobID", j.ID)
	p.running.Add(1)
	defer p.running.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked.", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	logger.Debug("Worker picked up job.")
	j.Run(p.ctx)
	logger.Debug("Job finished.")
}
