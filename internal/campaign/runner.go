package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/events"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/pool"
	"github.com/specialistvlad/testgrid/internal/reporter"
	"github.com/specialistvlad/testgrid/internal/store"
	"github.com/specialistvlad/testgrid/internal/testrunner"
	"github.com/specialistvlad/testgrid/internal/workspace"
)

// finishedRetention is how long a finished run stays waitable.
const finishedRetention = time.Hour

var (
	// ErrUnknownRun is returned for run ids the runner never started.
	ErrUnknownRun = errors.New("unknown run")
	// ErrCancelled is the error recorded on cancelled runs.
	ErrCancelled = errors.New("cancelled")
)

// ReportPlugins resolves report formats to report plugins.
type ReportPlugins interface {
	GetReport(key string) (reporter.Reporter, bool)
}

// Options wires a Runner to its collaborators.
type Options struct {
	Store   store.Store
	Plugins testrunner.Plugins
	// Reports renders reports. Optional; Render fails without it.
	Reports ReportPlugins
	// Sink receives run events. Defaults to events.Discard.
	Sink events.Sink
	// Workspace provides the files and work directories of a campaign.
	// Optional; without it files_dir and work_dir stay unset.
	Workspace workspace.Provider
	// Pool executes background runs. When nil the Runner starts its own
	// pool with default sizes.
	Pool *pool.Pool
}

// Runner executes campaign runs and ad-hoc test runs.
type Runner struct {
	store     store.Store
	tests     *testrunner.Runner
	reports   ReportPlugins
	sink      events.Sink
	workspace workspace.Provider
	pool      *pool.Pool
	now       func() time.Time

	mu   sync.Mutex
	runs map[string]*run
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Sink == nil {
		opts.Sink = events.Discard
	}
	if opts.Pool == nil {
		opts.Pool = pool.New(context.Background(), 0, 0)
	}
	return &Runner{
		store:     opts.Store,
		tests:     testrunner.New(opts.Plugins),
		reports:   opts.Reports,
		sink:      opts.Sink,
		workspace: opts.Workspace,
		pool:      opts.Pool,
		now:       time.Now,
		runs:      make(map[string]*run),
	}
}

// run tracks one in-flight or recently finished run.
type run struct {
	id       string
	done     chan struct{}
	finished time.Time

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

// bind derives the run context from ctx.
func (r *run) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel = cancel
	if r.cancelled {
		cancel()
	}
	return ctx, cancel
}

func (r *run) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *run) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (rn *Runner) track(id string) *run {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	now := rn.now()
	for rid, r := range rn.runs {
		if !r.finished.IsZero() && now.Sub(r.finished) > finishedRetention {
			delete(rn.runs, rid)
		}
	}
	r := &run{id: id, done: make(chan struct{})}
	rn.runs[id] = r
	return r
}

func (rn *Runner) finish(r *run) {
	rn.mu.Lock()
	r.finished = rn.now()
	rn.mu.Unlock()
	close(r.done)
}

func (rn *Runner) lookup(id string) (*run, bool) {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	r, ok := rn.runs[id]
	return r, ok
}

// Cancel asks a run to stop. It reports whether the run was found and
// still active.
func (rn *Runner) Cancel(runID string) bool {
	r, ok := rn.lookup(runID)
	if !ok {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
	}
	r.stop()
	return true
}

// Wait blocks until the run finishes or ctx ends.
func (rn *Runner) Wait(ctx context.Context, runID string) error {
	r, ok := rn.lookup(runID)
	if !ok {
		return fmt.Errorf("%q: %w", runID, ErrUnknownRun)
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the number of runs that have not finished yet.
func (rn *Runner) Active() int {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	n := 0
	for _, r := range rn.runs {
		if r.finished.IsZero() {
			n++
		}
	}
	return n
}

// Shutdown stops accepting runs and waits for queued and running ones.
func (rn *Runner) Shutdown(ctx context.Context) error {
	return rn.pool.Shutdown(ctx)
}

// submit queues fn as the body of run r. When the pool refuses the job,
// r is finished right away and the pool error is returned.
func (rn *Runner) submit(ctx context.Context, r *run, fn func(ctx context.Context), skip func(err error)) error {
	logger := ctxlog.FromContext(ctx)
	err := rn.pool.Submit(pool.Job{
		ID: r.id,
		Run: func(pctx context.Context) {
			defer rn.finish(r)
			ctx, cancel := r.bind(ctxlog.WithLogger(pctx, logger))
			defer cancel()
			fn(ctx)
		},
		Skip: func(err error) {
			defer rn.finish(r)
			skip(err)
		},
	})
	if err != nil {
		rn.finish(r)
	}
	return err
}

// emit delivers an event. A misbehaving sink cannot break the run.
func (rn *Runner) emit(ctx context.Context, name events.Name, runID string, payload map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			ctxlog.FromContext(ctx).Error("Event sink panicked.", "event", name, "panic", rec)
		}
	}()
	rn.sink.Emit(ctx, events.New(name, runID, payload))
}

// persist merges fields into the report. Writes survive cancellation of
// the run context.
func (rn *Runner) persist(ctx context.Context, reportID string, fields map[string]any) error {
	if _, err := rn.store.Reports().Update(context.WithoutCancel(ctx), reportID, fields); err != nil {
		return fmt.Errorf("persist report %q: %w", reportID, err)
	}
	return nil
}

// environment loads the variable set of env.
func (rn *Runner) environment(ctx context.Context, env string) (map[string]string, error) {
	if env == "" {
		return map[string]string{}, nil
	}
	vars, err := rn.store.Variables().FindByParent(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("load variables of environment %q: %w", env, err)
	}
	return model.VariableSet(vars), nil
}
