package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/campaign"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/events"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/reporter"
	"github.com/specialistvlad/testgrid/internal/watch"
)

// TestOutcome is the result of an ad-hoc test run.
type TestOutcome struct {
	RunID  string
	Status model.TestStatus
	Log    string
}

// outcomes remembers the test_completed event of ad-hoc runs until it is
// collected.
type outcomes struct {
	mu   sync.Mutex
	runs map[string]TestOutcome
}

func newOutcomes() *outcomes {
	return &outcomes{runs: make(map[string]TestOutcome)}
}

// Emit implements events.Sink.
func (o *outcomes) Emit(_ context.Context, e events.Event) {
	if e.Name != events.TestCompleted {
		return
	}
	status, _ := e.Payload["status"].(string)
	log, _ := e.Payload["log"].(string)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs[e.RunID] = TestOutcome{RunID: e.RunID, Status: model.TestStatus(status), Log: log}
}

func (o *outcomes) take(runID string) (TestOutcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out, ok := o.runs[runID]
	delete(o.runs, runID)
	return out, ok
}

// RunCampaign launches a campaign run and waits for its report. When ctx
// is cancelled the run is cancelled and its final report still returned.
func (a *App) RunCampaign(ctx context.Context, req campaign.LaunchRequest) (*model.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	runID, err := a.runner.Launch(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := a.wait(ctx, runID); err != nil {
		return nil, err
	}
	return a.store.Reports().FindByID(context.WithoutCancel(ctx), runID)
}

// RunTest runs a single test on its own and waits for the outcome.
func (a *App) RunTest(ctx context.Context, req campaign.TestRunRequest) (TestOutcome, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	runID, err := a.runner.RunTest(ctx, req)
	if err != nil {
		return TestOutcome{}, err
	}
	if err := a.wait(ctx, runID); err != nil {
		return TestOutcome{}, err
	}
	out, ok := a.outcomes.take(runID)
	if !ok {
		return TestOutcome{}, fmt.Errorf("test run %s finished without an outcome", runID)
	}
	return out, nil
}

// wait blocks until the run is over. Cancelling ctx cancels the run.
func (a *App) wait(ctx context.Context, runID string) error {
	if err := a.runner.Wait(ctx, runID); err == nil {
		return nil
	}
	a.logger.Warn("Interrupted, cancelling run.", "run_id", runID)
	a.runner.Cancel(runID)
	return a.runner.Wait(context.WithoutCancel(ctx), runID)
}

// Render renders the report of a run.
func (a *App) Render(ctx context.Context, runID, format string, cfg action.Config) (*reporter.Rendered, error) {
	return a.runner.Render(ctxlog.WithLogger(ctx, a.logger), runID, format, cfg)
}

// Serve keeps the engine up until ctx is cancelled: it starts the health
// check server and, when enabled, the definitions watcher.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Serve method started.")

	if err := a.healthCheckServer(ctx); err != nil {
		return err
	}

	if a.config.Watch {
		paths := []string{a.config.DefinitionsPath}
		if a.config.EnvFilesPath != "" {
			paths = append(paths, a.config.EnvFilesPath)
		}
		w, err := watch.New(paths, a.Reload, ".hcl", ".yaml", ".yml")
		if err != nil {
			return err
		}
		a.logger.Info("👀 Watching definitions for changes.", "paths", w.WatchList())
		go func() {
			if err := w.Run(ctx); err != nil {
				a.logger.Error("Definitions watcher stopped.", "error", err)
			}
		}()
	}

	a.logger.Info("🟢 Engine ready.", "plugins", len(a.registry.List()))
	<-ctx.Done()
	a.logger.Info("🛑 Shutting down...")
	return nil
}
