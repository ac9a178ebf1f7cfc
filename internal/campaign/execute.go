package campaign

import (
	"context"
	"fmt"
	"maps"
	"runtime/debug"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/events"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/resolver"
	"github.com/specialistvlad/testgrid/internal/testrunner"
)

const (
	skippedAfterFailure = "Skipped after a previous failure"
	skippedCancelled    = "Skipped: run cancelled"
)

// LaunchRequest selects what a campaign run executes.
type LaunchRequest struct {
	CampaignID string
	// Environment overrides the campaign's default environment.
	Environment string
	// TestIDs overrides the campaign's test list. Order is kept.
	TestIDs []string
	// StopOnFailure overrides the campaign's policy when set.
	StopOnFailure *bool
}

// plan is a prepared campaign run.
type plan struct {
	campaign      *model.Campaign
	environment   string
	tests         []*model.Test
	stopOnFailure bool
	report        *model.Report
}

// Launch prepares a campaign run and queues it. It returns the run id,
// which is also the id of the run's report, without waiting for the run.
func (rn *Runner) Launch(ctx context.Context, req LaunchRequest) (string, error) {
	p, err := rn.prepare(ctx, req)
	if err != nil {
		return "", err
	}
	runID := p.report.ID
	r := rn.track(runID)

	err = rn.submit(ctx, r,
		func(ctx context.Context) { rn.execute(ctx, p, r) },
		func(err error) { rn.abort(ctx, p, fmt.Errorf("run not started: %w", err)) },
	)
	if err != nil {
		rn.abort(ctx, p, fmt.Errorf("run not queued: %w", err))
		return "", fmt.Errorf("launch campaign %q: %w", p.campaign.ID, err)
	}

	ctxlog.FromContext(ctx).Info("🚀 Campaign run queued", "run_id", runID, "campaign_id", p.campaign.ID, "tests", len(p.tests))
	return runID, nil
}

// Execute runs a campaign synchronously and returns the final report.
// The returned error only covers preparation; failures during the run are
// recorded in the report.
func (rn *Runner) Execute(ctx context.Context, req LaunchRequest) (*model.Report, error) {
	p, err := rn.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	r := rn.track(p.report.ID)
	defer rn.finish(r)

	ctx, cancel := r.bind(ctx)
	defer cancel()
	return rn.execute(ctx, p, r), nil
}

func (rn *Runner) prepare(ctx context.Context, req LaunchRequest) (*plan, error) {
	c, err := rn.store.Campaigns().FindByID(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %q: %w", req.CampaignID, err)
	}

	ids := req.TestIDs
	if len(ids) == 0 {
		ids = c.Tests
	}
	var tests []*model.Test
	if len(ids) == 0 {
		tests, err = rn.store.Tests().FindByParent(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load tests of campaign %q: %w", c.ID, err)
		}
	} else {
		for _, id := range ids {
			t, err := rn.store.Tests().FindByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("campaign %q: load test %q: %w", c.ID, id, err)
			}
			tests = append(tests, t)
		}
	}

	p := &plan{
		campaign:      c,
		environment:   c.Environment,
		tests:         tests,
		stopOnFailure: c.StopOnFailure,
	}
	if req.Environment != "" {
		p.environment = req.Environment
	}
	if req.StopOnFailure != nil {
		p.stopOnFailure = *req.StopOnFailure
	}

	p.report, err = rn.store.Reports().Create(ctx, &model.Report{
		CampaignID:  c.ID,
		Environment: p.environment,
		Status:      model.RunPending,
		Results:     []model.TestResult{},
		CreatedAt:   rn.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return p, nil
}

// abort records a run that never got to execute.
func (rn *Runner) abort(ctx context.Context, p *plan, cause error) {
	rn.fail(ctx, p.report.ID, cause, nil)
}

// execute is the body of a campaign run.
func (rn *Runner) execute(ctx context.Context, p *plan, r *run) (rep *model.Report) {
	runID := p.report.ID
	logger := ctxlog.FromContext(ctx).With("run_id", runID, "campaign_id", p.campaign.ID)
	ctx = ctxlog.WithLogger(ctx, logger)

	defer func() {
		if rec := recover(); rec != nil {
			rep = rn.fail(ctx, runID, fmt.Errorf("panic: %v", rec), debug.Stack())
		}
	}()

	rep, err := rn.orchestrate(ctx, p, r)
	if err != nil {
		return rn.fail(ctx, runID, err, nil)
	}
	return rep
}

func (rn *Runner) orchestrate(ctx context.Context, p *plan, r *run) (*model.Report, error) {
	logger := ctxlog.FromContext(ctx)
	rep := p.report
	runID := rep.ID
	total := len(p.tests)

	started := rn.now().UTC()
	rep.Status, rep.StartedAt = model.RunRunning, &started
	if err := rn.persist(ctx, runID, map[string]any{"status": rep.Status, "progress": 0, "started_at": started}); err != nil {
		return nil, err
	}
	logger.Info("▶️ Campaign run started", "tests", total, "environment", p.environment, "stop_on_failure", p.stopOnFailure)
	rn.emit(ctx, events.RunStarted, runID, map[string]any{
		"campaign_id": p.campaign.ID,
		"environment": p.environment,
		"total":       total,
	})

	env, err := rn.environment(ctx, p.environment)
	if err != nil {
		return nil, err
	}
	collection, err := rn.collection(ctx, runID, p.campaign.ID, p.environment)
	if err != nil {
		return nil, err
	}

	failed := false
	for i, t := range p.tests {
		var res model.TestResult
		switch {
		case ctx.Err() != nil:
			res = model.TestResult{TestID: t.ID, Status: model.TestSkipped, Log: skippedCancelled}
		case p.stopOnFailure && failed:
			res = model.TestResult{TestID: t.ID, Status: model.TestSkipped, Log: skippedAfterFailure}
		default:
			rn.emit(ctx, events.TestStarted, runID, map[string]any{"test_id": t.ID, "name": t.Name, "index": i + 1, "total": total})
			res = rn.runTest(ctx, t, env, collection)
		}
		if res.Status != model.TestPassed {
			failed = true
		}
		logger.Debug("Test processed.", "test_id", t.ID, "status", res.Status)

		rep.Results = append(rep.Results, res)
		rep.Progress = Progress(i+1, total)
		if err := rn.persist(ctx, runID, map[string]any{"results": rep.Results, "progress": rep.Progress}); err != nil {
			return nil, err
		}
		rn.emit(ctx, events.TestCompleted, runID, map[string]any{"test_id": t.ID, "status": string(res.Status), "log": res.Log})
		rn.emit(ctx, events.RunProgress, runID, map[string]any{"progress": rep.Progress, "processed": i + 1, "total": total})
	}

	finished := rn.now().UTC()
	rep.Status, rep.Progress, rep.FinishedAt = model.RunCompleted, 100, &finished
	rep.Result = model.ResultSuccess
	if failed {
		rep.Result = model.ResultFailure
	}
	if r.isCancelled() {
		rep.Status, rep.Result, rep.Error = model.RunFailed, model.ResultFailure, ErrCancelled.Error()
	}
	if err := rn.persist(ctx, runID, map[string]any{
		"status":      rep.Status,
		"result":      rep.Result,
		"progress":    rep.Progress,
		"error":       rep.Error,
		"finished_at": finished,
	}); err != nil {
		return nil, err
	}

	passed, failedN, skipped := rep.Counts()
	logger.Info("🏁 Campaign run finished", "status", rep.Status, "result", rep.Result, "passed", passed, "failed", failedN, "skipped", skipped)
	rn.emit(ctx, events.RunCompleted, runID, map[string]any{
		"status":  string(rep.Status),
		"result":  string(rep.Result),
		"passed":  passed,
		"failed":  failedN,
		"skipped": skipped,
	})
	return rep, nil
}

// runTest runs one test with the collection variables of the run plus its
// own id.
func (rn *Runner) runTest(ctx context.Context, t *model.Test, env, collection map[string]string) model.TestResult {
	coll := maps.Clone(collection)
	coll[resolver.TestID] = t.ID
	out := rn.tests.Run(ctx, &testrunner.Request{Test: t, Env: env, Collection: coll})
	return model.TestResult{TestID: t.ID, Status: out.Status, Log: out.Log}
}

// collection builds the collection variables shared by every test of a
// run.
func (rn *Runner) collection(ctx context.Context, runID, campaignID, env string) (map[string]string, error) {
	c := map[string]string{
		resolver.RunID:          runID,
		resolver.EnvironmentKey: env,
	}
	if campaignID == "" {
		return c, nil
	}
	c[resolver.CampaignID] = campaignID
	c[resolver.CampaignIDAlt] = campaignID
	if rn.workspace != nil {
		paths, err := rn.workspace.Create(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		c[resolver.FilesDir] = paths.Files
		c[resolver.WorkDir] = paths.Work
	}
	return c, nil
}

// fail marks the report failed and emits run_error. It never fails
// itself: a report that cannot be updated is logged.
func (rn *Runner) fail(ctx context.Context, runID string, cause error, stack []byte) *model.Report {
	logger := ctxlog.FromContext(ctx)
	if stack == nil {
		stack = debug.Stack()
	}
	logger.Error("❌ Campaign run failed", "run_id", runID, "error", cause)

	finished := rn.now().UTC()
	rep, err := rn.store.Reports().Update(context.WithoutCancel(ctx), runID, map[string]any{
		"status":      model.RunFailed,
		"result":      model.ResultFailure,
		"error":       cause.Error(),
		"finished_at": finished,
	})
	if err != nil {
		logger.Error("Failed to record run failure.", "run_id", runID, "error", err)
		rep = nil
	}
	rn.emit(ctx, events.RunError, runID, map[string]any{
		"error": cause.Error(),
		"stack": string(stack),
	})
	if rep == nil {
		rep = &model.Report{ID: runID, Status: model.RunFailed, Result: model.ResultFailure, Error: cause.Error(), FinishedAt: &finished}
	}
	return rep
}

// Progress is floor(100 * processed / total). An empty run is complete.
func Progress(processed, total int) int {
	if total <= 0 {
		return 100
	}
	return processed * 100 / total
}
