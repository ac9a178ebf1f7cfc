package campaign

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/events"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/resolver"
	"github.com/specialistvlad/testgrid/internal/store"
	"github.com/specialistvlad/testgrid/internal/testrunner"
)

var (
	ErrTestNotFound     = errors.New("test not found")
	ErrCampaignNotFound = errors.New("campaign not found")
)

// TestRunRequest selects the test of an ad-hoc run.
type TestRunRequest struct {
	TestID      string
	Environment string
}

// RunTest queues an ad-hoc run of a single test and returns its run id.
// The run streams every log line as a test_log event and ends with
// test_completed. Ad-hoc runs do not create reports.
func (rn *Runner) RunTest(ctx context.Context, req TestRunRequest) (string, error) {
	runID := store.NewID()
	r := rn.track(runID)

	err := rn.submit(ctx, r,
		func(ctx context.Context) { rn.executeTest(ctx, runID, req) },
		func(err error) {
			rn.emit(ctx, events.TestCompleted, runID, map[string]any{"test_id": req.TestID, "status": string(model.TestFailed)})
		},
	)
	if err != nil {
		return "", fmt.Errorf("run test %q: %w", req.TestID, err)
	}
	ctxlog.FromContext(ctx).Info("🚀 Test run queued", "run_id", runID, "test_id", req.TestID)
	return runID, nil
}

func (rn *Runner) executeTest(ctx context.Context, runID string, req TestRunRequest) {
	logger := ctxlog.FromContext(ctx).With("run_id", runID, "test_id", req.TestID)
	ctx = ctxlog.WithLogger(ctx, logger)

	logLine := func(line string) {
		rn.emit(ctx, events.TestLog, runID, map[string]any{"test_id": req.TestID, "log": line})
	}
	complete := func(status model.TestStatus, log string) {
		rn.emit(ctx, events.TestCompleted, runID, map[string]any{"test_id": req.TestID, "status": string(status), "log": log})
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("❌ Test run panicked", "panic", rec)
			logLine(rn.stamp("❌ Unexpected error: %v", rec))
			complete(model.TestFailed, "")
			rn.emit(ctx, events.RunError, runID, map[string]any{"error": fmt.Sprint(rec), "stack": string(debug.Stack())})
		}
	}()

	rn.emit(ctx, events.TestStarted, runID, map[string]any{"test_id": req.TestID, "status": "running"})

	t, campaignID, err := rn.loadTest(ctx, req.TestID)
	if err != nil {
		logger.Warn("Test run aborted.", "error", err)
		line := rn.stamp("❌ %v", err)
		logLine(line)
		complete(model.TestFailed, line)
		return
	}

	env, err := rn.environment(ctx, req.Environment)
	if err == nil {
		var coll map[string]string
		coll, err = rn.collection(ctx, runID, campaignID, req.Environment)
		if err == nil {
			logLine(rn.stamp("📂 Environment: %s", req.Environment))
			coll[resolver.TestID] = t.ID
			res := rn.tests.Run(ctx, &testrunner.Request{Test: t, Env: env, Collection: coll, OnLog: logLine})
			logger.Info("🏁 Test run finished", "status", res.Status)
			complete(res.Status, res.Log)
			return
		}
	}

	line := rn.stamp("❌ %v", err)
	logLine(line)
	complete(model.TestFailed, line)
}

// loadTest finds a test and checks that its campaign, if any, exists.
func (rn *Runner) loadTest(ctx context.Context, testID string) (*model.Test, string, error) {
	t, err := rn.store.Tests().FindByID(ctx, testID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrTestNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if t.CampaignID == "" {
		return t, "", nil
	}
	if _, err := rn.store.Campaigns().FindByID(ctx, t.CampaignID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrCampaignNotFound
		}
		return nil, "", err
	}
	return t, t.CampaignID, nil
}

func (rn *Runner) stamp(format string, args ...any) string {
	return fmt.Sprintf("[%s] %s", rn.now().Format("15:04:05"), fmt.Sprintf(format, args...))
}
