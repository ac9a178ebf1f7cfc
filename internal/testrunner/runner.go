package testrunner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"
	"time"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/resolver"
)

// Plugins resolves action kinds to fresh action instances.
type Plugins interface {
	Get(key string) (action.Action, bool)
}

// Request describes one test execution.
type Request struct {
	Test *model.Test
	// Env is the environment variable set of the run.
	Env map[string]string
	// Collection holds the engine-injected variables of the run.
	Collection map[string]string
	// OnLog, when set, receives every log line as soon as it is written.
	OnLog func(line string)
}

// Result is the outcome of one test execution.
type Result struct {
	TestID    string
	Status    model.TestStatus
	Log       string
	Variables map[string]any
	// Err is the failure that ended the test, nil when it passed.
	Err error
}

// Runner executes tests against a set of plugins.
type Runner struct {
	plugins Plugins
	now     func() time.Time
}

// New creates a Runner resolving action kinds through plugins.
func New(plugins Plugins) *Runner {
	return &Runner{plugins: plugins, now: time.Now}
}

// Run executes req.Test. It always returns a Result; failures of any kind
// are reported through Status, Err and the log.
func (r *Runner) Run(ctx context.Context, req *Request) (res *Result) {
	test := req.Test
	logger := ctxlog.FromContext(ctx).With("test_id", test.ID)
	ctx = ctxlog.WithLogger(ctx, logger)

	book := &logBook{now: r.now, observe: req.OnLog}
	vars := make(map[string]any, len(test.Variables))
	for _, name := range test.Variables {
		vars[name] = nil
	}
	res = &Result{TestID: test.ID, Status: model.TestPassed, Variables: vars}

	defer func() {
		if rec := recover(); rec != nil {
			uerr := &action.UnexpectedError{Value: rec, Stack: debug.Stack()}
			logger.Error("Test runner panicked.", "panic", rec)
			book.stamp("❌ Unexpected error: %v", rec)
			book.raw(uerr.StackTrace())
			book.stamp("❌ Test failed")
			res.Status = model.TestFailed
			res.Err = uerr
		}
		res.Log = book.String()
	}()

	logger.Debug("Test started.", "actions", len(test.Actions))
	book.stamp("🚀 Starting test '%s'", displayName(test))

	total := len(test.Actions)
	for i, act := range test.Actions {
		if err := ctx.Err(); err != nil {
			book.stamp("⛔ Cancelled before action %d/%d", i+1, total)
			return r.fail(res, book, fmt.Errorf("test cancelled: %w", err))
		}

		book.raw("--------------------------------")
		book.stamp("🔧 Executing action %d/%d: %s", i+1, total, act.Type)

		ns := resolver.Namespaces{Env: req.Env, Test: vars, Collection: req.Collection}
		cfg := action.Config(ns.ResolveMap(act.Config))

		plugin, ok := r.plugins.Get(act.Type)
		if !ok {
			err := &action.PluginNotFoundError{Key: act.Type}
			book.stamp("❌ %v", err)
			return r.fail(res, book, err)
		}

		actionLogger := logger.With("action", act.Type, "index", i+1)
		out := action.Run(ctxlog.WithLogger(ctx, actionLogger), plugin, &action.Request{
			Config:    cfg,
			Variables: maps.Clone(vars),
		})
		for _, line := range out.Traces {
			book.raw(line)
		}

		if !out.OK() {
			actionLogger.Debug("Action failed.", "status_code", out.StatusCode, "error", out.Err)
			book.stamp("❌ Action failed (status %d): %v", out.StatusCode, out.Err)
			var uerr *action.UnexpectedError
			if errors.As(out.Err, &uerr) && !slices.Contains(out.Traces, uerr.StackTrace()) {
				book.raw(uerr.StackTrace())
			}
			return r.fail(res, book, out.Err)
		}

		book.stamp("✅ Action succeeded")
		r.applyOutputs(act, out, vars, book)
	}

	book.stamp("✅ Test passed")
	logger.Debug("Test passed.")
	return res
}

func (r *Runner) fail(res *Result, book *logBook, err error) *Result {
	book.stamp("❌ Test failed")
	res.Status = model.TestFailed
	res.Err = err
	return res
}

// applyOutputs copies the mapped outputs of a successful action into the
// test-local variables. Unmapped outputs are dropped, and so are mappings
// to variables the test does not declare.
func (r *Runner) applyOutputs(act model.Action, out *action.Outcome, vars map[string]any, book *logBook) {
	for _, outName := range slices.Sorted(maps.Keys(act.OutputMapping)) {
		varName := act.OutputMapping[outName]
		val, ok := out.Outputs[outName]
		if !ok {
			continue
		}
		if _, declared := vars[varName]; !declared {
			book.stamp("⚠️ Output '%s' mapped to undeclared variable '%s', ignored", outName, varName)
			continue
		}
		vars[varName] = val
		book.stamp("📝 Variable '%s' = %s", varName, resolver.Format(val))
	}
}

func displayName(t *model.Test) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
