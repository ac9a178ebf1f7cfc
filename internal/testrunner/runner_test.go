package testrunner

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the configs each fake action was executed with.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

type call struct {
	kind string
	cfg  action.Config
	vars map[string]any
}

func (r *recorder) add(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		out = append(out, c.kind)
	}
	return out
}

// fakeAction returns a fixed outcome and records its invocation.
type fakeAction struct {
	kind    string
	rec     *recorder
	status  int
	outputs map[string]any
	panics  bool
}

func (f *fakeAction) Info() action.Info            { return action.Info{} }
func (f *fakeAction) Inputs() []action.Field       { return nil }
func (f *fakeAction) Outputs() []action.Output     { return nil }
func (f *fakeAction) Validate(action.Config) error { return nil }
func (f *fakeAction) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	f.rec.add(call{kind: f.kind, cfg: req.Config, vars: req.Variables})
	if f.panics {
		panic("kaboom")
	}
	out := action.NewOutcome()
	out.Tracef("%s ran", f.kind)
	for k, v := range f.outputs {
		out.Set(k, v)
	}
	if f.status != 0 {
		out.StatusCode = f.status
		out.Tracef("%s failed", f.kind)
	}
	return out
}

// fakePlugins hands out fresh fakeActions from templates.
type fakePlugins map[string]fakeAction

func (p fakePlugins) Get(key string) (action.Action, bool) {
	tmpl, ok := p[key]
	if !ok {
		return nil, false
	}
	a := tmpl
	return &a, true
}

func newRunner(plugins fakePlugins) *Runner {
	r := New(plugins)
	r.now = func() time.Time { return time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC) }
	return r
}

func TestRun_AllActionsPassAndThreadVariables(t *testing.T) {
	// --- Arrange ---
	rec := &recorder{}
	plugins := fakePlugins{
		"login": {kind: "login", rec: rec, outputs: map[string]any{"token": "abc", "ignored": "x"}},
		"fetch": {kind: "fetch", rec: rec, outputs: map[string]any{"status": 200}},
	}
	test := &model.Test{
		ID:        "t1",
		Variables: []string{"token", "code"},
		Actions: []model.Action{
			{Type: "login", Config: map[string]any{"url": "{{base}}/login"}, OutputMapping: map[string]string{"token": "token"}},
			{Type: "fetch", Config: map[string]any{"auth": "Bearer {{app.token}}", "dir": "{{test.work_dir}}"}, OutputMapping: map[string]string{"status": "code"}},
		},
	}

	// --- Act ---
	res := newRunner(plugins).Run(context.Background(), &Request{
		Test:       test,
		Env:        map[string]string{"base": "http://svc"},
		Collection: map[string]string{"work_dir": "/w"},
	})

	// --- Assert ---
	require.Equal(t, model.TestPassed, res.Status, res.Log)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"login", "fetch"}, rec.kinds())
	assert.Equal(t, "http://svc/login", rec.calls[0].cfg["url"])
	assert.Equal(t, "Bearer abc", rec.calls[1].cfg["auth"])
	assert.Equal(t, "/w", rec.calls[1].cfg["dir"])
	assert.Equal(t, map[string]any{"token": "abc", "code": nil}, rec.calls[1].vars)
	assert.Equal(t, map[string]any{"token": "abc", "code": 200}, res.Variables)
	assert.NotContains(t, res.Variables, "ignored")

	assert.Contains(t, res.Log, "[12:30:00] 🔧 Executing action 1/2: login")
	assert.Contains(t, res.Log, "[12:30:00] 🔧 Executing action 2/2: fetch")
	assert.Contains(t, res.Log, "Variable 'token' = abc")
	assert.Contains(t, res.Log, "Variable 'code' = 200")
	assert.True(t, strings.HasSuffix(res.Log, "✅ Test passed"))
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	rec := &recorder{}
	plugins := fakePlugins{
		"ok":   {kind: "ok", rec: rec},
		"fail": {kind: "fail", rec: rec, status: 1},
	}
	test := &model.Test{ID: "t2", Actions: []model.Action{
		{Type: "ok"}, {Type: "ok"}, {Type: "fail"}, {Type: "ok"}, {Type: "ok"},
	}}

	res := newRunner(plugins).Run(context.Background(), &Request{Test: test})

	assert.Equal(t, model.TestFailed, res.Status)
	assert.Equal(t, []string{"ok", "ok", "fail"}, rec.kinds())
	assert.Contains(t, res.Log, "fail ran")
	assert.Contains(t, res.Log, "fail failed")
	assert.Contains(t, res.Log, "Executing action 3/5: fail")
	assert.NotContains(t, res.Log, "Executing action 4/5")
	assert.True(t, strings.HasSuffix(res.Log, "❌ Test failed"))
	require.Error(t, res.Err)
}

func TestRun_UnknownPlugin(t *testing.T) {
	rec := &recorder{}
	test := &model.Test{ID: "t3", Actions: []model.Action{{Type: "nope"}, {Type: "ok"}}}

	res := newRunner(fakePlugins{"ok": {kind: "ok", rec: rec}}).Run(context.Background(), &Request{Test: test})

	assert.Equal(t, model.TestFailed, res.Status)
	var nf *action.PluginNotFoundError
	require.ErrorAs(t, res.Err, &nf)
	assert.Equal(t, "nope", nf.Key)
	assert.Empty(t, rec.kinds())
	assert.Contains(t, res.Log, "action plugin 'nope' not found")
}

func TestRun_PanickingActionIsContained(t *testing.T) {
	rec := &recorder{}
	test := &model.Test{ID: "t4", Actions: []model.Action{{Type: "boom"}, {Type: "ok"}}}
	plugins := fakePlugins{
		"boom": {kind: "boom", rec: rec, panics: true},
		"ok":   {kind: "ok", rec: rec},
	}

	res := newRunner(plugins).Run(context.Background(), &Request{Test: test})

	assert.Equal(t, model.TestFailed, res.Status)
	assert.Equal(t, []string{"boom"}, rec.kinds())
	var uerr *action.UnexpectedError
	require.ErrorAs(t, res.Err, &uerr)
	assert.Contains(t, res.Log, "unexpected error: kaboom")
	assert.Contains(t, res.Log, "goroutine", "the stack trace is kept in the log")
	assert.Equal(t, 1, strings.Count(res.Log, uerr.StackTrace()))
}

func TestRun_UndeclaredMappingIsIgnored(t *testing.T) {
	rec := &recorder{}
	test := &model.Test{ID: "t5", Variables: []string{"a"}, Actions: []model.Action{
		{Type: "x", OutputMapping: map[string]string{"out": "b", "missing": "a"}},
	}}
	plugins := fakePlugins{"x": {kind: "x", rec: rec, outputs: map[string]any{"out": 1}}}

	res := newRunner(plugins).Run(context.Background(), &Request{Test: test})

	require.Equal(t, model.TestPassed, res.Status)
	assert.Equal(t, map[string]any{"a": nil}, res.Variables)
	assert.Contains(t, res.Log, "undeclared variable 'b'")
}

func TestRun_CancelledContextRunsNothing(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test := &model.Test{ID: "t6", Actions: []model.Action{{Type: "ok"}}}

	res := newRunner(fakePlugins{"ok": {kind: "ok", rec: rec}}).Run(ctx, &Request{Test: test})

	assert.Equal(t, model.TestFailed, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, rec.kinds())
	assert.Contains(t, res.Log, "Cancelled before action 1/1")
}

func TestRun_StreamsLogLines(t *testing.T) {
	rec := &recorder{}
	var streamed []string
	test := &model.Test{ID: "t7", Name: "streaming", Actions: []model.Action{{Type: "ok"}}}

	res := newRunner(fakePlugins{"ok": {kind: "ok", rec: rec}}).Run(context.Background(), &Request{
		Test:  test,
		OnLog: func(line string) { streamed = append(streamed, line) },
	})

	assert.Equal(t, res.Log, strings.Join(streamed, "\n"))
	assert.Equal(t, "[12:30:00] 🚀 Starting test 'streaming'", streamed[0])
}

func TestRun_EmptyTestPasses(t *testing.T) {
	res := newRunner(fakePlugins{}).Run(context.Background(), &Request{Test: &model.Test{ID: "empty"}})

	assert.Equal(t, model.TestPassed, res.Status)
	assert.Equal(t, "empty", res.TestID)
}
