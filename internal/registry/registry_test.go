package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/reporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test plugins ---

type PingAction struct{ calls int }

func (p *PingAction) Info() action.Info            { return action.Info{Version: "1.0.0", Author: "tests", Description: "ping"} }
func (p *PingAction) Inputs() []action.Field       { return []action.Field{{Name: "host", Required: true}} }
func (p *PingAction) Outputs() []action.Output     { return nil }
func (p *PingAction) Validate(action.Config) error { return nil }
func (p *PingAction) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	p.calls++
	return action.NewOutcome()
}

type namedAction struct{ PingAction }

func (n *namedAction) PluginName() string { return "Custom" }

type textReport struct{}

func (textReport) Info() action.Info      { return action.Info{Version: "1.0.0"} }
func (textReport) Format() string         { return "text" }
func (textReport) Inputs() []action.Field { return nil }
func (textReport) Generate(*model.Report, action.Config) (*reporter.Rendered, error) {
	return &reporter.Rendered{}, nil
}

// --- test modules ---

type pingModule struct{}

func (pingModule) Register(t *Table) error {
	t.Action(func() action.Action { return &PingAction{} })
	return nil
}

type namedModule struct{}

func (namedModule) Register(t *Table) error {
	t.Action(func() action.Action { return &namedAction{} })
	return nil
}

type reportModule struct{}

func (reportModule) Category() Category { return CategoryReport }
func (reportModule) Register(t *Table) error {
	t.Report(func() reporter.Reporter { return textReport{} })
	return nil
}

type brokenModule struct{}

func (brokenModule) Register(t *Table) error {
	t.Action(func() action.Action { return &PingAction{} })
	return errors.New("missing dependency")
}

type panickingModule struct{}

func (panickingModule) Register(t *Table) error {
	panic("init failed")
}

func TestDiscover_IsolatesFailingModule(t *testing.T) {
	// --- Arrange ---
	r := New(namedModule{}, brokenModule{}, reportModule{})

	// --- Act ---
	err := r.Discover(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, r.Keys(CategoryAction))
	assert.Equal(t, []string{"text"}, r.Keys(CategoryReport))

	loadErrs := r.Errors()
	require.Len(t, loadErrs, 1)
	assert.Equal(t, "registry.brokenModule", loadErrs[0].Candidate)
	assert.Equal(t, CategoryAction, loadErrs[0].Category)
	assert.Equal(t, "missing dependency", loadErrs[0].Message)
	assert.NotEmpty(t, loadErrs[0].Stack)
	assert.False(t, loadErrs[0].Timestamp.IsZero())
}

func TestDiscover_RecoversPanics(t *testing.T) {
	r := New(panickingModule{}, pingModule{})

	require.NoError(t, r.Discover(context.Background()))

	_, ok := r.Get("ping")
	assert.True(t, ok)
	require.Len(t, r.Errors(), 1)
	assert.Contains(t, r.Errors()[0].Message, "panic: init failed")
}

func TestDiscover_DuplicateKeysAreFatal(t *testing.T) {
	// --- Arrange ---
	r := New(namedModule{})
	require.NoError(t, r.Discover(context.Background()))
	r.modules = []Module{pingModule{}, pingModule{}}

	// --- Act ---
	err := r.Discover(context.Background())

	// --- Assert ---
	require.Error(t, err)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "ping", dup.Key)

	// The previous snapshot survives.
	assert.Equal(t, []string{"custom"}, r.Keys(CategoryAction))
}

func TestGet_ReturnsNewInstancePerCall(t *testing.T) {
	r := New(pingModule{})
	require.NoError(t, r.Discover(context.Background()))

	a1, ok := r.Get("ping")
	require.True(t, ok)
	a2, ok := r.Get("PING")
	require.True(t, ok)

	assert.NotSame(t, a1, a2)

	_, ok = r.Get("nope")
	assert.False(t, ok)
	_, ok = r.GetReport("ping")
	assert.False(t, ok, "an action key is not a report plugin")
}

func TestDescribeAndList(t *testing.T) {
	r := New(pingModule{}, reportModule{})
	require.NoError(t, r.Discover(context.Background()))

	d, ok := r.Describe("ping")
	require.True(t, ok)
	assert.Equal(t, Descriptor{
		Key:         "ping",
		Category:    CategoryAction,
		Type:        "*registry.PingAction",
		Module:      "registry.pingModule",
		Version:     "1.0.0",
		Author:      "tests",
		Description: "ping",
	}, d)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "ping", list[0].Key)
	assert.Equal(t, "text", list[1].Key)

	fields, ok := r.Inputs("ping")
	require.True(t, ok)
	assert.Equal(t, "host", fields[0].Name)
}

func TestReload_ClearsManualRegistrations(t *testing.T) {
	r := New(pingModule{})
	require.NoError(t, r.Discover(context.Background()))

	require.NoError(t, r.Register(func() action.Action { return &namedAction{} }))
	_, ok := r.Get("custom")
	require.True(t, ok)

	err := r.Register(func() action.Action { return &PingAction{} })
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)

	require.NoError(t, r.Reload(context.Background()))
	_, ok = r.Get("custom")
	assert.False(t, ok)
}

func TestUnregister(t *testing.T) {
	r := New(pingModule{})
	require.NoError(t, r.Discover(context.Background()))

	assert.True(t, r.Unregister("ping"))
	assert.False(t, r.Unregister("ping"))
	_, ok := r.Get("ping")
	assert.False(t, ok)
}

func TestDeriveKey(t *testing.T) {
	tests := map[string]string{
		"*ssh.SSHAction":          "ssh",
		"ftp_action":              "ftp",
		"*http.HTTPRequestAction": "httprequest",
		"html_report_plugin":      "htmlreport",
		"Action":                  "action",
		"io.IOPlugin":             "io",
	}
	for in, want := range tests {
		assert.Equal(t, want, DeriveKey(in), "DeriveKey(%q)", in)
	}
}

// TestRegistry_ConcurrentReloadAndGet verifies lookups stay consistent while
// the registry is reloaded from another goroutine.
func TestRegistry_ConcurrentReloadAndGet(t *testing.T) {
	r := New(pingModule{}, reportModule{})
	require.NoError(t, r.Discover(context.Background()))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				a, ok := r.Get("ping")
				if !ok || a == nil {
					t.Error("ping must always be resolvable during reload")
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, r.Reload(context.Background()))
	}
	close(stop)
	wg.Wait()
}
