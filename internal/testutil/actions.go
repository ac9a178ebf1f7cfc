package testutil

import (
	"context"
	"sync"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/registry"
)

// ExecuteFunc is the body of a FuncAction.
type ExecuteFunc func(ctx context.Context, req *action.Request) *action.Outcome

// FuncAction is an action whose behaviour is a function. It accepts any
// configuration.
type FuncAction struct {
	Key    string
	Fields []action.Field
	Outs   []action.Output
	Fn     ExecuteFunc
}

func (f *FuncAction) PluginName() string       { return f.Key }
func (f *FuncAction) Info() action.Info        { return action.Info{Version: "test", Description: "scripted " + f.Key} }
func (f *FuncAction) Inputs() []action.Field   { return f.Fields }
func (f *FuncAction) Outputs() []action.Output { return f.Outs }

func (f *FuncAction) Validate(cfg action.Config) error {
	return action.CheckRequired(f.Fields, cfg)
}

func (f *FuncAction) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	return f.Fn(ctx, req)
}

// Pass succeeds and sets the given outputs.
func Pass(outputs map[string]any) ExecuteFunc {
	return func(context.Context, *action.Request) *action.Outcome {
		out := action.NewOutcome()
		for k, v := range outputs {
			out.Set(k, v)
		}
		return out
	}
}

// Fail fails with err.
func Fail(err error) ExecuteFunc {
	return func(context.Context, *action.Request) *action.Outcome {
		return action.Failed(err)
	}
}

// Panic panics with v.
func Panic(v any) ExecuteFunc {
	return func(context.Context, *action.Request) *action.Outcome {
		panic(v)
	}
}

// Block waits for ctx to end or release to be closed, then succeeds.
// started is closed on the first call when not nil.
func Block(started chan<- struct{}, release <-chan struct{}) ExecuteFunc {
	var once sync.Once
	return func(ctx context.Context, _ *action.Request) *action.Outcome {
		if started != nil {
			once.Do(func() { close(started) })
		}
		select {
		case <-ctx.Done():
			return action.Failed(ctx.Err())
		case <-release:
			return action.NewOutcome()
		}
	}
}

// Plugins is a fixed set of scripted actions keyed by kind.
type Plugins map[string]ExecuteFunc

// Get implements testrunner.Plugins.
func (p Plugins) Get(key string) (action.Action, bool) {
	fn, ok := p[key]
	if !ok {
		return nil, false
	}
	return &FuncAction{Key: key, Fn: fn}, true
}

// Module registers the scripted actions into a registry.
func (p Plugins) Module() registry.Module { return pluginsModule(p) }

type pluginsModule Plugins

func (m pluginsModule) Register(t *registry.Table) error {
	for key, fn := range m {
		key, fn := key, fn
		t.Action(func() action.Action { return &FuncAction{Key: key, Fn: fn} })
	}
	return nil
}
