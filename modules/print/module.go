// Package print provides the "print" action: writes a value to the action
// log and the process log. Useful for inspecting variables mid-test.
package print

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the print action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action prints its value.
type Action struct{}

func (a *Action) PluginName() string { return "print" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Prints a value or a map of values to the test log"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "value", Type: action.FieldTextArea, Label: "Value (text or map)"},
	}
}

func (a *Action) Outputs() []action.Output { return nil }

func (a *Action) Validate(cfg action.Config) error { return nil }

func (a *Action) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	out := action.NewOutcome()
	logger := ctxlog.FromContext(ctx)
	logger.Info("Printing input")

	v, ok := req.Config["value"]
	if !ok || v == nil {
		out.Tracef("(null)")
		return out
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		out.Tracef("%v", v)
		return out
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out.Tracef("%s = %s", k, quote(m[k]))
	}
	return out
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
