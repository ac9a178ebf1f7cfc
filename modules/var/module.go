// Package varconv provides the "var" action: converts a test-local variable
// to another type and exposes the result as converted_value.
package varconv

import (
	"context"
	"fmt"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the var action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action converts one variable.
type Action struct{}

func (a *Action) PluginName() string { return "var" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Converts a test variable to another type"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "variable_name", Type: action.FieldText, Label: "Variable to convert", Required: true},
		{Name: "target_type", Type: action.FieldSelect, Label: "Target type", Required: true, Options: Types},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "converted_value", Type: "any", Description: "Converted value of the variable"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	return action.ValidateFields("var", a.Inputs(), cfg)
}

func (a *Action) Execute(_ context.Context, req *action.Request) *action.Outcome {
	out := action.NewOutcome()
	name := req.Config.String("variable_name")
	target := req.Config.String("target_type")
	out.Tracef("Converting variable '%s' to '%s'", name, target)

	v, ok := req.Variables[name]
	if !ok {
		return out.Fail(fmt.Errorf("variable '%s' not found", name))
	}
	out.Tracef("Original value: %v (type: %T)", v, v)

	converted, err := Convert(v, target)
	if err != nil {
		return out.Fail(fmt.Errorf("conversion failed: %w", err))
	}
	out.Tracef("Converted value: %v (type: %T)", converted, converted)
	out.Set("converted_value", converted)
	out.Result = converted
	return out
}
