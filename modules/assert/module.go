// Package assert provides the "assert" action: evaluates a boolean
// expression over the test's variables and fails the test when it is false.
//
// Expressions use the expr language: `status == 200`, `len(items) > 0`,
// `body contains "ok"`.
package assert

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the assert action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action checks one condition.
type Action struct{}

func (a *Action) PluginName() string { return "assert" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Fails the test when a condition over test variables is false"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "expression", Type: action.FieldTextArea, Label: "Condition", Required: true, Placeholder: `status == 200 && body contains "ok"`},
		{Name: "message", Type: action.FieldText, Label: "Failure message"},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "assert_result", Type: "bool", Description: "Value of the condition"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	if err := action.ValidateFields("assert", a.Inputs(), cfg); err != nil {
		return err
	}
	if _, err := expr.Compile(cfg.String("expression")); err != nil {
		return action.Invalid("expression", "%v", err)
	}
	return nil
}

func (a *Action) Execute(_ context.Context, req *action.Request) *action.Outcome {
	out := action.NewOutcome()
	src := strings.TrimSpace(req.Config.String("expression"))
	out.Tracef("Evaluating: %s", src)

	ok, err := Eval(src, req.Variables)
	if err != nil {
		return out.Fail(err)
	}
	out.Set("assert_result", ok)
	out.Result = ok
	if !ok {
		msg := req.Config.StringOr("message", "assertion failed")
		return out.Fail(fmt.Errorf("%s: %s", msg, src))
	}
	out.Tracef("Condition holds")
	return out
}

// Eval evaluates src against vars and requires a boolean result.
func Eval(src string, vars map[string]any) (bool, error) {
	env := maps.Clone(vars)
	if env == nil {
		env = map[string]any{}
	}
	program, err := expr.Compile(src, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", src, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", src, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T)", src, output)
	}
	return result, nil
}
