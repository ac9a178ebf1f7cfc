// Package env_vars provides the "env" action: reads variables of the
// process environment into test variables.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the env action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return &Action{Environ: os.Environ} })
	return nil
}

// Action reads the process environment.
type Action struct {
	Environ func() []string
}

func (a *Action) PluginName() string { return "env" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Reads process environment variables"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "name", Type: action.FieldText, Label: "Variable name", Placeholder: "HOME"},
		{Name: "prefix", Type: action.FieldText, Label: "Only variables with this prefix (env_all)"},
		{Name: "required", Type: action.FieldCheckbox, Label: "Fail when the variable is unset", Default: false},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "env_value", Type: "string", Description: "Value of the named variable"},
		{Name: "env_all", Type: "object", Description: "All matching variables"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	if err := action.ValidateSchema("env", a.Inputs(), cfg); err != nil {
		return err
	}
	if cfg.Bool("required", false) && !cfg.Has("name") {
		return action.Missing("name")
	}
	return nil
}

func (a *Action) Execute(_ context.Context, req *action.Request) *action.Outcome {
	out := action.NewOutcome()
	environ := a.Environ
	if environ == nil {
		environ = os.Environ
	}
	prefix := req.Config.String("prefix")

	envMap := make(map[string]any)
	for _, e := range environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && strings.HasPrefix(pair[0], prefix) {
			envMap[pair[0]] = pair[1]
		}
	}
	out.Set("env_all", envMap)
	out.Tracef("Read %d environment variable(s)", len(envMap))

	if name := req.Config.String("name"); name != "" {
		v, ok := lookup(environ(), name)
		if !ok && req.Config.Bool("required", false) {
			return out.Fail(action.Invalid("name", "environment variable %s is not set", name))
		}
		out.Set("env_value", v)
		out.Tracef("%s set: %t", name, ok)
	}
	return out
}

func lookup(env []string, name string) (string, bool) {
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok && k == name {
			return v, true
		}
	}
	return "", false
}
