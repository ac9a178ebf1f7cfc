package hcl_adapter

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/model"
)

// VariableID is the store id of an environment variable.
func VariableID(env, key string) string {
	return env + "." + key
}

// translateEnvironment flattens an environment block into variables,
// sorted by key.
func translateEnvironment(e *Environment) []*model.Variable {
	vars := make([]*model.Variable, 0, len(e.Variables)+len(e.RootVariables))
	for _, k := range slices.Sorted(maps.Keys(e.Variables)) {
		vars = append(vars, &model.Variable{ID: VariableID(e.Name, k), Environment: e.Name, Key: k, Value: e.Variables[k]})
	}
	for _, k := range slices.Sorted(maps.Keys(e.RootVariables)) {
		vars = append(vars, &model.Variable{ID: VariableID(e.Name, k), Environment: e.Name, Key: k, Value: e.RootVariables[k], IsRoot: true})
	}
	return vars
}

// translateTest converts a test block, evaluating each action's config.
func translateTest(ctx context.Context, t *Test, evalCtx *hcl.EvalContext) (*model.Test, error) {
	logger := ctxlog.FromContext(ctx).With("test_id", t.ID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL test to model.", "actions", len(t.Actions))

	name := t.Title
	if name == "" {
		name = t.ID
	}
	test := &model.Test{
		ID:          t.ID,
		CampaignID:  t.Campaign,
		Name:        name,
		Description: t.Description,
		Variables:   t.Variables,
		Actions:     make([]model.Action, 0, len(t.Actions)),
	}
	declared := make(map[string]bool, len(t.Variables))
	for _, v := range t.Variables {
		declared[v] = true
	}

	for i, a := range t.Actions {
		cfg, err := actionConfig(ctx, a, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("test %q action %d (%s): %w", t.ID, i+1, a.Type, err)
		}
		for out, target := range a.Output {
			if !declared[target] {
				return nil, fmt.Errorf("test %q action %d (%s): output %q maps to undeclared variable %q", t.ID, i+1, a.Type, out, target)
			}
		}
		test.Actions = append(test.Actions, model.Action{Type: a.Type, Config: cfg, OutputMapping: a.Output})
	}
	return test, nil
}

func actionConfig(ctx context.Context, a *Action, evalCtx *hcl.EvalContext) (map[string]any, error) {
	if !isExprDefined(ctx, a.Config, "config") {
		return map[string]any{}, nil
	}
	val, diags := a.Config.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, err
	}
	if native == nil {
		return map[string]any{}, nil
	}
	cfg, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config must be an object, got %s", val.Type().FriendlyName())
	}
	return cfg, nil
}

func translateCampaign(c *Campaign) *model.Campaign {
	name := c.Title
	if name == "" {
		name = c.ID
	}
	return &model.Campaign{
		ID:            c.ID,
		Name:          name,
		Description:   c.Description,
		Environment:   c.Environment,
		Tests:         c.Tests,
		StopOnFailure: c.StopOnFailure,
	}
}
