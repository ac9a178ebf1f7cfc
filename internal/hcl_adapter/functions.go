package hcl_adapter

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// evalContext returns the functions available in definition files. getenv
// backs env(); nil means os.Getenv.
func evalContext(getenv func(string) string) *hcl.EvalContext {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env":        envFunc(getenv),
			"upper":      stdlib.UpperFunc,
			"lower":      stdlib.LowerFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
			"coalesce":   stdlib.CoalesceFunc,
		},
	}
}

// envFunc reads a process environment variable; unset variables are "".
func envFunc(getenv func(string) string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.StringVal(getenv(args[0].AsString())), nil
		},
	})
}
