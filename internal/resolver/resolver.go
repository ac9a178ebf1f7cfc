// Package resolver substitutes {{...}} template tokens in action
// configurations.
//
// Three namespaces are resolved independently, always in this order:
//
//	{{name}}       environment variables of the run
//	{{app.name}}   test-local variables of the running test
//	{{test.name}}  collection variables injected by the engine
//
// A token whose key is absent from its namespace is left untouched, so
// resolution never fails. Maps and slices are walked recursively; values
// that are not strings are returned as they are.
package resolver

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var (
	envPattern        = regexp.MustCompile(`\{\{([^.}]+)\}\}`)
	testLocalPattern  = regexp.MustCompile(`\{\{app\.([^}]+)\}\}`)
	collectionPattern = regexp.MustCompile(`\{\{test\.([^}]+)\}\}`)
)

// Collection variable names.
const (
	RunID          = "run_id"
	TestID         = "test_id"
	CampaignID     = "campaign_id"
	CampaignIDAlt  = "campain_id"
	FilesDir       = "files_dir"
	WorkDir        = "work_dir"
	EnvironmentKey = "environment"
)

// Namespaces is the variable state a value is resolved against.
type Namespaces struct {
	Env        map[string]string
	Test       map[string]any
	Collection map[string]string
}

// Resolve returns v with every string leaf substituted. The input is not
// modified.
func (n Namespaces) Resolve(v any) any {
	switch t := v.(type) {
	case string:
		return n.ResolveString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = n.Resolve(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = n.ResolveString(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = n.Resolve(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			out[i] = n.ResolveString(val)
		}
		return out
	default:
		return v
	}
}

// ResolveMap resolves every value of m into a new map.
func (n Namespaces) ResolveMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return n.Resolve(m).(map[string]any)
}

// ResolveString applies the three substitution passes to s.
func (n Namespaces) ResolveString(s string) string {
	s = envPattern.ReplaceAllStringFunc(s, func(tok string) string {
		key := envPattern.FindStringSubmatch(tok)[1]
		if val, ok := n.Env[key]; ok {
			return val
		}
		return tok
	})
	s = testLocalPattern.ReplaceAllStringFunc(s, func(tok string) string {
		key := testLocalPattern.FindStringSubmatch(tok)[1]
		if val, ok := n.Test[key]; ok && val != nil {
			return Format(val)
		}
		return tok
	})
	s = collectionPattern.ReplaceAllStringFunc(s, func(tok string) string {
		key := collectionPattern.FindStringSubmatch(tok)[1]
		if val, ok := n.Collection[key]; ok {
			return val
		}
		return tok
	})
	return s
}

// Format renders a variable value as text: strings verbatim, maps and
// slices as JSON, anything else with fmt.
func Format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any, map[string]string, []string, []map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}
