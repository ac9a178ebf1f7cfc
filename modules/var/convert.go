package varconv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Types lists the supported conversion targets.
var Types = []string{"int", "float", "bool", "list", "dict", "json"}

// ErrNoValue is returned when the source variable is declared but unset.
var ErrNoValue = errors.New("variable has no value")

var truthyStrings = map[string]bool{"true": true, "1": true, "yes": true, "oui": true, "y": true, "o": true}

// Convert coerces v to target.
func Convert(v any, target string) (any, error) {
	switch target {
	case "int":
		return toInt(v)
	case "float":
		return toFloat(v)
	case "bool":
		return toBool(v), nil
	case "list":
		return toList(v)
	case "dict":
		return toDict(v)
	case "json":
		return toJSON(v)
	default:
		return nil, fmt.Errorf("unsupported target type %q", target)
	}
}

// toInt parses strings as base-10 integers and truncates floats.
func toInt(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, ErrNoValue
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", t)
		}
		return n, nil
	default:
		return cast.ToInt64E(t)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, ErrNoValue
	case string:
		return cast.ToFloat64E(strings.TrimSpace(t))
	default:
		return cast.ToFloat64E(t)
	}
}

// toBool case-folds strings against the accepted true spellings; other
// values use their zero-ness.
func toBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return truthyStrings[strings.ToLower(t)]
	case bool:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return !rv.IsZero()
}

// toList parses JSON text, wrapping a non-array result; other non-list
// values are wrapped in a single-element list.
func toList(v any) ([]any, error) {
	switch t := v.(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return []any{t}, nil
		}
		if list, ok := parsed.([]any); ok {
			return list, nil
		}
		return []any{parsed}, nil
	case []any:
		return append([]any(nil), t...), nil
	}
	rv := reflect.ValueOf(v)
	if v != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return list, nil
	}
	return []any{v}, nil
}

func toDict(v any) (map[string]any, error) {
	switch t := v.(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return nil, err
		}
		m, ok := parsed.(map[string]any)
		if !ok {
			return nil, errors.New("parsed value is not a dictionary")
		}
		return m, nil
	case map[string]any:
		return t, nil
	}
	if v != nil && reflect.ValueOf(v).Kind() == reflect.Map {
		return cast.ToStringMapE(v)
	}
	return nil, fmt.Errorf("cannot convert %T to a dictionary", v)
}

// toJSON validates string input as JSON and returns it unchanged; other
// values are serialized with two-space indentation.
func toJSON(v any) (string, error) {
	if s, ok := v.(string); ok {
		if !json.Valid([]byte(s)) {
			return "", fmt.Errorf("invalid JSON: %q", s)
		}
		return s, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
