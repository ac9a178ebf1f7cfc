package action

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Config is a resolved, string-keyed action configuration.
type Config map[string]any

// Has reports whether key is present with a non-empty value.
func (c Config) Has(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the value of key rendered as text, or "" when absent.
func (c Config) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// StringOr returns String(key) or def when the key is empty.
func (c Config) StringOr(key, def string) string {
	if !c.Has(key) {
		return def
	}
	return c.String(key)
}

// Int returns the integer value of key. Numbers, numeric strings and bools
// are accepted; def is returned when the key is empty.
func (c Config) Int(key string, def int) (int, error) {
	if !c.Has(key) {
		return def, nil
	}
	switch t := c[key].(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, Invalid(key, "expected an integer, got %q", t)
		}
		return n, nil
	default:
		return 0, Invalid(key, "expected an integer, got %T", t)
	}
}

// Bool returns the boolean value of key, or def when the key is empty.
func (c Config) Bool(key string, def bool) bool {
	if !c.Has(key) {
		return def
	}
	switch t := c[key].(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return def
	}
}

// Map returns key as a map. A JSON object encoded as text is decoded.
// An empty key yields an empty map.
func (c Config) Map(key string) (map[string]any, error) {
	if !c.Has(key) {
		return map[string]any{}, nil
	}
	switch t := c[key].(type) {
	case map[string]any:
		return t, nil
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[k] = v
		}
		return m, nil
	case string:
		m := map[string]any{}
		if err := json.Unmarshal([]byte(t), &m); err != nil {
			return nil, Invalid(key, "expected a JSON object: %v", err)
		}
		return m, nil
	default:
		return nil, Invalid(key, "expected an object, got %T", t)
	}
}

// Upper returns String(key) upper-cased and trimmed.
func (c Config) Upper(key string) string {
	return strings.ToUpper(strings.TrimSpace(c.String(key)))
}
