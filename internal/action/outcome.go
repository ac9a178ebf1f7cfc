package action

import (
	"fmt"
	"unicode/utf8"
)

// Outcome is the result of one action execution. A zero StatusCode means
// success; Err is set whenever StatusCode is not zero.
type Outcome struct {
	StatusCode int
	Traces     []string
	Result     any
	Outputs    map[string]any
	Err        error
}

// NewOutcome returns an empty successful Outcome.
func NewOutcome() *Outcome {
	return &Outcome{Outputs: make(map[string]any)}
}

// OK reports whether the action succeeded.
func (o *Outcome) OK() bool {
	return o != nil && o.StatusCode == 0
}

// Tracef appends a formatted trace line.
func (o *Outcome) Tracef(format string, args ...any) {
	o.Traces = append(o.Traces, fmt.Sprintf(format, args...))
}

// Set records an output variable.
func (o *Outcome) Set(name string, value any) {
	if o.Outputs == nil {
		o.Outputs = make(map[string]any)
	}
	o.Outputs[name] = value
}

// Fail marks the outcome as failed with err and appends err as a trace line.
// It returns o so handlers can write `return out.Fail(err)`.
func (o *Outcome) Fail(err error) *Outcome {
	o.StatusCode = 1
	o.Err = err
	o.Traces = append(o.Traces, "ERROR: "+err.Error())
	return o
}

// Failed builds a failed outcome from err.
func Failed(err error) *Outcome {
	return NewOutcome().Fail(err)
}

// Truncate shortens s to at most n bytes, backing off to the start of a
// rune so a multi-byte character is never split.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
