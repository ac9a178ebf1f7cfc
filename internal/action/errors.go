package action

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed or missing configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// Missing returns the ValidationError for an absent required field.
func Missing(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("missing required field '%s'", field)}
}

// Invalid returns a ValidationError with a formatted message.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransportError wraps a failure of a network, remote-shell or file-transfer
// operation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a *TransportError for op. It returns nil for a nil err.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// PluginNotFoundError is returned when no plugin is registered for a key.
type PluginNotFoundError struct {
	Key string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("action plugin '%s' not found", e.Key)
}

// UnexpectedError carries a recovered panic or any other unclassified failure
// together with the stack where it happened.
type UnexpectedError struct {
	Value any
	Stack []byte
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.Value)
}

// StackTrace returns the captured stack as trimmed text.
func (e *UnexpectedError) StackTrace() string {
	return strings.TrimSpace(string(e.Stack))
}

func (e *UnexpectedError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
