package action

import "context"

// Info is the descriptive metadata of a plugin.
type Info struct {
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// FieldType is the input widget kind exposed to form-building consumers.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
	FieldTextArea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldCheckbox FieldType = "checkbox"
	FieldSelect   FieldType = "select"
)

// Field describes one configuration input.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Default     any       `json:"default,omitempty"`
	Options     []string  `json:"options,omitempty"`
}

// Output describes one output variable an action may populate.
type Output struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Request is the input of one execution.
type Request struct {
	// Config is the fully resolved configuration.
	Config Config
	// Variables is a snapshot of the test-local variables at the time the
	// action runs. Actions must not mutate it.
	Variables map[string]any
}

// Action is the capability set every action plugin implements.
type Action interface {
	Info() Info
	Inputs() []Field
	Outputs() []Output
	// Validate rejects a configuration that cannot be executed. The returned
	// error is a *ValidationError naming the offending field.
	Validate(cfg Config) error
	// Execute performs the action. Implementations return a non-nil Outcome
	// on every path and release any transport they open before returning.
	Execute(ctx context.Context, req *Request) *Outcome
}
