package action

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const numericPattern = `^\s*(-?[0-9]+(\.[0-9]+)?)?\s*$`

// Schema builds a JSON Schema describing a configuration with the given
// fields. Numbers and checkboxes also accept their textual form because
// values often come out of {{...}} substitution as strings. Blank text passes
// every field type; presence is CheckRequired's job.
func Schema(title string, fields []Field) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string

	for _, f := range fields {
		props.Set(f.Name, fieldSchema(f))
		if f.Required {
			required = append(required, f.Name)
		}
	}

	return &jsonschema.Schema{
		Version:    jsonschema.Version,
		Title:      title,
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func fieldSchema(f Field) *jsonschema.Schema {
	s := &jsonschema.Schema{Title: f.Label, Default: f.Default}
	switch f.Type {
	case FieldNumber:
		s.AnyOf = []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string", Pattern: numericPattern},
		}
	case FieldCheckbox:
		s.AnyOf = []*jsonschema.Schema{
			{Type: "boolean"},
			{Type: "string", Enum: []any{"true", "false", "1", "0", ""}},
		}
	case FieldSelect:
		if len(f.Options) > 0 {
			quoted := make([]string, len(f.Options))
			for i, o := range f.Options {
				quoted[i] = regexp.QuoteMeta(o)
			}
			s.Type = "string"
			s.Pattern = "^(?i:" + strings.Join(quoted, "|") + ")?$"
		}
	case FieldTextArea:
		// free text or structured JSON
	default:
		s.Type = "string"
	}
	return s
}

// ValidateSchema checks cfg against the schema of fields. Select options
// match case-insensitively. The first violation is returned as a
// *ValidationError naming the field.
func ValidateSchema(title string, fields []Field, cfg Config) error {
	sch, err := compiled(title, fields)
	if err != nil {
		return err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return Invalid("", "configuration is not serializable: %v", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Invalid("", "configuration is not serializable: %v", err)
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return Invalid("", "%v", err)
		}
		leaf := firstLeaf(ve)
		return &ValidationError{
			Field:   strings.Join(leaf.InstanceLocation, "."),
			Message: fmt.Sprintf("%v", leaf.ErrorKind),
		}
	}
	return nil
}

// schemas caches compiled schemas by title and field list.
var schemas sync.Map

func compiled(title string, fields []Field) (*sjsonschema.Schema, error) {
	fp, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	key := title + "\x00" + string(fp)
	if sch, ok := schemas.Load(key); ok {
		return sch.(*sjsonschema.Schema), nil
	}

	schemaJSON, err := json.Marshal(Schema(title, fields))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("config.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("config.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := schemas.LoadOrStore(key, sch)
	return actual.(*sjsonschema.Schema), nil
}

func firstLeaf(ve *sjsonschema.ValidationError) *sjsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
