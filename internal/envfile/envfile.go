package envfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/testgrid/internal/fsutil"
	"github.com/specialistvlad/testgrid/internal/hcl_adapter"
	"github.com/specialistvlad/testgrid/internal/model"
)

// Value is a scalar variable value.
type Value string

// UnmarshalYAML accepts any scalar node and keeps its text.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: variable value must be a scalar", node.Line)
	}
	*v = Value(node.Value)
	return nil
}

// JSONSchema describes Value as a string, number or boolean.
func (Value) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "number"},
			{Type: "boolean"},
		},
	}
}

// File is one environment document.
type File struct {
	Name          string           `json:"name" yaml:"name" jsonschema:"minLength=1,pattern=^[A-Za-z0-9_.-]+$"`
	Description   string           `json:"description,omitempty" yaml:"description"`
	Variables     map[string]Value `json:"variables,omitempty" yaml:"variables"`
	RootVariables map[string]Value `json:"root_variables,omitempty" yaml:"root_variables"`
}

// ToVariables flattens the environment, sorted by key within each group.
func (f *File) ToVariables() []*model.Variable {
	vars := make([]*model.Variable, 0, len(f.Variables)+len(f.RootVariables))
	for _, k := range slices.Sorted(maps.Keys(f.Variables)) {
		vars = append(vars, &model.Variable{
			ID: hcl_adapter.VariableID(f.Name, k), Environment: f.Name, Key: k, Value: string(f.Variables[k]),
		})
	}
	for _, k := range slices.Sorted(maps.Keys(f.RootVariables)) {
		vars = append(vars, &model.Variable{
			ID: hcl_adapter.VariableID(f.Name, k), Environment: f.Name, Key: k, Value: string(f.RootVariables[k]), IsRoot: true,
		})
	}
	return vars
}

// Schema returns the JSON Schema of an environment document.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true, Anonymous: true}
	s := r.Reflect(&File{})
	s.Title = "testgrid environment"
	return s
}

// ValidationError is a schema violation inside an environment file.
type ValidationError struct {
	File string
	// Path is the slash-separated location of the offending value.
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: /%s: %s", e.File, e.Path, e.Message)
}

func compileSchema() (*sjsonschema.Schema, error) {
	schemaJSON, err := json.Marshal(Schema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	schemaDoc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource("environment.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile("environment.json")
}

// Parse decodes every document in data. name labels errors.
func Parse(name string, data []byte) ([]*File, error) {
	sch, err := compileSchema()
	if err != nil {
		return nil, err
	}

	var files []*File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}

		if err := validate(sch, name, &node); err != nil {
			return nil, err
		}
		var f File
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		files = append(files, &f)
	}
	return files, nil
}

func validate(sch *sjsonschema.Schema, name string, node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	// Round-trip through JSON so the validator sees JSON types only.
	data, err := json.Marshal(raw)
	if err != nil {
		return &ValidationError{File: name, Message: fmt.Sprintf("document is not JSON compatible: %v", err)}
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}

	if err := sch.Validate(doc); err != nil {
		var ve *sjsonschema.ValidationError
		if !errors.As(err, &ve) {
			return &ValidationError{File: name, Message: err.Error()}
		}
		for len(ve.Causes) > 0 {
			ve = ve.Causes[0]
		}
		return &ValidationError{
			File:    name,
			Path:    strings.Join(ve.InstanceLocation, "/"),
			Message: fmt.Sprintf("%v", ve.ErrorKind),
		}
	}
	return nil
}

// Load reads environment files from paths. A path may be a file or a
// directory, which is searched for .yaml and .yml files; missing paths are
// skipped. An environment declared twice is an error.
func Load(paths ...string) ([]*model.Variable, error) {
	files, err := findYAMLFiles(paths)
	if err != nil {
		return nil, err
	}

	declared := map[string]string{}
	var vars []*model.Variable
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		envs, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		for _, env := range envs {
			if prev, ok := declared[env.Name]; ok {
				return nil, fmt.Errorf("duplicate environment %q: declared in %s and %s", env.Name, prev, path)
			}
			declared[env.Name] = path
			vars = append(vars, env.ToVariables()...)
		}
	}
	return vars, nil
}

func findYAMLFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		for _, ext := range []string{".yaml", ".yml"} {
			found, err := fsutil.FindFiles(p, ext)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		}
	}
	return out, nil
}
