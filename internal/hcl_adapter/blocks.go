package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a definitions file may contain.
type fileRoot struct {
	Environments []*Environment `hcl:"environment,block"`
	Tests        []*Test        `hcl:"test,block"`
	Campaigns    []*Campaign    `hcl:"campaign,block"`
	Remain       hcl.Body       `hcl:",remain"`
}

// Environment is an `environment "<name>"` block.
type Environment struct {
	Name          string            `hcl:"name,label"`
	Description   string            `hcl:"description,optional"`
	Variables     map[string]string `hcl:"variables,optional"`
	RootVariables map[string]string `hcl:"root_variables,optional"`
}

// Test is a `test "<id>"` block.
type Test struct {
	ID          string    `hcl:"id,label"`
	Title       string    `hcl:"title,optional"`
	Campaign    string    `hcl:"campaign,optional"`
	Description string    `hcl:"description,optional"`
	Variables   []string  `hcl:"variables,optional"`
	Actions     []*Action `hcl:"action,block"`
}

// Action is an `action "<plugin>"` block inside a test.
type Action struct {
	Type   string            `hcl:"type,label"`
	Config hcl.Expression    `hcl:"config,optional"`
	Output map[string]string `hcl:"output,optional"`
}

// Campaign is a `campaign "<id>"` block.
type Campaign struct {
	ID            string   `hcl:"id,label"`
	Title         string   `hcl:"title,optional"`
	Description   string   `hcl:"description,optional"`
	Environment   string   `hcl:"environment,optional"`
	Tests         []string `hcl:"tests,optional"`
	StopOnFailure bool     `hcl:"stop_on_failure,optional"`
}
