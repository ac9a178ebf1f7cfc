// Package reporter defines the contract of report plugins: renderers that
// turn a finished execution report into a downloadable document.
package reporter

import (
	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/model"
)

// Rendered is a generated report document.
type Rendered struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Reporter renders execution reports in one output format.
type Reporter interface {
	Info() action.Info
	// Format is the output format name, e.g. "html".
	Format() string
	// Inputs describes the options Generate understands.
	Inputs() []action.Field
	Generate(r *model.Report, cfg action.Config) (*Rendered, error)
}
