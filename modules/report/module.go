// Package report provides the built-in report plugins: "html" and "json".
package report

import (
	"github.com/specialistvlad/testgrid/internal/registry"
	"github.com/specialistvlad/testgrid/internal/reporter"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the html and json report plugins.
func (m *Module) Register(t *registry.Table) error {
	t.Report(func() reporter.Reporter { return new(HTML) })
	t.Report(func() reporter.Reporter { return new(JSON) })
	return nil
}
