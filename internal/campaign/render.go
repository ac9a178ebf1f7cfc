package campaign

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/reporter"
)

// Render renders the report of a run with the report plugin registered
// for format.
func (rn *Runner) Render(ctx context.Context, reportID, format string, cfg action.Config) (*reporter.Rendered, error) {
	if rn.reports == nil {
		return nil, errors.New("no report plugins configured")
	}
	plugin, ok := rn.reports.GetReport(format)
	if !ok {
		return nil, &action.PluginNotFoundError{Key: format}
	}
	if err := action.CheckRequired(plugin.Inputs(), cfg); err != nil {
		return nil, err
	}

	rep, err := rn.store.Reports().FindByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report %q: %w", reportID, err)
	}
	out, err := plugin.Generate(rep, cfg)
	if err != nil {
		return nil, fmt.Errorf("render report %q as %s: %w", reportID, format, err)
	}
	return out, nil
}
