package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/app"
	"github.com/specialistvlad/testgrid/internal/campaign"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/reporter"
)

func (c *command) runCommand() *cobra.Command {
	var (
		env           string
		tests         []string
		stopOnFailure bool
		reportFormat  string
		reportOut     string
	)
	cmd := &cobra.Command{
		Use:   "run CAMPAIGN",
		Short: "Run a campaign and print its results",
		Long: `Loads the definitions, runs every test of the campaign in order and
prints a summary. The exit code is 1 when the run did not succeed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cfg.Console = true
			cfg, err := c.config()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := c.openApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			req := campaign.LaunchRequest{CampaignID: args[0], Environment: env, TestIDs: tests}
			if cmd.Flags().Changed("stop-on-failure") {
				req.StopOnFailure = &stopOnFailure
			}
			rep, err := a.RunCampaign(ctx, req)
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			printSummary(cmd.OutOrStdout(), rep, cfg.NoColor)

			if reportFormat != "" {
				if err := writeReport(ctx, a, rep.ID, reportFormat, reportOut, cmd.OutOrStdout()); err != nil {
					return &ExitError{Code: 1, Message: err.Error()}
				}
			}
			if rep.Result != model.ResultSuccess {
				return &ExitError{Code: 1, Message: fmt.Sprintf("campaign %s did not succeed", args[0])}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment to run against. Defaults to the campaign's.")
	cmd.Flags().StringSliceVarP(&tests, "test", "t", nil, "Run only these tests, in this order.")
	cmd.Flags().BoolVar(&stopOnFailure, "stop-on-failure", false, "Override the campaign's stop-on-failure policy.")
	cmd.Flags().StringVar(&reportFormat, "report-format", "", "Also render the report in this format (html, json).")
	cmd.Flags().StringVar(&reportOut, "report-out", "", "Directory or file the rendered report is written to.")
	return cmd
}

var styleStatus = map[model.TestStatus]color.Style{
	model.TestPassed:  color.New(color.FgGreen, color.OpBold),
	model.TestFailed:  color.New(color.FgRed, color.OpBold),
	model.TestSkipped: color.New(color.FgYellow),
}

func printSummary(w io.Writer, rep *model.Report, plain bool) {
	fmt.Fprintf(w, "\nRun %s (campaign %s, environment %s)\n", rep.ID, rep.CampaignID, orDash(rep.Environment))
	fmt.Fprintf(w, "%-30s %s\n", "TEST", "STATUS")
	for _, r := range rep.Results {
		status := string(r.Status)
		if !plain {
			status = styleStatus[r.Status].Sprint(status)
		}
		fmt.Fprintf(w, "%-30s %s\n", truncate(r.TestID, 30), status)
	}
	passed, failed, skipped := rep.Counts()
	fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped. Result: %s\n", passed, failed, skipped, orDash(string(rep.Result)))
	if rep.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", rep.Error)
	}
}

// writeReport renders a report and writes it with writeRendered.
func writeReport(ctx context.Context, a *app.App, runID, format, out string, w io.Writer) error {
	rendered, err := a.Render(ctx, runID, format, action.Config{})
	if err != nil {
		return err
	}
	return writeRendered(rendered, out, w)
}

// writeRendered writes a document into out, which may be a directory, a
// file or empty for the current directory.
func writeRendered(rendered *reporter.Rendered, out string, w io.Writer) error {
	path := out
	if path == "" {
		path = rendered.FileName
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, rendered.FileName)
	}
	if err := os.WriteFile(path, rendered.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(w, "Report written to %s\n", path)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return action.Truncate(s, max-3) + "..."
}
