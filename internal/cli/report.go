package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/testgrid/internal/action"
)

func (c *command) reportCommand() *cobra.Command {
	var (
		format  string
		out     string
		options []string
	)
	cmd := &cobra.Command{
		Use:   "report RUN_ID",
		Short: "Render the report of a finished run",
		Long: `Renders a stored report. Reports outlive the process only with the
sqlite store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := c.openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			opts := action.Config{}
			for _, kv := range options {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return usageError(fmt.Errorf("invalid option %q: expected key=value", kv))
				}
				opts[k] = v
			}
			rendered, err := a.Render(ctx, args[0], format, opts)
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(rendered.Data)
				return err
			}
			return writeRendered(rendered, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "html", "Report format.")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file or directory; '-' writes to stdout.")
	cmd.Flags().StringArrayVar(&options, "option", nil, "Report option as key=value, e.g. theme=dark. Repeatable.")
	return cmd
}
