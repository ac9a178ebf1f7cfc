package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/testgrid/internal/campaign"
	"github.com/specialistvlad/testgrid/internal/model"
)

func (c *command) testCommand() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "test TEST",
		Short: "Run a single test and print its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out, err := a.RunTest(ctx, campaign.TestRunRequest{TestID: args[0], Environment: env})
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Log)
			if out.Status != model.TestPassed {
				return &ExitError{Code: 1, Message: fmt.Sprintf("test %s %s", args[0], out.Status)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment to run against.")
	return cmd
}
