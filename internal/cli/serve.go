package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (c *command) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the engine running with the health check server",
		Long: `Loads the definitions and keeps the engine up until interrupted. With
--watch, changes to definition or environment files reload the
definitions and the plugins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			return a.Serve(ctx)
		},
	}
	cmd.Flags().BoolVarP(&c.cfg.Watch, "watch", "w", c.cfg.Watch, "Reload definitions when files change.")
	return cmd
}
