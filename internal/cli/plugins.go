package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/registry"
)

func (c *command) pluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect the registered action and report plugins",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every plugin",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				reg, err := c.discover(cmd)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-10s %-8s %-10s %s\n", "KEY", "CATEGORY", "VERSION", "DESCRIPTION")
				for _, d := range reg.List() {
					fmt.Fprintf(w, "%-10s %-8s %-10s %s\n", d.Key, d.Category, d.Version, truncate(d.Description, 60))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "describe KEY",
			Short: "Show the inputs and outputs of a plugin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := c.discover(cmd)
				if err != nil {
					return err
				}
				d, ok := reg.Describe(args[0])
				if !ok {
					return &ExitError{Code: 1, Message: (&action.PluginNotFoundError{Key: args[0]}).Error()}
				}
				inputs, _ := reg.Inputs(args[0])
				var outputs []action.Output
				if a, ok := reg.Get(args[0]); ok {
					outputs = a.Outputs()
				}
				describe(cmd.OutOrStdout(), d, inputs, outputs)
				return nil
			},
		},
		&cobra.Command{
			Use:   "errors",
			Short: "List the modules that failed to load",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				reg, err := c.discover(cmd)
				if err != nil {
					return err
				}
				errs := reg.Errors()
				if len(errs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No plugin load errors.")
					return nil
				}
				for _, e := range errs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", e.Timestamp.Format("15:04:05"), e.Error())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "schema KEY",
			Short: "Print the JSON Schema of a plugin's configuration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := c.discover(cmd)
				if err != nil {
					return err
				}
				inputs, ok := reg.Inputs(args[0])
				if !ok {
					return &ExitError{Code: 1, Message: (&action.PluginNotFoundError{Key: args[0]}).Error()}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(action.Schema(args[0], inputs))
			},
		},
	)
	return cmd
}

// discover builds a registry over the module catalog.
func (c *command) discover(cmd *cobra.Command) (*registry.Registry, error) {
	reg := registry.New(c.opts.Modules...)
	if err := reg.Discover(cmd.Context()); err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	return reg, nil
}

func describe(w io.Writer, d registry.Descriptor, inputs []action.Field, outputs []action.Output) {
	fmt.Fprintf(w, "%s (%s, module %s)\n", d.Key, d.Category, d.Module)
	fmt.Fprintf(w, "Version: %s  Author: %s\n", orDash(d.Version), orDash(d.Author))
	if d.Description != "" {
		fmt.Fprintf(w, "%s\n", d.Description)
	}

	fmt.Fprintln(w, "\nInputs:")
	for _, f := range inputs {
		var notes []string
		if f.Required {
			notes = append(notes, "required")
		}
		if f.Default != nil {
			notes = append(notes, fmt.Sprintf("default %v", f.Default))
		}
		if len(f.Options) > 0 {
			notes = append(notes, "one of "+strings.Join(f.Options, "|"))
		}
		fmt.Fprintf(w, "  %-16s %-9s %s\n", f.Name, orDash(string(f.Type)), strings.Join(notes, ", "))
	}
	if len(outputs) > 0 {
		fmt.Fprintln(w, "\nOutputs:")
		for _, o := range outputs {
			fmt.Fprintf(w, "  %-24s %-7s %s\n", o.Name, o.Type, o.Description)
		}
	}
}
