package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/testgrid/internal/app"
	"github.com/specialistvlad/testgrid/internal/registry"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// Options are the process-level collaborators of the command tree.
type Options struct {
	Out    io.Writer // command results
	Err    io.Writer // logs and progress
	Getenv func(string) string
	// Modules replaces the built-in module catalog when not empty.
	Modules []registry.Module
}

func (o *Options) defaults() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if len(o.Modules) == 0 {
		o.Modules = app.CoreModules()
	}
}

// Execute runs the command line args. Usage problems are returned as
// *ExitError with code 2.
func Execute(ctx context.Context, args []string, opts Options) error {
	opts.defaults()
	root := newRootCommand(&opts)
	root.SetArgs(args)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	return root.ExecuteContext(ctx)
}

// command holds the state shared by every subcommand.
type command struct {
	opts *Options
	cfg  app.Config
}

func newRootCommand(opts *Options) *cobra.Command {
	c := &command{opts: opts, cfg: app.DefaultConfig(opts.Getenv)}

	root := &cobra.Command{
		Use:   "testgrid",
		Short: "Run declarative multi-step test campaigns",
		Long: `testgrid executes tests made of plugin actions (HTTP, SSH, SFTP, FTP,
WebDAV, local files, assertions) and groups them into campaigns with
stop-on-failure semantics and live progress events.

Defaults for every global flag can be set with TESTGRID_* environment
variables, e.g. TESTGRID_DEFINITIONS or TESTGRID_WORKERS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	f := root.PersistentFlags()
	f.StringVarP(&c.cfg.DefinitionsPath, "definitions", "d", c.cfg.DefinitionsPath, "Path to an .hcl file or a directory of definitions.")
	f.StringVar(&c.cfg.EnvFilesPath, "env-files", c.cfg.EnvFilesPath, "Path to a YAML environment file or directory.")
	f.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "Logging level: debug, info, warn or error.")
	f.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "Log output format: text or json.")
	f.IntVar(&c.cfg.Workers, "workers", c.cfg.Workers, "Number of runs executed concurrently.")
	f.IntVar(&c.cfg.QueueSize, "queue", c.cfg.QueueSize, "Number of runs that may wait for a worker.")
	f.StringVar(&c.cfg.StoreDriver, "store", c.cfg.StoreDriver, "Store driver: memory or sqlite.")
	f.StringVar(&c.cfg.StoreDSN, "store-dsn", c.cfg.StoreDSN, "Data source name of the sqlite store.")
	f.StringVar(&c.cfg.WorkspaceRoot, "workspace", c.cfg.WorkspaceRoot, "Root directory of campaign workspaces. Empty disables them.")
	f.IntVar(&c.cfg.HealthcheckPort, "healthcheck-port", c.cfg.HealthcheckPort, "Port for the HTTP health check server. 0 is disabled.")
	f.StringVar(&c.cfg.TraceFile, "trace-file", c.cfg.TraceFile, "Append every event as JSON lines to this file.")
	f.StringVar(&c.cfg.SocketIOURL, "socketio-url", c.cfg.SocketIOURL, "Publish events to this socket.io server.")
	f.StringVar(&c.cfg.MQTTBroker, "mqtt-broker", c.cfg.MQTTBroker, "Publish events to this MQTT broker, e.g. tcp://localhost:1883.")
	f.StringVar(&c.cfg.MQTTTopicPrefix, "mqtt-topic-prefix", c.cfg.MQTTTopicPrefix, "Topic prefix of published events.")
	f.BoolVar(&c.cfg.NoColor, "no-color", c.cfg.NoColor, "Disable colored progress output.")

	root.AddCommand(
		c.runCommand(),
		c.testCommand(),
		c.pluginsCommand(),
		c.reportCommand(),
		c.serveCommand(),
	)
	return root
}

// config validates the flags into an app configuration.
func (c *command) config() (*app.Config, error) {
	cfg, err := app.NewConfig(c.cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// openApp creates the App and, when load is set, loads the definitions.
// The caller must Close the App.
func (c *command) openApp(ctx context.Context, cfg *app.Config, load bool) (*app.App, error) {
	a, err := app.NewApp(ctx, c.opts.Err, cfg, c.opts.Modules...)
	if err != nil {
		return nil, &ExitError{Code: 1, Message: fmt.Sprintf("A critical startup error occurred: %v", err)}
	}
	if load {
		if _, err := a.LoadDefinitions(ctx); err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
			return nil, &ExitError{Code: 1, Message: err.Error()}
		}
	}
	return a, nil
}
