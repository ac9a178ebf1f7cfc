// Package ssh_command provides the "ssh" action: runs one command on a
// remote host over SSH.
package ssh_command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/registry"
	"github.com/specialistvlad/testgrid/internal/sshconn"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the ssh action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action runs a remote command.
type Action struct{}

func (a *Action) PluginName() string { return "ssh" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Runs a command on a remote host over SSH"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "host", Type: action.FieldText, Label: "Host", Required: true, Placeholder: "192.168.1.100"},
		{Name: "port", Type: action.FieldNumber, Label: "Port", Default: 22},
		{Name: "username", Type: action.FieldText, Label: "Username", Required: true},
		{Name: "password", Type: action.FieldPassword, Label: "Password", Required: true},
		{Name: "command", Type: action.FieldTextArea, Label: "Command", Required: true, Placeholder: "ls -la"},
		{Name: "timeout", Type: action.FieldNumber, Label: "Timeout (seconds)", Default: 30},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "ssh_exit_code", Type: "number", Description: "Exit code of the command"},
		{Name: "ssh_output", Type: "string", Description: "Standard output"},
		{Name: "ssh_error", Type: "string", Description: "Standard error"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	return action.ValidateFields("ssh", a.Inputs(), cfg)
}

func (a *Action) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	cfg := req.Config
	out := action.NewOutcome()

	port, err := cfg.Int("port", 22)
	if err != nil {
		return out.Fail(err)
	}
	secs, err := cfg.Int("timeout", 30)
	if err != nil {
		return out.Fail(err)
	}
	p := sshconn.Params{
		Host:     cfg.String("host"),
		Port:     port,
		User:     cfg.String("username"),
		Password: cfg.String("password"),
		Timeout:  time.Duration(secs) * time.Second,
	}
	command := cfg.String("command")
	logger := ctxlog.FromContext(ctx).With("host", p.Addr(), "user", p.User)

	ctx, cancel := p.Bound(ctx)
	defer cancel()

	out.Tracef("SSH connection to %s@%s", p.User, p.Addr())
	client, err := sshconn.Dial(ctx, p)
	if err != nil {
		return out.Fail(action.Transport("ssh connect", sshconn.Cause(ctx, err)))
	}
	defer client.Close()
	stop := sshconn.CloseOnDone(ctx, client)
	defer stop()
	out.Tracef("Connection established")

	session, err := client.NewSession()
	if err != nil {
		return out.Fail(action.Transport("ssh session", err))
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	out.Tracef("Running command: %s", command)
	logger.Debug("Running remote command.")
	exitCode := 0
	if err := session.Run(command); err != nil {
		var ee *ssh.ExitError
		if ctx.Err() != nil || !errors.As(err, &ee) {
			return out.Fail(action.Transport("ssh run", sshconn.Cause(ctx, err)))
		}
		exitCode = ee.ExitStatus()
	}

	out.Set("ssh_exit_code", exitCode)
	out.Set("ssh_output", stdout.String())
	out.Set("ssh_error", stderr.String())
	out.Tracef("Exit code: %d", exitCode)
	out.Result = map[string]any{"exit_code": exitCode, "output": action.Truncate(stdout.String(), 1000)}

	if exitCode != 0 {
		return out.Fail(fmt.Errorf("command exited with code %d: %s", exitCode, action.Truncate(stderr.String(), 500)))
	}
	out.Tracef("Command succeeded")
	return out
}
