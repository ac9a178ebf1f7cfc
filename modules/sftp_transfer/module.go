// Package sftp_transfer provides the "sftp" action: GET, PUT, DELETE and
// LIST on a remote host through the SSH file transfer subsystem.
package sftp_transfer

import (
	"context"
	"io"
	"time"

	"github.com/pkg/sftp"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/registry"
	"github.com/specialistvlad/testgrid/internal/sshconn"
)

const (
	maxListed  = 50
	maxContent = 1000
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the sftp action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action runs one SFTP operation.
type Action struct{}

func (a *Action) PluginName() string { return "sftp" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Performs SFTP operations on a remote server"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "method", Type: action.FieldSelect, Label: "SFTP method", Required: true, Options: []string{"GET", "PUT", "DELETE", "LIST"}},
		{Name: "host", Type: action.FieldText, Label: "SFTP host", Required: true, Placeholder: "sftp.example.com"},
		{Name: "port", Type: action.FieldNumber, Label: "Port", Default: 22},
		{Name: "username", Type: action.FieldText, Label: "Username", Required: true},
		{Name: "password", Type: action.FieldPassword, Label: "Password", Required: true},
		{Name: "remote_path", Type: action.FieldText, Label: "Remote path", Required: true, Placeholder: "/path/to/file.txt"},
		{Name: "content", Type: action.FieldTextArea, Label: "File content (PUT)"},
		{Name: "timeout", Type: action.FieldNumber, Label: "Timeout (seconds)", Default: 30},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "sftp_file_content", Type: "string", Description: "Downloaded file content (GET)"},
		{Name: "sftp_file_size", Type: "number", Description: "File size in bytes"},
		{Name: "sftp_file_list", Type: "string", Description: "Directory listing (LIST)"},
		{Name: "sftp_operation_success", Type: "string", Description: "Whether the operation succeeded (true/false)"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	return action.ValidateFields("sftp", a.Inputs(), cfg)
}

// Entry is one line of a LIST result.
type Entry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir"`
}

func (a *Action) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	cfg := req.Config
	out := action.NewOutcome()
	out.Set("sftp_operation_success", "false")

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
	method := cfg.Upper("method")
	remote := cfg.String("remote_path")
	logger := ctxlog.FromContext(ctx).With("host", p.Addr(), "method", method, "path", remote)

	ctx, cancel := p.Bound(ctx)
	defer cancel()

	out.Tracef("SFTP connection to %s@%s", p.User, p.Addr())
	conn, err := sshconn.Dial(ctx, p)
	if err != nil {
		return out.Fail(action.Transport("sftp connect", sshconn.Cause(ctx, err)))
	}
	defer conn.Close()
	stop := sshconn.CloseOnDone(ctx, conn)
	defer stop()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return out.Fail(action.Transport("sftp session", sshconn.Cause(ctx, err)))
	}
	defer func() {
		client.Close()
		out.Tracef("SFTP session closed")
	}()
	out.Tracef("SFTP connection established")
	logger.Debug("SFTP session open.")

	start := time.Now()
	switch method {
	case "GET":
		err = get(client, remote, out)
	case "PUT":
		err = put(client, remote, cfg.String("content"), out)
	case "DELETE":
		out.Tracef("Deleting file: %s", remote)
		if err = client.Remove(remote); err == nil {
			out.Tracef("File deleted")
			out.Result = map[string]any{"deleted": true}
		}
	case "LIST":
		err = list(client, remote, out)
	default:
		return out.Fail(action.Invalid("method", "unsupported SFTP method: %s", method))
	}
	if err != nil {
		return out.Fail(action.Transport("sftp "+method, sshconn.Cause(ctx, err)))
	}
	logger.Debug("SFTP operation done.", "duration", time.Since(start))
	out.Set("sftp_operation_success", "true")
	return out
}

func get(c *sftp.Client, remote string, out *action.Outcome) error {
	out.Tracef("Downloading file: %s", remote)
	f, err := c.Open(remote)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	info, err := c.Stat(remote)
	if err != nil {
		return err
	}
	content := string(data)
	out.Set("sftp_file_content", content)
	out.Set("sftp_file_size", info.Size())
	out.Tracef("File downloaded (%d bytes)", info.Size())
	out.Result = map[string]any{"content": action.Truncate(content, maxContent), "size": info.Size()}
	return nil
}

func put(c *sftp.Client, remote, content string, out *action.Outcome) error {
	out.Tracef("Uploading file to: %s", remote)
	f, err := c.Create(remote)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	out.Set("sftp_file_size", len(content))
	out.Tracef("File uploaded (%d bytes)", len(content))
	out.Result = map[string]any{"uploaded": true, "size": len(content)}
	return nil
}

func list(c *sftp.Client, remote string, out *action.Outcome) error {
	out.Tracef("Listing files in: %s", remote)
	infos, err := c.ReadDir(remote)
	if err != nil {
		return err
	}
	entries := make([]Entry, 0, min(len(infos), maxListed))
	for _, fi := range infos {
		if len(entries) == maxListed {
			break
		}
		entries = append(entries, Entry{Name: fi.Name(), Size: fi.Size(), IsDir: fi.IsDir()})
	}
	out.Set("sftp_file_list", entries)
	out.Tracef("Listing retrieved (%d entries)", len(infos))
	out.Result = map[string]any{"files": entries, "count": len(infos)}
	return nil
}
