// Package ftp_transfer provides the "ftp" action: GET, PUT, DELETE and LIST
// against a plain FTP server.
package ftp_transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/registry"
)

const defaultTimeout = 30 * time.Second

// Conn is the subset of an FTP session the action needs.
type Conn interface {
	Login(user, password string) error
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	Delete(path string) error
	List(path string) ([]*ftp.Entry, error)
	Quit() error
}

// DialFunc opens an unauthenticated session to addr.
type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (Conn, error)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the ftp action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action runs one FTP operation. A nil Dial uses a real connection.
type Action struct {
	Dial DialFunc
}

func (a *Action) PluginName() string { return "ftp" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Performs FTP operations on a remote server"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "method", Type: action.FieldSelect, Label: "FTP method", Required: true, Options: []string{"GET", "PUT", "DELETE", "LIST"}},
		{Name: "host", Type: action.FieldText, Label: "FTP host", Required: true, Placeholder: "ftp.example.com"},
		{Name: "port", Type: action.FieldNumber, Label: "Port", Default: 21},
		{Name: "username", Type: action.FieldText, Label: "Username", Required: true},
		{Name: "password", Type: action.FieldPassword, Label: "Password", Required: true},
		{Name: "remote_path", Type: action.FieldText, Label: "Remote path", Required: true, Placeholder: "/path/to/file.txt"},
		{Name: "content", Type: action.FieldTextArea, Label: "File content (PUT)"},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "ftp_file_content", Type: "string", Description: "Downloaded file content (GET)"},
		{Name: "ftp_file_size", Type: "number", Description: "File size in bytes"},
		{Name: "ftp_file_list", Type: "string", Description: "Directory listing, one entry per line (LIST)"},
		{Name: "ftp_operation_success", Type: "string", Description: "Whether the operation succeeded (true/false)"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	return action.ValidateFields("ftp", a.Inputs(), cfg)
}

func (a *Action) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	cfg := req.Config
	out := action.NewOutcome()
	out.Set("ftp_file_content", "")
	out.Set("ftp_file_size", 0)
	out.Set("ftp_file_list", "")
	out.Set("ftp_operation_success", "false")

	port, err := cfg.Int("port", 21)
	if err != nil {
		return out.Fail(err)
	}
	addr := net.JoinHostPort(cfg.String("host"), strconv.Itoa(port))
	method := cfg.Upper("method")
	remote := cfg.String("remote_path")
	logger := ctxlog.FromContext(ctx).With("addr", addr, "method", method, "path", remote)

	dial := a.Dial
	if dial == nil {
		dial = dialServer
	}

	out.Tracef("FTP connection to %s", addr)
	conn, err := dial(ctx, addr, defaultTimeout)
	if err != nil {
		return out.Fail(action.Transport("ftp connect", err))
	}
	defer func() {
		conn.Quit()
		out.Tracef("FTP connection closed")
	}()
	if err := conn.Login(cfg.String("username"), cfg.String("password")); err != nil {
		return out.Fail(action.Transport("ftp login", err))
	}
	out.Tracef("Connection established")

	switch method {
	case "GET":
		err = get(conn, remote, out)
	case "PUT":
		content := cfg.String("content")
		out.Tracef("Uploading file to: %s", remote)
		if err = conn.Stor(remote, strings.NewReader(content)); err == nil {
			out.Set("ftp_file_size", len(content))
			out.Tracef("File uploaded (%d bytes)", len(content))
			out.Result = map[string]any{"uploaded": true, "size": len(content)}
		}
	case "DELETE":
		out.Tracef("Deleting file: %s", remote)
		if err = conn.Delete(remote); err == nil {
			out.Tracef("File deleted")
			out.Result = map[string]any{"deleted": true}
		}
	case "LIST":
		err = list(conn, remote, out)
	default:
		return out.Fail(action.Invalid("method", "unsupported FTP method: %s", method))
	}
	if err != nil {
		logger.Debug("FTP operation failed.", "error", err)
		return out.Fail(action.Transport("ftp "+method, err))
	}
	out.Set("ftp_operation_success", "true")
	return out
}

func get(conn Conn, remote string, out *action.Outcome) error {
	out.Tracef("Downloading file: %s", remote)
	r, err := conn.Retr(remote)
	if err != nil {
		return err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	out.Set("ftp_file_content", string(data))
	out.Set("ftp_file_size", len(data))
	out.Tracef("File downloaded (%d bytes)", len(data))
	out.Result = map[string]any{"size": len(data)}
	return nil
}

func list(conn Conn, remote string, out *action.Outcome) error {
	out.Tracef("Listing files in: %s", remote)
	entries, err := conn.List(remote)
	if err != nil {
		return err
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatEntry(e))
	}
	out.Set("ftp_file_list", strings.Join(lines, "\n"))
	out.Tracef("Listing retrieved (%d entries)", len(entries))
	out.Result = map[string]any{"files": lines, "count": len(entries)}
	return nil
}

func formatEntry(e *ftp.Entry) string {
	kind := "-"
	switch e.Type {
	case ftp.EntryTypeFolder:
		kind = "d"
	case ftp.EntryTypeLink:
		kind = "l"
	}
	return fmt.Sprintf("%s %10d %s", kind, e.Size, e.Name)
}

type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	return c.ServerConn.Retr(path)
}

func dialServer(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
	c, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return serverConn{c}, nil
}
