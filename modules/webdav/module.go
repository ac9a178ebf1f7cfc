// Package webdav provides the "webdav" action: inspection, directory
// management and file transfer against a WebDAV server.
package webdav

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/registry"
)

const defaultTimeout = 30 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the webdav action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action runs one WebDAV operation.
type Action struct{}

func (a *Action) PluginName() string { return "webdav" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Performs WebDAV operations on a remote server"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "url", Type: action.FieldText, Label: "WebDAV URL", Required: true, Placeholder: "https://dav.example.com/remote.php/webdav"},
		{Name: "username", Type: action.FieldText, Label: "Username"},
		{Name: "password", Type: action.FieldPassword, Label: "Password"},
		{Name: "action", Type: action.FieldSelect, Label: "Operation", Required: true,
			Options: []string{"CHECK", "INFO", "LIST", "MKDIR", "CLEAN", "MOVE", "DOWNLOAD", "UPLOAD"}},
		{Name: "srcFile", Type: action.FieldText, Label: "Source path", Placeholder: "/remote/dir or local path for UPLOAD"},
		{Name: "targFile", Type: action.FieldText, Label: "Target path", Placeholder: "/remote/target or local path for DOWNLOAD"},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "webdav_response", Type: "any", Description: "Result of the operation"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	if err := action.ValidateFields("webdav", a.Inputs(), cfg); err != nil {
		return err
	}
	switch cfg.Upper("action") {
	case "INFO", "LIST", "MKDIR", "CLEAN":
		if !cfg.Has("srcFile") {
			return action.Missing("srcFile")
		}
	case "MOVE", "DOWNLOAD", "UPLOAD":
		if !cfg.Has("srcFile") {
			return action.Missing("srcFile")
		}
		if !cfg.Has("targFile") {
			return action.Missing("targFile")
		}
	}
	return nil
}

// Entry describes one remote resource.
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path,omitempty"`
	Size        int64     `json:"size"`
	IsDir       bool      `json:"is_dir"`
	ContentType string    `json:"content_type,omitempty"`
	ModTime     time.Time `json:"mod_time"`
}

func entryOf(dir string, fi os.FileInfo) Entry {
	e := Entry{Name: fi.Name(), Size: fi.Size(), IsDir: fi.IsDir(), ModTime: fi.ModTime(), Path: path.Join(dir, fi.Name())}
	if f, ok := fi.(*gowebdav.File); ok {
		e.ContentType = f.ContentType()
	}
	return e
}

func (a *Action) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	cfg := req.Config
	out := action.NewOutcome()
	op := cfg.Upper("action")
	src := cfg.String("srcFile")
	targ := cfg.String("targFile")
	url := cfg.String("url")
	logger := ctxlog.FromContext(ctx).With("url", url, "action", op)

	out.Tracef("Preparing WebDAV %s on %s", op, url)
	user := cfg.String("username")
	if user != "" {
		out.Tracef("Authenticating as %s", user)
	}
	c := gowebdav.NewClient(url, user, cfg.String("password"))
	c.SetTimeout(defaultTimeout)

	if err := ctx.Err(); err != nil {
		return out.Fail(err)
	}

	var (
		resp any = true
		err  error
	)
	switch op {
	case "CHECK":
		resp, err = check(c, src, out)
	case "INFO":
		var fi os.FileInfo
		if fi, err = c.Stat(src); err == nil {
			e := entryOf(path.Dir(strings.TrimSuffix(src, "/")), fi)
			out.Tracef("Info for %s: %d bytes, dir=%t", src, e.Size, e.IsDir)
			resp = e
		}
	case "LIST":
		var infos []os.FileInfo
		if infos, err = c.ReadDir(src); err == nil {
			entries := make([]Entry, 0, len(infos))
			for _, fi := range infos {
				entries = append(entries, entryOf(src, fi))
			}
			out.Tracef("Listed %d entries in %s", len(entries), src)
			resp = entries
		}
	case "MKDIR":
		if err = mkdirAll(c, src, out); err == nil {
			out.Tracef("Directory created: %s", src)
		}
	case "CLEAN":
		if err = clean(c, src); err == nil {
			out.Tracef("Contents removed from: %s", src)
		}
	case "MOVE":
		if err = c.Rename(src, targ, true); err == nil {
			out.Tracef("Moved %s to %s", src, targ)
		}
	case "DOWNLOAD":
		var n int64
		if n, err = download(c, src, targ); err == nil {
			out.Tracef("Downloaded %s to %s (%d bytes)", src, targ, n)
		}
	case "UPLOAD":
		err = upload(c, src, targ, out)
	default:
		return out.Fail(action.Invalid("action", "unknown WebDAV action: %s", op))
	}
	if err != nil {
		logger.Debug("WebDAV operation failed.", "error", err)
		return out.Fail(action.Transport("webdav "+op, err))
	}
	out.Set("webdav_response", resp)
	out.Result = resp
	return out
}

// check verifies the server answers; with a path it reports whether the
// path exists.
func check(c *gowebdav.Client, p string, out *action.Outcome) (bool, error) {
	if p == "" {
		if err := c.Connect(); err != nil {
			return false, err
		}
		out.Tracef("Server reachable")
		return true, nil
	}
	_, err := c.Stat(p)
	switch {
	case err == nil:
		out.Tracef("Checked %s: exists", p)
		return true, nil
	case gowebdav.IsErrNotFound(err):
		out.Tracef("Checked %s: does not exist", p)
		return false, nil
	default:
		return false, err
	}
}

// mkdirAll creates p one segment at a time, skipping segments that exist.
func mkdirAll(c *gowebdav.Client, p string, out *action.Outcome) error {
	cur := ""
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		if fi, err := c.Stat(cur); err == nil && fi.IsDir() {
			continue
		}
		if err := c.Mkdir(cur, 0o755); err != nil {
			if alreadyExists(err) {
				out.Tracef("Directory %s already exists", cur)
				continue
			}
			return fmt.Errorf("create %s: %w", cur, err)
		}
		out.Tracef("Created sub-directory: %s", cur)
	}
	return nil
}

func alreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "exists") || strings.Contains(msg, "already") || strings.Contains(msg, "405")
}

func clean(c *gowebdav.Client, dir string) error {
	infos, err := c.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, fi := range infos {
		if err := c.RemoveAll(path.Join(dir, fi.Name())); err != nil {
			return err
		}
	}
	return nil
}

func download(c *gowebdav.Client, remote, local string) (int64, error) {
	r, err := c.ReadStream(remote)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(local)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func upload(c *gowebdav.Client, local, remote string, out *action.Outcome) error {
	fi, err := os.Stat(local)
	if err != nil {
		return fmt.Errorf("local path %q: %w", local, err)
	}
	if !fi.IsDir() {
		if err := putFile(c, local, remote); err != nil {
			return err
		}
		out.Tracef("Uploaded file %s to %s", local, remote)
		return nil
	}

	files := 0
	err = filepath.WalkDir(local, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(local, p)
		if err != nil {
			return err
		}
		dst := path.Join(remote, filepath.ToSlash(rel))
		if d.IsDir() {
			return mkdirAll(c, dst, out)
		}
		if err := putFile(c, p, dst); err != nil {
			return err
		}
		files++
		out.Tracef("Uploaded file: %s", dst)
		return nil
	})
	if err != nil {
		return err
	}
	out.Tracef("Uploaded directory %s to %s (%d files)", local, remote, files)
	return nil
}

func putFile(c *gowebdav.Client, local, remote string) error {
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.WriteStream(remote, f, 0o644)
}
