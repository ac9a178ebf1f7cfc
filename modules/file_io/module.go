// Package file_io provides the "io" action: local directory and file
// operations, usually inside the run's files_dir or work_dir.
package file_io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/fsutil"
	"github.com/specialistvlad/testgrid/internal/registry"
)

var operations = []string{"create_dir", "delete_dir", "delete_file", "write_variable", "read_variable", "list_files"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the io action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action performs one filesystem operation.
type Action struct{}

func (a *Action) PluginName() string { return "io" }

func (a *Action) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Performs input/output operations on the local filesystem"}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "operation", Type: action.FieldSelect, Label: "Operation", Required: true, Options: operations},
		{Name: "path", Type: action.FieldText, Label: "Path", Required: true, Placeholder: "{{files_dir}}/data.txt"},
		{Name: "variable_value", Type: action.FieldTextArea, Label: "File content (write_variable)"},
		{Name: "file_extension", Type: action.FieldText, Label: "File extension (list_files)", Placeholder: ".txt"},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "file_list", Type: "list", Description: "Files found (list_files)"},
		{Name: "file_content", Type: "string", Description: "File content (read_variable)"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	if err := action.ValidateFields("io", a.Inputs(), cfg); err != nil {
		return err
	}
	op := cfg.String("operation")
	if !slices.Contains(operations, op) {
		return action.Invalid("operation", "invalid operation %q (allowed: %s)", op, strings.Join(operations, ", "))
	}
	return nil
}

func (a *Action) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	cfg := req.Config
	out := action.NewOutcome()
	op := cfg.String("operation")
	p := cfg.String("path")
	ctxlog.FromContext(ctx).Debug("Running io operation.", "operation", op, "path", p)

	out.Tracef("Preparing I/O operation %s on %s", op, p)
	var err error
	switch op {
	case "create_dir":
		if err = os.MkdirAll(p, 0o755); err == nil {
			out.Tracef("Directory created: %s", p)
		}
	case "delete_dir":
		err = deleteDir(p, out)
	case "delete_file":
		err = deleteFile(p, out)
	case "write_variable":
		err = writeFile(p, cfg.String("variable_value"), out)
	case "read_variable":
		err = readFile(p, out)
	case "list_files":
		err = listFiles(p, fsutil.NormalizeExt(cfg.String("file_extension")), out)
	default:
		err = action.Invalid("operation", "unknown I/O operation: %s", op)
	}
	if err != nil {
		return out.Fail(err)
	}
	return out
}

func deleteDir(p string, out *action.Outcome) error {
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		out.Tracef("Directory does not exist: %s", p)
		return nil
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("path is not a directory: %s", p)
	}
	if err := os.RemoveAll(p); err != nil {
		return err
	}
	out.Tracef("Directory deleted: %s", p)
	return nil
}

func deleteFile(p string, out *action.Outcome) error {
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		out.Tracef("File does not exist: %s", p)
		return nil
	}
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("path is not a file: %s", p)
	}
	if err := os.Remove(p); err != nil {
		return err
	}
	out.Tracef("File deleted: %s", p)
	return nil
}

func writeFile(p, content string, out *action.Outcome) error {
	if dir := filepath.Dir(p); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return err
	}
	out.Tracef("Wrote %s to %s", humanize.Bytes(uint64(len(content))), p)
	return nil
}

func readFile(p string, out *action.Outcome) error {
	fi, err := os.Stat(p)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("path is not a file: %s", p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	out.Set("file_content", string(data))
	out.Tracef("Read %s from %s", humanize.Bytes(uint64(len(data))), p)
	return nil
}

// listFiles lists the regular files directly inside dir, sorted by name.
func listFiles(dir, ext string, out *action.Outcome) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	files := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ext) {
			files = append(files, e.Name())
		}
	}
	out.Set("file_list", files)
	out.Tracef("Listed %d file(s) in %s", len(files), dir)
	if ext != "" {
		out.Tracef("Filtered by extension: %s", ext)
	}
	return nil
}
