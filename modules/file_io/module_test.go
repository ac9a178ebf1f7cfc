package file_io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(cfg action.Config) *action.Outcome {
	return action.Run(context.Background(), new(Action), &action.Request{Config: cfg})
}

func TestAction_WriteReadList(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	file := filepath.Join(root, "nested", "out.txt")

	// --- Act ---
	write := run(action.Config{"operation": "write_variable", "path": file, "variable_value": "payload"})
	read := run(action.Config{"operation": "read_variable", "path": file})
	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "b.log"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "nested", "dir.txt"), 0o755))
	listAll := run(action.Config{"operation": "list_files", "path": filepath.Join(root, "nested")})
	listTxt := run(action.Config{"operation": "list_files", "path": filepath.Join(root, "nested"), "file_extension": "txt"})

	// --- Assert ---
	require.True(t, write.OK(), "traces: %v", write.Traces)
	require.True(t, read.OK(), "traces: %v", read.Traces)
	assert.Equal(t, "payload", read.Outputs["file_content"])
	assert.Equal(t, []string{"b.log", "out.txt"}, listAll.Outputs["file_list"])
	assert.Equal(t, []string{"out.txt"}, listTxt.Outputs["file_list"])
	assert.Contains(t, listTxt.Traces, "Filtered by extension: .txt")
}

func TestAction_DirectoriesAndDeletes(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b")
	file := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	create := run(action.Config{"operation": "create_dir", "path": dir})
	require.True(t, create.OK())
	assert.DirExists(t, dir)

	wrongKind := run(action.Config{"operation": "delete_dir", "path": file})
	assert.False(t, wrongKind.OK())
	assert.FileExists(t, file)

	delDir := run(action.Config{"operation": "delete_dir", "path": filepath.Join(root, "a")})
	require.True(t, delDir.OK())
	assert.NoDirExists(t, filepath.Join(root, "a"))

	delFile := run(action.Config{"operation": "delete_file", "path": file})
	require.True(t, delFile.OK())
	assert.NoFileExists(t, file)

	again := run(action.Config{"operation": "delete_file", "path": file})
	require.True(t, again.OK())
	assert.Contains(t, again.Traces, "File does not exist: "+file)
}

func TestAction_ReadMissingFails(t *testing.T) {
	out := run(action.Config{"operation": "read_variable", "path": filepath.Join(t.TempDir(), "nope")})

	require.False(t, out.OK())
	assert.ErrorIs(t, out.Err, os.ErrNotExist)
}

func TestAction_Validate(t *testing.T) {
	err := new(Action).Validate(action.Config{"operation": "chmod", "path": "/tmp"})

	var ve *action.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "operation", ve.Field)
}
