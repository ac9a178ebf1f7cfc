package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_CreateAndDelete(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	l, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	// --- Act ---
	p, err := l.Create(ctx, "c1")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "c1", "files"), p.Files)
	assert.Equal(t, filepath.Join(root, "c1", "work"), p.Work)
	assert.DirExists(t, p.Files)
	assert.DirExists(t, p.Work)

	_, err = l.Create(ctx, "c1")
	require.NoError(t, err, "create is idempotent")

	require.NoError(t, l.Delete(ctx, "c1"))
	assert.NoDirExists(t, p.Root)
	assert.NoError(t, l.Delete(ctx, "c1"))
}

func TestLocal_RejectsPathLikeIDs(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := l.Create(context.Background(), id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestLocal_CleanupOrphans(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	l, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()
	for _, id := range []string{"keep", "gone1", "gone2"} {
		_, err := l.Create(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	// --- Act ---
	removed, err := l.CleanupOrphans(ctx, []string{"keep"})

	// --- Assert ---
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gone1", "gone2"}, removed)
	assert.DirExists(t, filepath.Join(root, "keep"))
	assert.FileExists(t, filepath.Join(root, "notes.txt"))
}

func TestLocal_CleanupOrphansMissingRoot(t *testing.T) {
	l, err := NewLocal(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	removed, err := l.CleanupOrphans(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, removed)
}
