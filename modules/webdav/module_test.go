package webdav

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebdav "golang.org/x/net/webdav"
)

type server struct {
	url string
	fs  xwebdav.FileSystem
}

func newServer(t *testing.T) *server {
	t.Helper()
	fs := xwebdav.NewMemFS()
	srv := httptest.NewServer(&xwebdav.Handler{FileSystem: fs, LockSystem: xwebdav.NewMemLS()})
	t.Cleanup(srv.Close)
	return &server{url: srv.URL, fs: fs}
}

func (s *server) write(t *testing.T, name, content string) {
	t.Helper()
	ctx := context.Background()
	f, err := s.fs.OpenFile(ctx, name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func (s *server) exists(name string) bool {
	_, err := s.fs.Stat(context.Background(), name)
	return err == nil
}

func (s *server) run(cfg action.Config) *action.Outcome {
	cfg["url"] = s.url
	return action.Run(context.Background(), new(Action), &action.Request{Config: cfg})
}

func TestAction_MkdirListCleanCheck(t *testing.T) {
	// --- Arrange ---
	s := newServer(t)
	require.NoError(t, s.fs.Mkdir(context.Background(), "/data", 0o755))

	// --- Act ---
	mkdir := s.run(action.Config{"action": "MKDIR", "srcFile": "/data/a/b"})

	// --- Assert ---
	require.True(t, mkdir.OK(), "traces: %v", mkdir.Traces)
	assert.True(t, s.exists("/data/a/b"))
	assert.Contains(t, mkdir.Traces, "Created sub-directory: /data/a")

	s.write(t, "/data/a/file.txt", "hello")
	list := s.run(action.Config{"action": "LIST", "srcFile": "/data/a/"})
	require.True(t, list.OK(), "traces: %v", list.Traces)
	entries := list.Outputs["webdav_response"].([]Entry)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = e.IsDir
	}
	assert.Equal(t, map[string]bool{"b": true, "file.txt": false}, names)

	found := s.run(action.Config{"action": "CHECK", "srcFile": "/data/a/file.txt"})
	require.True(t, found.OK())
	assert.Equal(t, true, found.Outputs["webdav_response"])

	clean := s.run(action.Config{"action": "CLEAN", "srcFile": "/data/a"})
	require.True(t, clean.OK(), "traces: %v", clean.Traces)
	assert.True(t, s.exists("/data/a"))
	assert.False(t, s.exists("/data/a/file.txt"))
	assert.False(t, s.exists("/data/a/b"))

	missing := s.run(action.Config{"action": "CHECK", "srcFile": "/data/a/file.txt"})
	require.True(t, missing.OK())
	assert.Equal(t, false, missing.Outputs["webdav_response"])
}

func TestAction_Transfers(t *testing.T) {
	// --- Arrange ---
	s := newServer(t)
	local := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(local, "tree", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(local, "tree", "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(local, "tree", "sub", "deep.txt"), []byte("deep"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(local, "tree", "sub", "empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(local, "tree", "bare"), 0o755))

	// --- Act ---
	up := s.run(action.Config{"action": "UPLOAD", "srcFile": filepath.Join(local, "tree"), "targFile": "/remote"})
	move := s.run(action.Config{"action": "MOVE", "srcFile": "/remote/top.txt", "targFile": "/remote/moved.txt"})
	dst := filepath.Join(local, "out", "deep.txt")
	down := s.run(action.Config{"action": "DOWNLOAD", "srcFile": "/remote/sub/deep.txt", "targFile": dst})
	info := s.run(action.Config{"action": "INFO", "srcFile": "/remote/moved.txt"})

	// --- Assert ---
	require.True(t, up.OK(), "traces: %v", up.Traces)
	assert.True(t, s.exists("/remote/bare"), "empty directory mirrored")
	assert.True(t, s.exists("/remote/sub/empty"), "nested empty directory mirrored")
	assert.Contains(t, up.Traces, "Uploaded directory "+filepath.Join(local, "tree")+" to /remote (2 files)")
	require.True(t, move.OK(), "traces: %v", move.Traces)
	assert.False(t, s.exists("/remote/top.txt"))
	assert.True(t, s.exists("/remote/moved.txt"))

	require.True(t, down.OK(), "traces: %v", down.Traces)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))

	require.True(t, info.OK(), "traces: %v", info.Traces)
	e := info.Outputs["webdav_response"].(Entry)
	assert.Equal(t, "moved.txt", e.Name)
	assert.Equal(t, int64(3), e.Size)
	assert.False(t, e.IsDir)
}

func TestAction_Failures(t *testing.T) {
	s := newServer(t)

	t.Run("missing remote file", func(t *testing.T) {
		out := s.run(action.Config{"action": "DOWNLOAD", "srcFile": "/nope", "targFile": filepath.Join(t.TempDir(), "x")})

		require.False(t, out.OK())
		var te *action.TransportError
		assert.ErrorAs(t, out.Err, &te)
	})

	t.Run("missing local file", func(t *testing.T) {
		out := s.run(action.Config{"action": "UPLOAD", "srcFile": filepath.Join(t.TempDir(), "nope"), "targFile": "/x"})

		require.False(t, out.OK())
		assert.ErrorIs(t, out.Err, os.ErrNotExist)
	})

	t.Run("move needs target", func(t *testing.T) {
		err := new(Action).Validate(action.Config{"url": s.url, "action": "MOVE", "srcFile": "/a"})

		var ve *action.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "targFile", ve.Field)
	})
}
