package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, paths []string, reload func(context.Context) error, exts ...string) *Watcher {
	t.Helper()
	w, err := New(paths, reload, exts...)
	require.NoError(t, err)
	w.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, []string{dir}, func(context.Context) error {
		calls.Add(1)
		return nil
	}, ".hcl")

	// --- Act ---
	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte{byte('a' + i)}, 0o644))
	}

	// --- Assert ---
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, []string{dir}, func(context.Context) error {
		calls.Add(1)
		return nil
	}, ".hcl", ".yaml")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Zero(t, calls.Load())
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	var calls atomic.Int32
	w := startWatcher(t, []string{dir, filepath.Join(dir, "missing")}, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	sub := filepath.Join(dir, "suite")

	// --- Act ---
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return len(w.WatchList()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "t.hcl"), []byte("x"), 0o644))

	// --- Assert ---
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
