// Package watch triggers a reload when definition files change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
)

// DefaultDebounce is how long the watcher waits after the last event.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls Reload after a burst of changes under the watched paths.
type Watcher struct {
	Reload   func(ctx context.Context) error
	Debounce time.Duration
	// Exts limits the file extensions that trigger a reload. Empty means any.
	Exts []string

	watcher *fsnotify.Watcher
}

// New creates a watcher for paths. Directories are watched recursively;
// missing paths are ignored.
func New(paths []string, reload func(ctx context.Context) error, exts ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{Reload: reload, Debounce: DefaultDebounce, Exts: exts, watcher: fw}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		return w.addOne(path)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.addOne(p)
		}
		return nil
	})
}

func (w *Watcher) addOne(path string) error {
	if err := w.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", path, err)
	}
	return nil
}

// WatchList returns the watched files and directories.
func (w *Watcher) WatchList() []string {
	return w.watcher.WatchList()
}

func (w *Watcher) relevant(name string) bool {
	if len(w.Exts) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range w.Exts {
		if e == ext {
			return true
		}
	}
	return false
}

// Run handles file events until ctx is cancelled. Reload errors are logged
// and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	logger := ctxlog.FromContext(ctx)

	var (
		mu       sync.Mutex
		debounce *time.Timer
		// reloadMu serializes reloads; stopped is guarded by it.
		reloadMu sync.Mutex
		stopped  bool
	)
	defer func() {
		mu.Lock()
		if debounce != nil {
			debounce.Stop()
		}
		mu.Unlock()
		reloadMu.Lock()
		stopped = true
		reloadMu.Unlock()
	}()

	reload := func() {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		if err := w.Reload(ctx); err != nil {
			logger.Error("Hot reload failed.", "error", err)
			return
		}
		logger.Info("🔄 Definitions reloaded.")
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						logger.Warn("Cannot watch new directory.", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) || !w.relevant(event.Name) {
				continue
			}
			logger.Debug("Definition file changed.", "path", event.Name, "op", event.Op.String())

			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.Debounce, reload)
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}
