// Package watch implements the recursive, debounced filesystem watcher
// that triggers incremental reindexing while the query server runs.
package watch

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dullfig/claude-rlm/internal/index"
	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/symbols"
)

const debounceWindow = 500 * time.Millisecond

// Watcher recursively watches root and coalesces bursts of filesystem
// events behind a single re-armed timer: after the first event, additional
// events reset the window until debounceWindow elapses with no new
// arrival, then the accumulated set of paths is reindexed in one batch.
type Watcher struct {
	fsw    *fsnotify.Watcher
	db     *sql.DB
	root   string
	logger *slog.Logger
}

// New creates a Watcher over root's directory tree (skipping the same
// vendored/cache directories the code indexer skips).
func New(db *sql.DB, root string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, db: db, root: root, logger: logger}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort: skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func skipDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", "dist", "build", "target",
		".venv", "venv", "__pycache__", ".mypy_cache", ".pytest_cache",
		".idea", ".vscode", ".claude":
		return true
	}
	return false
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() {
	_ = w.fsw.Close()
}

// Run blocks until ctx is cancelled, debouncing events and reindexing
// affected files in batches. All errors are logged and swallowed — a
// watcher failure never brings the server down.
func (w *Watcher) Run(ctx context.Context) {
	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !symbols.SupportsExt(event.Name) {
				continue
			}
			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timerC:
			w.flush(ctx, pending)
			pending = make(map[string]bool)
			timerC = nil
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]bool) {
	for path := range pending {
		if _, err := os.Stat(path); err != nil {
			if err := store.DeleteFileSymbols(ctx, w.db, path); err != nil {
				w.logger.Warn("file watcher: purge symbols failed", "path", path, "error", err)
			}
			continue
		}
		if err := index.IndexFile(ctx, w.db, path); err != nil {
			w.logger.Warn("file watcher: reindex failed", "path", path, "error", err)
		}
	}
}
