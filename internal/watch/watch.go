// Package watch re-runs a handler when AST documents under a directory
// change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/funvibe/boxpiler/internal/logging"
)

// DefaultDebounce groups the bursts of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher follows a directory tree. fsnotify watches are not recursive,
// so every directory gets its own watch, including ones created later.
type Watcher struct {
	fs       *fsnotify.Watcher
	match    func(name string) bool
	debounce time.Duration
	logger   *slog.Logger
}

func New(match func(name string) bool, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{fs: w, match: match, debounce: debounce, logger: logger.With("component", "watch")}, nil
}

// Add watches root and every non-hidden directory below it.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) Close() error { return w.fs.Close() }

// Run calls handle with the sorted set of changed documents once events
// settle. It returns when ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, handle func(paths []string)) error {
	pending := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && isDir(ev.Name) {
				if err := w.Add(ev.Name); err != nil {
					w.logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
				}
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.match(filepath.Base(ev.Name)) {
				continue
			}
			w.logger.Debug("changed", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			handle(paths)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
