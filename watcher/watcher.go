// Package watcher reports settled changes under the document root.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lexandro/docindex-mcp/ignore"
)

// DefaultDebounceInterval is long enough to absorb the multi-step saves of
// office suites.
const DefaultDebounceInterval = 300 * time.Millisecond

// PathFilter maps absolute paths onto the document root and hides ignored entries.
// *tree.Walker implements it.
type PathFilter interface {
	Rel(absolutePath string) (string, bool)
	Ignored(rel string, isDir bool) bool
}

// Watcher provides recursive file system watching with debouncing.
// Emitted paths are slash-separated and relative to the root.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	filter    PathFilter
	rootDir   string
	logger    *slog.Logger
}

// NewWatcher creates a recursive watcher on rootDir and registers every
// visible subdirectory. A zero interval selects DefaultDebounceInterval.
func NewWatcher(rootDir string, filter PathFilter, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(interval),
		filter:    filter,
		rootDir:   rootDir,
		logger:    logger,
	}
	if err := w.addTree(rootDir, false); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and its visible subdirectories. With emitFiles set, the
// files already inside are reported as created, since a directory moved into
// the root arrives as a single event.
func (w *Watcher) addTree(dir string, emitFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, ok := w.filter.Rel(path)
		if !ok {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.IsDir() {
			if emitFiles && d.Type().IsRegular() && !w.filter.Ignored(rel, false) {
				w.debouncer.Add(rel, OpCreate)
			}
			return nil
		}
		if rel != "" && w.filter.Ignored(rel, true) {
			return filepath.SkipDir
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
}

// Events returns the channel that receives debounced file system events.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start listens for file system events until ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent converts one fsnotify event into a debounced event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, ok := w.filter.Rel(event.Name)
	if !ok || rel == "" {
		return
	}

	if event.Has(fsnotify.Create) {
		info, err := os.Lstat(event.Name)
		if err == nil && info.IsDir() {
			if !w.filter.Ignored(rel, true) {
				if err := w.addTree(event.Name, true); err != nil {
					w.logger.Warn("failed to watch new directory", "path", rel, "error", err)
				}
			}
			return
		}
	}

	// The ignore file is hidden but its changes still matter.
	if rel != ignore.IgnoreFileName && w.filter.Ignored(rel, false) {
		return
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(rel, op)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
