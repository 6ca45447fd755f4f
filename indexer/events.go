package indexer

import (
	"context"
	"errors"

	"github.com/lexandro/docindex-mcp/ignore"
	"github.com/lexandro/docindex-mcp/watcher"
)

// HandleEvents applies debounced watcher batches to the store until ctx is
// done. A change to the ignore file reloads the rules and runs a sync
// verification, which indexes newly visible files and drops newly hidden ones.
func (ix *Indexer) HandleEvents(ctx context.Context, events <-chan []watcher.DebouncedEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			ix.ApplyEvents(ctx, batch)
		}
	}
}

// ApplyEvents applies one batch of watcher events.
func (ix *Indexer) ApplyEvents(ctx context.Context, batch []watcher.DebouncedEvent) {
	reloaded := false
	for _, event := range batch {
		if event.Path == ignore.IgnoreFileName {
			if matcher := ix.walker.Matcher(); matcher != nil {
				matcher.Reload()
				reloaded = true
				ix.logger.Info("reloaded ignore rules", "trigger", event.Path)
			}
			continue
		}

		switch event.Op {
		case watcher.OpRemove, watcher.OpRename:
			removed, err := ix.RemovePath(ctx, event.Path)
			if err != nil {
				ix.logger.Warn("removing from index failed", "path", event.Path, "error", err)
				continue
			}
			if removed > 0 {
				ix.logger.Debug("removed from index", "path", event.Path, "records", removed)
			}

		case watcher.OpCreate, watcher.OpWrite:
			if err := ix.IndexPath(ctx, event.Path); err != nil {
				ix.logger.Warn("updating index failed", "path", event.Path, "error", err)
				continue
			}
			ix.logger.Debug("updated index", "path", event.Path)
		}
	}

	if reloaded {
		result, err := ix.Verify(ctx)
		switch {
		case errors.Is(err, ErrAlreadyIndexing):
			ix.logger.Debug("ignore rules changed during a run; next run applies them")
		case err != nil:
			ix.logger.Warn("sync after ignore change failed", "error", err)
		default:
			ix.logger.Info("applied ignore rules", "indexed", result.MissingFiles, "removed", result.StaleFiles)
		}
	}
	ix.changed()
}
