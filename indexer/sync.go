package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexandro/docindex-mcp/tree"
)

// SyncResult holds the outcome of a single sync verification run.
type SyncResult struct {
	MissingFiles  int // files on disk but not in the store
	StaleFiles    int // records whose file is gone or now ignored
	ModifiedFiles int // files whose size or mtime differs from the record
	Duration      time.Duration
}

// Changes returns the total number of discrepancies repaired.
func (r SyncResult) Changes() int {
	return r.MissingFiles + r.StaleFiles + r.ModifiedFiles
}

// RunPeriodic verifies the store against the disk at every interval until ctx
// is done. Ticks that land while a run is active are skipped.
func (ix *Indexer) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ix.logger.Info("periodic sync started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			result, err := ix.Verify(ctx)
			switch {
			case errors.Is(err, ErrAlreadyIndexing):
				ix.logger.Debug("sync skipped, indexing in progress")
			case err != nil:
				if ctx.Err() == nil {
					ix.logger.Warn("sync verification failed", "error", err)
				}
			case result.Changes() > 0:
				ix.logger.Info("sync verification complete",
					"missing", result.MissingFiles,
					"stale", result.StaleFiles,
					"modified", result.ModifiedFiles,
					"duration", result.Duration,
				)
			default:
				ix.logger.Debug("sync verification complete, index is in sync", "duration", result.Duration)
			}
		}
	}
}

// Verify compares the files on disk with the store and repairs every
// difference: missing files are indexed, stale records are removed and
// modified files are re-extracted. It holds the same run lock as Run.
func (ix *Indexer) Verify(ctx context.Context) (SyncResult, error) {
	release, err := ix.acquire()
	if err != nil {
		return SyncResult{}, err
	}
	defer release()

	start := time.Now()
	var result SyncResult

	// Build a set of all files currently on disk.
	diskFiles := make(map[string]tree.Entry)
	err = ix.walker.Walk(ctx, func(entry tree.Entry) error {
		diskFiles[entry.Path] = entry
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walking document root: %w", err)
	}

	indexedPaths, err := ix.store.Paths(ctx)
	if err != nil {
		return result, fmt.Errorf("listing indexed paths: %w", err)
	}
	indexedSet := make(map[string]bool, len(indexedPaths))
	for _, path := range indexedPaths {
		indexedSet[path] = true
	}
	defer ix.changed()

	// Stale records: in the store but not on disk.
	for _, path := range indexedPaths {
		if _, exists := diskFiles[path]; exists {
			continue
		}
		if err := ix.store.Remove(ctx, path); err != nil {
			return result, fmt.Errorf("removing stale %s: %w", path, err)
		}
		ix.logger.Info("sync: removed stale file", "path", path)
		result.StaleFiles++
	}

	for path, entry := range diskFiles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !indexedSet[path] {
			if _, err := ix.indexFile(ctx, path, entry.Size, entry.ModifiedAt, true); err != nil {
				return result, err
			}
			ix.logger.Info("sync: indexed missing file", "path", path)
			result.MissingFiles++
			continue
		}

		doc, found, err := ix.store.FindByPath(ctx, path)
		if err != nil {
			return result, err
		}
		if found && doc.Size == entry.Size && doc.ModifiedAt.Equal(entry.ModifiedAt) {
			continue
		}
		if _, err := ix.indexFile(ctx, path, entry.Size, entry.ModifiedAt, true); err != nil {
			return result, err
		}
		ix.logger.Info("sync: re-indexed modified file", "path", path)
		result.ModifiedFiles++
	}

	result.Duration = time.Since(start)
	return result, nil
}
