package tree

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
)

// SkipAll stops a Walk early without reporting an error.
var SkipAll = fs.SkipAll

// WalkFunc is called for every visible regular file. Returning SkipAll stops
// the walk cleanly; any other error stops it and is returned from Walk.
type WalkFunc func(entry Entry) error

// Walk enumerates every visible regular file under the root in lexical order.
// Symlinks are never followed and unreadable subdirectories are skipped.
// The context is checked before each entry.
func (w *Walker) Walk(ctx context.Context, fn WalkFunc) error {
	err := filepath.WalkDir(w.root, func(absolutePath string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() && absolutePath != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if absolutePath == w.root {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, ok := w.Rel(absolutePath)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if w.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || w.Ignored(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		return fn(newEntry(rel, parentOf(rel), info))
	})
	if errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}
