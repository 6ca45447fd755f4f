// Package indexer keeps the index store in step with the document root.
//
// A full run walks every visible file, extracts its text and upserts one
// record per file. Per-file failures are recorded, never fatal. Only one run
// executes at a time: a second caller gets ErrAlreadyIndexing.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lexandro/docindex-mcp/extract"
	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/tree"
)

// ErrAlreadyIndexing is returned when a run is requested while another run,
// in this process or another one sharing the lock directory, is active.
var ErrAlreadyIndexing = errors.New("indexing already in progress")

// DefaultWorkers is the size of the extraction worker pool.
const DefaultWorkers = 8

const lockFileName = "reindex.lock"

// Options configures an Indexer.
type Options struct {
	Walker    *tree.Walker
	Store     index.Store
	Extractor extract.Extractor
	Logger    *slog.Logger
	Workers   int
	LockDir   string // holds the cross-process run lock; empty disables it
	OnChange  func() // called after the store may have changed
}

// Report summarizes one indexing run.
type Report struct {
	RunID            string        `json:"run_id"`
	FilesScanned     int           `json:"files_scanned"`
	FilesIndexed     int           `json:"files_indexed"`
	FilesFailed      int           `json:"files_failed"`
	FilesUnsupported int           `json:"files_unsupported"`
	FilesUnchanged   int           `json:"files_unchanged"`
	FilesPruned      int           `json:"files_pruned"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"-"`
	DurationMillis   int64         `json:"duration_ms"`
	Cancelled        bool          `json:"cancelled"`
}

// RunOptions tunes a single run.
type RunOptions struct {
	Force    bool                        // re-extract files whose size and mtime are unchanged
	Progress func(done int, path string) // called after each file; calls are serialized
}

// Indexer runs full and incremental indexing against a Store.
type Indexer struct {
	walker    *tree.Walker
	store     index.Store
	extractor extract.Extractor
	logger    *slog.Logger
	workers   int
	lockDir   string
	onChange  func()

	running atomic.Bool

	mu         sync.RWMutex
	lastReport *Report
}

// New creates an Indexer. Walker and Store are required.
func New(options Options) *Indexer {
	workers := options.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		walker:    options.Walker,
		store:     options.Store,
		extractor: options.Extractor,
		logger:    logger,
		workers:   workers,
		lockDir:   options.LockDir,
		onChange:  options.OnChange,
	}
}

// ReindexAll runs a full, incremental pass over the document root.
func (ix *Indexer) ReindexAll(ctx context.Context) (Report, error) {
	return ix.Run(ctx, RunOptions{})
}

// Run walks the document root and upserts a record for every visible file.
// A cancelled run returns the partial report with Cancelled set together with
// the context error; records written before cancellation stay valid. Records
// for files no longer on disk are pruned after a complete run.
func (ix *Indexer) Run(ctx context.Context, options RunOptions) (Report, error) {
	release, err := ix.acquire()
	if err != nil {
		return Report{}, err
	}
	defer release()

	report := Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	ix.logger.Info("indexing started", "runID", report.RunID, "root", ix.walker.Root(), "force", options.Force)
	defer ix.changed()

	var mu sync.Mutex
	seen := make(map[string]bool)
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	walkErr := ix.walker.Walk(gctx, func(entry tree.Entry) error {
		seen[entry.Path] = true
		report.FilesScanned++

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			outcome, err := ix.indexFile(gctx, entry.Path, entry.Size, entry.ModifiedAt, options.Force)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			report.tally(outcome)
			done++
			if options.Progress != nil {
				options.Progress(done, entry.Path)
			}
			return nil
		})
		return nil
	})
	waitErr := g.Wait()

	finish := func() {
		report.Duration = time.Since(report.StartedAt)
		report.DurationMillis = report.Duration.Milliseconds()
		ix.setLastReport(report)
	}

	switch {
	case waitErr != nil && ctx.Err() == nil:
		finish()
		ix.logger.Error("indexing aborted", "runID", report.RunID, "error", waitErr)
		return report, waitErr
	case ctx.Err() != nil:
		report.Cancelled = true
		finish()
		ix.logger.Info("indexing cancelled", "runID", report.RunID, "indexed", report.FilesIndexed, "scanned", report.FilesScanned)
		return report, ctx.Err()
	case walkErr != nil:
		finish()
		return report, fmt.Errorf("walking document root: %w", walkErr)
	}

	pruned, err := ix.prune(ctx, seen)
	report.FilesPruned = pruned
	if err != nil {
		finish()
		return report, err
	}

	finish()
	ix.logger.Info("indexing complete",
		"runID", report.RunID,
		"scanned", report.FilesScanned,
		"indexed", report.FilesIndexed,
		"unchanged", report.FilesUnchanged,
		"failed", report.FilesFailed,
		"unsupported", report.FilesUnsupported,
		"pruned", report.FilesPruned,
		"elapsed", report.Duration,
	)
	return report, nil
}

// outcome is the result of indexing one file.
type outcome struct {
	status    index.Status
	unchanged bool
	skipped   bool // file vanished before it could be read
}

func (r *Report) tally(o outcome) {
	if o.skipped {
		return
	}
	if o.unchanged {
		r.FilesUnchanged++
	}
	switch o.status {
	case index.StatusOK:
		r.FilesIndexed++
	case index.StatusUnsupported:
		r.FilesUnsupported++
	default:
		r.FilesFailed++
	}
}

// indexFile extracts one file and upserts its record. Only store failures
// and cancellation are returned as errors.
func (ix *Indexer) indexFile(ctx context.Context, rel string, size int64, modifiedAt time.Time, force bool) (outcome, error) {
	if !force {
		existing, found, err := ix.store.FindByPath(ctx, rel)
		if err != nil {
			return outcome{}, err
		}
		if found && existing.Unchanged(size, modifiedAt) {
			return outcome{status: existing.Status, unchanged: true}, nil
		}
	}

	doc := index.NewDocument(rel)
	doc.Size = size
	doc.ModifiedAt = modifiedAt

	format, supported := extract.DetectFormat(rel)
	doc.Format = format
	if !supported {
		doc.Status = index.StatusUnsupported
		doc.Reason = "unsupported format"
	} else {
		data, err := ix.walker.ReadFile(rel, ix.extractor.MaxBytes)
		switch {
		case errors.Is(err, tree.ErrNotFound):
			ix.logger.Debug("file vanished before indexing", "path", rel)
			if err := ix.store.Remove(ctx, rel); err != nil {
				return outcome{}, err
			}
			return outcome{skipped: true}, nil
		case errors.Is(err, tree.ErrTooLarge):
			doc.Status = index.StatusFailed
			doc.Reason = "file exceeds size limit"
		case err != nil:
			doc.Status = index.StatusFailed
			doc.Reason = "unreadable file"
			ix.logger.Warn("reading file failed", "path", rel, "error", err)
		default:
			text, extractErr := ix.extractor.Extract(ctx, data, format)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcome{}, ctxErr
			}
			ix.applyExtraction(doc, text, extractErr)
		}
	}

	doc.IndexedAt = time.Now()
	if err := ix.store.Upsert(ctx, doc); err != nil {
		return outcome{}, fmt.Errorf("storing %s: %w", rel, err)
	}
	return outcome{status: doc.Status}, nil
}

func (ix *Indexer) applyExtraction(doc *index.Document, text string, err error) {
	if err == nil {
		doc.Status = index.StatusOK
		doc.Content = text
		return
	}

	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		doc.Reason = extractErr.Reason
	} else {
		doc.Reason = err.Error()
	}
	if extract.KindOf(err) == extract.KindUnsupported {
		doc.Status = index.StatusUnsupported
	} else {
		doc.Status = index.StatusFailed
	}
	ix.logger.Debug("extraction failed", "path", doc.Path, "kind", extract.KindOf(err), "reason", doc.Reason)
}

// prune removes records for files that were not seen during the walk and
// are still absent, so files created mid-run by the watcher survive.
func (ix *Indexer) prune(ctx context.Context, seen map[string]bool) (int, error) {
	paths, err := ix.store.Paths(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing indexed paths: %w", err)
	}
	pruned := 0
	for _, path := range paths {
		if seen[path] || ix.walker.Exists(path) {
			continue
		}
		if err := ix.store.Remove(ctx, path); err != nil {
			return pruned, fmt.Errorf("pruning %s: %w", path, err)
		}
		ix.logger.Debug("pruned stale record", "path", path)
		pruned++
	}
	return pruned, nil
}

// IndexPath re-indexes a single file. A path that no longer names a visible
// file is removed from the store instead.
func (ix *Indexer) IndexPath(ctx context.Context, rel string) error {
	info, err := ix.walker.Stat(rel)
	if errors.Is(err, tree.ErrNotFound) {
		_, err := ix.RemovePath(ctx, rel)
		return err
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	_, err = ix.indexFile(ctx, rel, info.Size(), info.ModTime(), true)
	return err
}

// RemovePath deletes the record for rel and, when rel was a folder, every
// record beneath it. It returns the number of records removed.
func (ix *Indexer) RemovePath(ctx context.Context, rel string) (int, error) {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return 0, nil
	}
	paths, err := ix.store.Paths(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing indexed paths: %w", err)
	}
	prefix := rel + "/"
	removed := 0
	for _, path := range paths {
		if path != rel && !strings.HasPrefix(path, prefix) {
			continue
		}
		if err := ix.store.Remove(ctx, path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// Running reports whether a run or sync verification is in progress.
func (ix *Indexer) Running() bool {
	return ix.running.Load()
}

// LastReport returns the report of the most recent run, if any.
func (ix *Indexer) LastReport() (Report, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.lastReport == nil {
		return Report{}, false
	}
	return *ix.lastReport, true
}

func (ix *Indexer) setLastReport(report Report) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.lastReport = &report
}

func (ix *Indexer) changed() {
	if ix.onChange != nil {
		ix.onChange()
	}
}

// acquire claims the in-process flag, then the lock file shared with other
// processes using the same data directory.
func (ix *Indexer) acquire() (func(), error) {
	if !ix.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyIndexing
	}
	if ix.lockDir == "" {
		return func() { ix.running.Store(false) }, nil
	}

	if err := os.MkdirAll(ix.lockDir, 0o755); err != nil {
		ix.running.Store(false)
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fileLock := flock.New(filepath.Join(ix.lockDir, lockFileName))
	locked, err := fileLock.TryLock()
	if err != nil {
		ix.running.Store(false)
		return nil, fmt.Errorf("acquiring reindex lock: %w", err)
	}
	if !locked {
		ix.running.Store(false)
		return nil, ErrAlreadyIndexing
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			ix.logger.Warn("releasing reindex lock failed", "error", err)
		}
		ix.running.Store(false)
	}, nil
}
