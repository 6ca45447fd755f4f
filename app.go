package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexandro/docindex-mcp/config"
	"github.com/lexandro/docindex-mcp/extract"
	"github.com/lexandro/docindex-mcp/ignore"
	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/lexandro/docindex-mcp/search"
	"github.com/lexandro/docindex-mcp/tree"
	"github.com/lexandro/docindex-mcp/watcher"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	walker    *tree.Walker
	store     index.Store
	indexer   *indexer.Indexer
	engine    *search.Engine
	startTime time.Time

	wg sync.WaitGroup
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	startTime := time.Now()

	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:        cfg.Root,
		CustomPatterns: cfg.Exclude,
	})
	walker, err := tree.New(cfg.Root, matcher)
	if err != nil {
		return nil, fmt.Errorf("opening document root: %w", err)
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	indexPath := cfg.IndexPath()
	if indexPath != "" && !filepath.IsAbs(indexPath) {
		indexPath = filepath.Join(cfg.Root, indexPath)
	}
	store, err := index.Open(index.Options{
		Backend: cfg.Index.Backend,
		Path:    indexPath,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening index store: %w", err)
	}

	engine := search.New(search.Options{
		Store:         store,
		Walker:        walker,
		Logger:        logger,
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		SnippetRadius: cfg.Search.SnippetRadius,
		CacheSize:     cfg.Search.CacheSize,
	})

	ix := indexer.New(indexer.Options{
		Walker: walker,
		Store:  store,
		Extractor: extract.Extractor{
			MaxBytes: cfg.Index.MaxFileSize,
			Timeout:  cfg.Index.ExtractTimeout,
		},
		Logger:   logger,
		Workers:  cfg.Index.Workers,
		LockDir:  cfg.DataDir,
		OnChange: engine.Invalidate,
	})

	logger.Info("document index ready",
		"root", walker.Root(),
		"backend", cfg.Index.Backend,
		"indexPath", indexPath,
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		walker:    walker,
		store:     store,
		indexer:   ix,
		engine:    engine,
		startTime: startTime,
	}, nil
}

// startBackground runs the initial index, the file watcher and the periodic
// sync as configured. All of them stop when ctx is done; Close waits for them.
func (a *app) startBackground(ctx context.Context) {
	if a.cfg.Index.IndexOnStart {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			report, err := a.indexer.ReindexAll(ctx)
			switch {
			case errors.Is(err, indexer.ErrAlreadyIndexing):
				a.logger.Info("initial indexing skipped, another run is active")
			case err != nil && ctx.Err() == nil:
				a.logger.Error("initial indexing failed", "error", err)
			case err == nil:
				a.logger.Info("initial indexing complete",
					"files", report.FilesIndexed,
					"failed", report.FilesFailed,
					"duration", report.Duration,
				)
			}
		}()
	}

	if a.cfg.Index.Watch {
		fileWatcher, err := watcher.NewWatcher(a.walker.Root(), a.walker, watcher.DefaultDebounceInterval, a.logger)
		if err != nil {
			a.logger.Warn("failed to start file watcher, continuing without live updates", "error", err)
		} else {
			a.wg.Add(2)
			go func() {
				defer a.wg.Done()
				fileWatcher.Start(ctx)
				fileWatcher.Close()
			}()
			go func() {
				defer a.wg.Done()
				a.indexer.HandleEvents(ctx, fileWatcher.Events())
			}()
		}
	}

	if a.cfg.Index.SyncInterval > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.indexer.RunPeriodic(ctx, a.cfg.Index.SyncInterval)
		}()
	}
}

// Close waits for background work started with a cancelled context and
// closes the store.
func (a *app) Close() error {
	a.wg.Wait()
	return a.store.Close()
}
