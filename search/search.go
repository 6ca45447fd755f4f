// Package search matches a query against file names and extracted content.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/tree"
)

// ErrUnavailable wraps store failures. Callers may retry.
var ErrUnavailable = errors.New("search unavailable")

// MinQueryLength is the shortest query, in runes after trimming, that is executed.
const MinQueryLength = 2

const (
	DefaultLimit         = 50
	DefaultMaxLimit      = 500
	DefaultSnippetRadius = 40
	DefaultCacheSize     = 256
)

// MatchType tells where a result matched.
type MatchType string

const (
	MatchFileName MatchType = "filename"
	MatchContent  MatchType = "content"
	MatchBoth     MatchType = "both"
)

// rank orders match types: both before filename before content.
func (m MatchType) rank() int {
	switch m {
	case MatchBoth:
		return 3
	case MatchFileName:
		return 2
	case MatchContent:
		return 1
	default:
		return 0
	}
}

// Query is a search request. Limit <= 0 selects the default limit.
type Query struct {
	Text  string
	Limit int
}

// Result is one matching file.
type Result struct {
	Path      string    `json:"path"`
	FileName  string    `json:"file_name"`
	MatchType MatchType `json:"match_type"`
	Snippet   string    `json:"snippet,omitempty"`
	Score     float64   `json:"score"`
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Store         index.Store
	Walker        *tree.Walker
	Logger        *slog.Logger
	DefaultLimit  int
	MaxLimit      int
	SnippetRadius int
	CacheSize     int // 0 selects DefaultCacheSize, negative disables caching
}

// Engine answers search queries. It is safe for concurrent use.
type Engine struct {
	store         index.Store
	walker        *tree.Walker
	logger        *slog.Logger
	defaultLimit  int
	maxLimit      int
	snippetRadius int
	cache         *lru.Cache[string, []Result] // content matches by folded query
}

// New creates an Engine.
func New(options Options) *Engine {
	e := &Engine{
		store:         options.Store,
		walker:        options.Walker,
		logger:        options.Logger,
		defaultLimit:  options.DefaultLimit,
		maxLimit:      options.MaxLimit,
		snippetRadius: options.SnippetRadius,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = DefaultLimit
	}
	if e.maxLimit <= 0 {
		e.maxLimit = DefaultMaxLimit
	}
	if e.snippetRadius <= 0 {
		e.snippetRadius = DefaultSnippetRadius
	}

	cacheSize := options.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	if cacheSize > 0 {
		e.cache, _ = lru.New[string, []Result](cacheSize)
	}
	return e
}

// Invalidate drops every cached content match. The indexer calls it after
// each change to the store. File name matches are never cached.
func (e *Engine) Invalidate() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// Limit resolves a requested limit against the default and the maximum.
func (e *Engine) Limit(requested int) int {
	if requested <= 0 {
		return e.defaultLimit
	}
	if requested > e.maxLimit {
		return e.maxLimit
	}
	return requested
}

// Search returns at most Limit results ordered by match type, then shorter
// file name, then path. Queries shorter than MinQueryLength return no results
// without touching the store.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	text := strings.TrimSpace(q.Text)
	if utf8.RuneCountInString(text) < MinQueryLength {
		return []Result{}, nil
	}
	limit := e.Limit(q.Limit)

	start := time.Now()
	results, err := e.search(ctx, text, limit)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("search",
		"query", text,
		"limit", limit,
		"results", len(results),
		"elapsed", time.Since(start),
	)
	return results, nil
}

func (e *Engine) search(ctx context.Context, text string, limit int) ([]Result, error) {
	byPath := make(map[string]*Result)

	// File names come from the live tree, so unsupported and not yet indexed
	// files are found too.
	err := e.walker.Walk(ctx, func(entry tree.Entry) error {
		if index.ContainsFold(entry.Name, text) {
			byPath[entry.Path] = &Result{Path: entry.Path, FileName: entry.Name, MatchType: MatchFileName}
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("listing file names: %w", err)
	}

	contentMatches, err := e.contentMatches(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, match := range contentMatches {
		// Records can outlive their file until the next run prunes them.
		if !e.walker.Exists(match.Path) {
			continue
		}
		if existing, ok := byPath[match.Path]; ok {
			existing.MatchType = MatchBoth
			existing.Snippet = match.Snippet
			continue
		}
		m := match
		byPath[m.Path] = &m
	}

	results := make([]Result, 0, len(byPath))
	for _, result := range byPath {
		result.Score = float64(result.MatchType.rank())
		results = append(results, *result)
	}
	Sort(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// contentMatches returns every record whose content contains text. The
// whole set is needed because the store does not return hits in rank order.
func (e *Engine) contentMatches(ctx context.Context, text string) ([]Result, error) {
	key := strings.ToLower(text)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
	}

	docs, err := e.store.QueryContent(ctx, text, 0)
	if err != nil {
		return nil, e.unavailable(ctx, err)
	}
	matches := make([]Result, 0, len(docs))
	for _, doc := range docs {
		matches = append(matches, Result{
			Path:      doc.Path,
			FileName:  doc.FileName,
			MatchType: MatchContent,
			Snippet:   Snippet(doc.Content, text, e.snippetRadius),
		})
	}
	if e.cache != nil {
		e.cache.Add(key, matches)
	}
	return matches, nil
}

func (e *Engine) unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	e.logger.Warn("search store unavailable", "error", err)
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Sort orders results by match type (both, filename, content), then by file
// name length in runes, then by path. The order is total.
func Sort(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if ra, rb := a.MatchType.rank(), b.MatchType.rank(); ra != rb {
			return ra > rb
		}
		if la, lb := utf8.RuneCountInString(a.FileName), utf8.RuneCountInString(b.FileName); la != lb {
			return la < lb
		}
		return a.Path < b.Path
	})
}
