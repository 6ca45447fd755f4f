package index

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var errClosed = errors.New("store is closed")

// MemoryStore keeps documents in a map for O(1) path lookups and a sorted
// slice for ordered iteration. Records are copied in and out under the lock.
type MemoryStore struct {
	mu          sync.RWMutex
	documents   map[string]*Document // key: relative path (forward slashes)
	sortedPaths []string
	closed      bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:   make(map[string]*Document),
		sortedPaths: make([]string, 0),
	}
}

// Upsert adds or replaces a document.
func (ms *MemoryStore) Upsert(ctx context.Context, doc *Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return unavailable("upsert "+doc.Path, errClosed)
	}

	_, exists := ms.documents[doc.Path]
	ms.documents[doc.Path] = doc.Clone()

	if !exists {
		idx := sort.SearchStrings(ms.sortedPaths, doc.Path)
		ms.sortedPaths = append(ms.sortedPaths, "")
		copy(ms.sortedPaths[idx+1:], ms.sortedPaths[idx:])
		ms.sortedPaths[idx] = doc.Path
	}
	return nil
}

// FindByPath returns a copy of the document stored at path.
func (ms *MemoryStore) FindByPath(ctx context.Context, path string) (*Document, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, false, unavailable("find "+path, errClosed)
	}
	doc, ok := ms.documents[path]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

// QueryContent scans documents in path order for a case-insensitive substring match.
func (ms *MemoryStore) QueryContent(ctx context.Context, term string, limit int) ([]*Document, error) {
	term = strings.TrimSpace(term)

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, unavailable("query content", errClosed)
	}
	if term == "" {
		return nil, nil
	}

	termLower := strings.ToLower(term)
	var results []*Document
	for _, path := range ms.sortedPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := ms.documents[path]
		if doc.Content == "" || !strings.Contains(strings.ToLower(doc.Content), termLower) {
			continue
		}
		results = append(results, doc.Clone())
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Remove deletes a document by its relative path.
func (ms *MemoryStore) Remove(ctx context.Context, path string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return unavailable("remove "+path, errClosed)
	}
	if _, exists := ms.documents[path]; !exists {
		return nil
	}
	delete(ms.documents, path)

	idx := sort.SearchStrings(ms.sortedPaths, path)
	if idx < len(ms.sortedPaths) && ms.sortedPaths[idx] == path {
		ms.sortedPaths = append(ms.sortedPaths[:idx], ms.sortedPaths[idx+1:]...)
	}
	return nil
}

// Paths returns all stored paths in sorted order.
func (ms *MemoryStore) Paths(ctx context.Context) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, unavailable("paths", errClosed)
	}
	paths := make([]string, len(ms.sortedPaths))
	copy(paths, ms.sortedPaths)
	return paths, nil
}

// Count returns the number of stored documents.
func (ms *MemoryStore) Count(ctx context.Context) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return 0, unavailable("count", errClosed)
	}
	return len(ms.documents), nil
}

// Close marks the store closed; every later call fails with ErrUnavailable.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.closed = true
	ms.documents = make(map[string]*Document)
	ms.sortedPaths = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
