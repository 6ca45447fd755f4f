// Package index persists extracted documents and answers content queries.
//
// Three Store backends ship: BleveStore (default, on disk or in memory),
// SQLiteStore, and MemoryStore. All of them replace a record in a single
// operation, so a concurrent reader sees either the old or the new version.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is wrapped by every error caused by a closed or failing backend.
var ErrUnavailable = errors.New("index store unavailable")

// ErrInvalidDocument is returned when upserting a record without a path.
var ErrInvalidDocument = errors.New("invalid document")

// Store maps relative file paths to extracted documents.
type Store interface {
	// Upsert inserts or replaces the record keyed by doc.Path.
	Upsert(ctx context.Context, doc *Document) error
	// FindByPath returns the record for path, or false if none exists.
	FindByPath(ctx context.Context, path string) (*Document, bool, error)
	// QueryContent returns records whose content contains term, ignoring case.
	// limit <= 0 means no limit.
	QueryContent(ctx context.Context, term string, limit int) ([]*Document, error)
	// Remove deletes the record for path. Removing a missing record is not an error.
	Remove(ctx context.Context, path string) error
	// Paths returns every stored path in ascending order.
	Paths(ctx context.Context) ([]string, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	Close() error
}

// ContainsFold reports whether content contains term under Unicode case folding.
func ContainsFold(content, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(term))
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func validate(doc *Document) error {
	if doc == nil || doc.Path == "" {
		return ErrInvalidDocument
	}
	return nil
}
