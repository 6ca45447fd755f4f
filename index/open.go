package index

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend string // bleve (default), sqlite or memory
	Path    string // on-disk location; empty keeps bleve in memory and sqlite in ":memory:"
	Logger  *slog.Logger
}

// Open creates the configured backend.
func Open(options Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(options.Backend)) {
	case "", BackendBleve:
		return NewBleveStore(options.Path, options.Logger)
	case BackendSQLite:
		path := options.Path
		if path == "" {
			path = ":memory:"
		}
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", options.Backend)
	}
}
