package config

import (
	"time"

	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/lexandro/docindex-mcp/search"
)

// DefaultRoot is the document root of the stock deployment.
const DefaultRoot = "/var/www/html/pdf"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Root:     DefaultRoot,
		DataDir:  ".docindex",
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:           ":8001",
			CORSOrigins:    []string{"*"},
			RequestTimeout: 60 * time.Second,
		},
		Index: IndexConfig{
			Backend:        index.BackendBleve,
			Workers:        indexer.DefaultWorkers,
			MaxFileSize:    50 << 20,
			ExtractTimeout: 30 * time.Second,
			IndexOnStart:   true,
			Watch:          true,
		},
		Search: SearchConfig{
			DefaultLimit:  search.DefaultLimit,
			MaxLimit:      search.DefaultMaxLimit,
			SnippetRadius: search.DefaultSnippetRadius,
			CacheSize:     search.DefaultCacheSize,
		},
	}
}
