// Package config loads docindex-mcp settings from defaults, an optional YAML
// file and DOCINDEX_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/lexandro/docindex-mcp/index"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nested keys: DOCINDEX_INDEX__BACKEND sets index.backend.
const EnvPrefix = "DOCINDEX_"

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "docindex.yml"

// listKeys hold comma-separated values when set from the environment.
var listKeys = map[string]bool{
	"exclude":           true,
	"http.cors_origins": true,
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// envKeyValue maps DOCINDEX_HTTP__CORS_ORIGINS=a,b to http.cors_origins=[a b].
func envKeyValue(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validBackends = map[string]bool{
	index.BackendBleve:  true,
	index.BackendSQLite: true,
	index.BackendMemory: true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("http.request_timeout must be non-negative")
	}

	if !validBackends[strings.ToLower(c.Index.Backend)] {
		return fmt.Errorf("invalid index.backend %q: must be one of bleve, sqlite, memory", c.Index.Backend)
	}
	if c.Index.Workers < 0 {
		return fmt.Errorf("index.workers must be non-negative")
	}
	if c.Index.MaxFileSize < 0 {
		return fmt.Errorf("index.max_file_size must be non-negative")
	}
	if c.Index.ExtractTimeout < 0 {
		return fmt.Errorf("index.extract_timeout must be non-negative")
	}
	if c.Index.SyncInterval < 0 {
		return fmt.Errorf("index.sync_interval must be non-negative")
	}

	if c.Search.DefaultLimit < 0 || c.Search.MaxLimit < 0 {
		return fmt.Errorf("search limits must be non-negative")
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.SnippetRadius < 0 {
		return fmt.Errorf("search.snippet_radius must be non-negative")
	}
	return nil
}

// IndexPath returns where the store keeps its files: index.path when set,
// otherwise a backend-specific location under data_dir. The memory backend
// has no location.
func (c *Config) IndexPath() string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	switch strings.ToLower(c.Index.Backend) {
	case index.BackendSQLite:
		return filepath.Join(c.DataDir, "index.db")
	case index.BackendMemory:
		return ""
	default:
		return filepath.Join(c.DataDir, "index.bleve")
	}
}
