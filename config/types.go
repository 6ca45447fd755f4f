package config

import "time"

// Config is the top-level docindex-mcp configuration, corresponding to docindex.yml.
type Config struct {
	Root     string       `yaml:"root" koanf:"root"`
	DataDir  string       `yaml:"data_dir" koanf:"data_dir"` // relative paths resolve against root
	LogLevel string       `yaml:"log_level" koanf:"log_level"`
	LogFile  string       `yaml:"log_file" koanf:"log_file"`
	Exclude  []string     `yaml:"exclude" koanf:"exclude"`
	HTTP     HTTPConfig   `yaml:"http" koanf:"http"`
	Index    IndexConfig  `yaml:"index" koanf:"index"`
	Search   SearchConfig `yaml:"search" koanf:"search"`
}

// HTTPConfig holds the HTTP API settings.
type HTTPConfig struct {
	Addr           string        `yaml:"addr" koanf:"addr"`
	CORSOrigins    []string      `yaml:"cors_origins" koanf:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
}

// IndexConfig holds the store and indexing settings.
type IndexConfig struct {
	Backend        string        `yaml:"backend" koanf:"backend"`
	Path           string        `yaml:"path" koanf:"path"`
	Workers        int           `yaml:"workers" koanf:"workers"`
	MaxFileSize    int64         `yaml:"max_file_size" koanf:"max_file_size"`
	ExtractTimeout time.Duration `yaml:"extract_timeout" koanf:"extract_timeout"`
	IndexOnStart   bool          `yaml:"index_on_start" koanf:"index_on_start"`
	Watch          bool          `yaml:"watch" koanf:"watch"`
	SyncInterval   time.Duration `yaml:"sync_interval" koanf:"sync_interval"` // 0 disables periodic sync
}

// SearchConfig holds the search engine settings.
type SearchConfig struct {
	DefaultLimit  int `yaml:"default_limit" koanf:"default_limit"`
	MaxLimit      int `yaml:"max_limit" koanf:"max_limit"`
	SnippetRadius int `yaml:"snippet_radius" koanf:"snippet_radius"`
	CacheSize     int `yaml:"cache_size" koanf:"cache_size"` // negative disables the cache
}
