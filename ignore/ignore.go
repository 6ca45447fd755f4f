package ignore

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFileName is the per-root file holding gitignore-style exclusion rules.
const IgnoreFileName = ".indexignore"

// Matcher decides which entries under the document root are invisible to
// listing and indexing. It combines hidden-name rules, default patterns,
// .indexignore rules and custom exclude globs.
// Thread-safe: Reload() acquires a write lock, ShouldIgnore() acquires a read lock.
type Matcher struct {
	mu             sync.RWMutex
	rootDir        string
	indexIgnore    gitignore.GitIgnore
	customPatterns []string
	showHidden     bool
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir        string
	CustomPatterns []string // doublestar globs relative to the root, e.g. "archive/**"
	ShowHidden     bool     // include dot-prefixed entries
}

// NewMatcher creates a matcher for the given root and loads its .indexignore, if any.
func NewMatcher(options MatcherOptions) *Matcher {
	patterns := make([]string, 0, len(options.CustomPatterns))
	for _, pattern := range options.CustomPatterns {
		pattern = strings.TrimSpace(filepath.ToSlash(pattern))
		if pattern != "" && doublestar.ValidatePattern(pattern) {
			patterns = append(patterns, pattern)
		}
	}
	return &Matcher{
		rootDir:        options.RootDir,
		indexIgnore:    loadIgnoreFile(filepath.Join(options.RootDir, IgnoreFileName), options.RootDir),
		customPatterns: patterns,
		showHidden:     options.ShowHidden,
	}
}

// IsHidden reports whether a base name is a dot entry.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// ShouldIgnore reports whether the slash-separated path relative to the root
// is excluded. A nil matcher ignores nothing but hidden entries.
func (m *Matcher) ShouldIgnore(relativePath string, isDir bool) bool {
	relativePath = strings.Trim(filepath.ToSlash(relativePath), "/")
	if relativePath == "" || relativePath == "." {
		return false
	}

	showHidden := false
	if m != nil {
		showHidden = m.showHidden
	}
	if !showHidden {
		for _, part := range strings.Split(relativePath, "/") {
			if IsHidden(part) {
				return true
			}
		}
	}
	if matchesDefaultPatterns(relativePath) {
		return true
	}
	if m == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.indexIgnore != nil {
		match := m.indexIgnore.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return m.matchesCustomPatterns(relativePath)
}

// Reload re-reads .indexignore from disk.
// Used when the watcher reports a change to it.
func (m *Matcher) Reload() {
	next := loadIgnoreFile(filepath.Join(m.rootDir, IgnoreFileName), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexIgnore = next
}

// RootDir returns the directory the matcher's rules are relative to.
func (m *Matcher) RootDir() string {
	return m.rootDir
}

func matchesDefaultPatterns(relativePath string) bool {
	baseName := strings.ToLower(path.Base(relativePath))
	parts := strings.Split(strings.ToLower(relativePath), "/")

	for _, pattern := range DefaultIgnorePatterns {
		pattern = strings.ToLower(pattern)
		if !strings.ContainsAny(pattern, "*?[") {
			for _, part := range parts {
				if part == pattern {
					return true
				}
			}
			continue
		}
		if matched, err := path.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// matchesCustomPatterns matches the relative path, then the base name.
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	baseName := path.Base(relativePath)
	for _, pattern := range m.customPatterns {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
