// Package tree exposes the document root as a navigable hierarchy.
//
// Every path crossing the package boundary is slash-separated and relative to
// the root. A Walker is read-only and holds no mutable state, so it is safe
// for concurrent use.
package tree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lexandro/docindex-mcp/extract"
	"github.com/lexandro/docindex-mcp/ignore"
)

// Walker resolves, lists, and enumerates paths beneath a fixed root.
type Walker struct {
	root    string
	matcher *ignore.Matcher
}

// New creates a Walker for root. The root is made absolute and symlink-resolved
// once; it must be an existing directory.
func New(root string, matcher *ignore.Matcher) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s: %w", resolved, ErrNotADirectory)
	}
	return &Walker{root: resolved, matcher: matcher}, nil
}

// Root returns the absolute, symlink-resolved root directory.
func (w *Walker) Root() string {
	return w.root
}

// Matcher returns the ignore matcher used for listing and walking.
func (w *Walker) Matcher() *ignore.Matcher {
	return w.matcher
}

// Ignored reports whether a relative path is hidden from listing and indexing.
func (w *Walker) Ignored(rel string, isDir bool) bool {
	return w.matcher.ShouldIgnore(rel, isDir)
}

// Rel converts an absolute path under the root into its relative form.
func (w *Walker) Rel(absolutePath string) (string, bool) {
	rel, err := filepath.Rel(w.root, absolutePath)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", true
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Resolve validates a relative path and maps it to an absolute path inside the
// root. It returns the absolute path and the cleaned relative path. The empty
// string and "." denote the root itself.
func (w *Walker) Resolve(rel string) (string, string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", "", fmt.Errorf("%q: %w", rel, ErrInvalidPath)
	}
	normalized := strings.ReplaceAll(rel, `\`, "/")
	if strings.HasPrefix(normalized, "/") || filepath.IsAbs(rel) || hasDriveLetter(normalized) {
		return "", "", fmt.Errorf("%q is absolute: %w", rel, ErrInvalidPath)
	}

	segments := make([]string, 0, strings.Count(normalized, "/")+1)
	for _, segment := range strings.Split(normalized, "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			return "", "", fmt.Errorf("%q contains '..': %w", rel, ErrInvalidPath)
		}
		segments = append(segments, segment)
	}
	clean := strings.Join(segments, "/")
	absolutePath := filepath.Join(w.root, filepath.FromSlash(clean))

	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// Missing paths cannot escape; callers report them as not found.
		return absolutePath, clean, nil
	}
	if !w.contains(resolved) {
		return "", "", fmt.Errorf("%q resolves outside the root: %w", rel, ErrInvalidPath)
	}
	return resolved, clean, nil
}

func (w *Walker) contains(absolutePath string) bool {
	if absolutePath == w.root {
		return true
	}
	prefix := w.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(absolutePath, prefix)
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// List returns the visible immediate children of the directory at rel.
func (w *Walker) List(ctx context.Context, rel string) (*Listing, error) {
	absolutePath, clean, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if clean != "" && w.Ignored(clean, true) {
		return nil, fmt.Errorf("%s: %w", clean, ErrNotFound)
	}

	info, err := os.Stat(absolutePath)
	if err != nil {
		return nil, classifyError(clean, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", clean, ErrNotADirectory)
	}

	dirEntries, err := os.ReadDir(absolutePath)
	if err != nil {
		return nil, classifyError(clean, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		childRel := joinRel(clean, dirEntry.Name())

		childInfo, ok := w.childInfo(absolutePath, dirEntry)
		if !ok {
			continue
		}
		if w.Ignored(childRel, childInfo.IsDir()) {
			continue
		}
		entries = append(entries, newEntry(childRel, clean, childInfo))
	}
	SortEntries(entries)

	listing := &Listing{CurrentPath: clean, Entries: entries}
	if clean != "" {
		parent := parentOf(clean)
		listing.ParentPath = &parent
	}
	return listing, nil
}

// childInfo stats a directory entry, following symlinks that stay inside the root.
func (w *Walker) childInfo(dir string, dirEntry fs.DirEntry) (fs.FileInfo, bool) {
	if dirEntry.Type()&fs.ModeSymlink == 0 {
		info, err := dirEntry.Info()
		return info, err == nil
	}
	target, err := filepath.EvalSymlinks(filepath.Join(dir, dirEntry.Name()))
	if err != nil || !w.contains(target) {
		return nil, false
	}
	info, err := os.Stat(target)
	return info, err == nil
}

func newEntry(rel, parent string, info fs.FileInfo) Entry {
	// Symlinked children report the link name, not the target's.
	entry := Entry{
		Name:       path.Base(rel),
		Path:       rel,
		ModifiedAt: info.ModTime().UTC(),
		ParentPath: parent,
	}
	if info.IsDir() {
		entry.Type = TypeFolder
		return entry
	}
	entry.Type = TypeFile
	entry.Size = info.Size()
	if format, ok := extract.DetectFormat(entry.Name); ok {
		entry.Format = format
	}
	return entry
}

// File is an open handle to a document under the root.
type File struct {
	*os.File
	Name        string
	Path        string
	Size        int64
	ModifiedAt  time.Time
	ContentType string
}

// Open opens the file at rel for serving. Folders are reported as not found.
func (w *Walker) Open(rel string) (*File, error) {
	absolutePath, clean, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if clean == "" || w.Ignored(clean, false) {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
	}

	f, err := os.Open(absolutePath)
	if err != nil {
		return nil, classifyError(clean, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, classifyError(clean, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", clean, ErrNotFound)
	}
	return &File{
		File:        f,
		Name:        path.Base(clean),
		Path:        clean,
		Size:        info.Size(),
		ModifiedAt:  info.ModTime(),
		ContentType: extract.ContentType(clean),
	}, nil
}

// Stat returns file information for the visible file at rel.
func (w *Walker) Stat(rel string) (fs.FileInfo, error) {
	absolutePath, clean, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absolutePath)
	if err != nil {
		return nil, classifyError(clean, err)
	}
	if clean != "" && w.Ignored(clean, info.IsDir()) {
		return nil, fmt.Errorf("%s: %w", clean, ErrNotFound)
	}
	return info, nil
}

// ReadFile reads the file at rel, failing with ErrTooLarge past maxBytes
// (0 disables the limit). A failed read is retried once after a short delay,
// since editors and sync clients briefly lock files while saving.
func (w *Walker) ReadFile(rel string, maxBytes int64) ([]byte, error) {
	absolutePath, clean, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(absolutePath, maxBytes)
	if err != nil && !errors.Is(err, ErrTooLarge) && !errors.Is(err, fs.ErrNotExist) {
		time.Sleep(50 * time.Millisecond)
		data, err = readLimited(absolutePath, maxBytes)
	}
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, fmt.Errorf("%s: %w", clean, err)
		}
		return nil, classifyError(clean, err)
	}
	return data, nil
}

func readLimited(absolutePath string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(absolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if maxBytes <= 0 {
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Exists reports whether a visible regular file exists at rel.
func (w *Walker) Exists(rel string) bool {
	info, err := w.Stat(rel)
	return err == nil && info.Mode().IsRegular()
}

func classifyError(rel string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", rel, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w", rel, ErrPermission)
	case isNotDirError(err):
		return fmt.Errorf("%s: %w", rel, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", rel, err)
	}
}

// isNotDirError matches ENOTDIR, reported when a path descends through a file.
func isNotDirError(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func parentOf(rel string) string {
	parent := path.Dir(rel)
	if parent == "." {
		return ""
	}
	return parent
}
