package tree

import (
	"sort"
	"strings"
	"time"

	"github.com/lexandro/docindex-mcp/extract"
)

// EntryType distinguishes folders from files.
type EntryType string

const (
	TypeFolder EntryType = "folder"
	TypeFile   EntryType = "file"
)

// Entry describes one child of a listed directory.
type Entry struct {
	Name       string         `json:"name"`
	Path       string         `json:"path"`
	Type       EntryType      `json:"type"`
	Size       int64          `json:"size,omitempty"`
	ModifiedAt time.Time      `json:"modified_at"`
	ParentPath string         `json:"parent_path"`
	Format     extract.Format `json:"format,omitempty"`
}

// IsDir reports whether the entry is a folder.
func (e Entry) IsDir() bool {
	return e.Type == TypeFolder
}

// Listing is one page of the hierarchy. ParentPath is nil at the root.
type Listing struct {
	CurrentPath string  `json:"current_path"`
	ParentPath  *string `json:"parent_path"`
	Entries     []Entry `json:"items"`
}

// SortEntries orders folders before files, then by case-insensitive name,
// then by exact name so that names differing only in case keep a stable order.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}
