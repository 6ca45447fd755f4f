package index

import (
	"path"
	"time"

	"github.com/lexandro/docindex-mcp/extract"
)

// Status records the outcome of the last extraction attempt for a document.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnsupported Status = "unsupported"
	StatusFailed      Status = "failed"
)

// Document is the persisted record for one file under the root.
// Path is the key: slash-separated and relative to the root.
type Document struct {
	Path       string         `json:"path"`
	FileName   string         `json:"file_name"`
	FolderPath string         `json:"folder_path"`
	Content    string         `json:"content"`
	Format     extract.Format `json:"format"`
	Status     Status         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	IndexedAt  time.Time      `json:"indexed_at"`
	ModifiedAt time.Time      `json:"modified_at"` // source file mtime when indexed
	Size       int64          `json:"size"`        // source file size when indexed
}

// NewDocument returns a record for relativePath with FileName and FolderPath derived from it.
func NewDocument(relativePath string) *Document {
	folder := path.Dir(relativePath)
	if folder == "." {
		folder = ""
	}
	return &Document{
		Path:       relativePath,
		FileName:   path.Base(relativePath),
		FolderPath: folder,
	}
}

// Clone returns a copy that shares no mutable state with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Unchanged reports whether the record was built from a file with the given
// size and modification time. Failed records never count as unchanged, so
// the next run retries them.
func (d *Document) Unchanged(size int64, modifiedAt time.Time) bool {
	return d != nil && d.Status != StatusFailed && d.Size == size && d.ModifiedAt.Equal(modifiedAt)
}
