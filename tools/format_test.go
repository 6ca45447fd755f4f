package tools

import (
	"strings"
	"testing"
	"time"

	"github.com/lexandro/docindex-mcp/extract"
	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/lexandro/docindex-mcp/search"
	"github.com/lexandro/docindex-mcp/tree"
)

func Test_FormatListing_Empty(t *testing.T) {
	text := FormatListing(&tree.Listing{CurrentPath: ""})
	if !strings.Contains(text, "── / ──") {
		t.Errorf("expected root header, got:\n%s", text)
	}
	if !strings.Contains(text, "(empty folder)") {
		t.Errorf("expected empty marker, got:\n%s", text)
	}
	if strings.Contains(text, "parent:") {
		t.Errorf("root has no parent, got:\n%s", text)
	}
}

func Test_FormatListing_Entries(t *testing.T) {
	parent := "docs"
	listing := &tree.Listing{
		CurrentPath: "docs/2024",
		ParentPath:  &parent,
		Entries: []tree.Entry{
			{Name: "q1", Path: "docs/2024/q1", Type: tree.TypeFolder},
			{Name: "memo.pdf", Path: "docs/2024/memo.pdf", Type: tree.TypeFile, Size: 2048,
				ModifiedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		},
	}

	text := FormatListing(listing)
	if !strings.Contains(text, "parent: docs") {
		t.Errorf("expected parent line, got:\n%s", text)
	}
	if !strings.Contains(text, "  q1/\n") {
		t.Errorf("expected folder with slash, got:\n%s", text)
	}
	if !strings.Contains(text, "memo.pdf  (2.0 KB, 2024-03-01 10:00:00)") {
		t.Errorf("expected file line with size and time, got:\n%s", text)
	}
}

func Test_FormatSearchResults(t *testing.T) {
	if got := FormatSearchResults(nil); got != "No matches found." {
		t.Errorf("expected no-match message, got: %s", got)
	}

	text := FormatSearchResults([]search.Result{
		{Path: "documents/welcome.txt", FileName: "welcome.txt", MatchType: search.MatchBoth, Snippet: "Welcome to search"},
		{Path: "welcome.pdf", FileName: "welcome.pdf", MatchType: search.MatchFileName},
	})
	if !strings.Contains(text, "Found 2 files:") {
		t.Errorf("expected count header, got:\n%s", text)
	}
	if !strings.Contains(text, "── documents/welcome.txt [both] ──\n  Welcome to search\n") {
		t.Errorf("expected first result with snippet, got:\n%s", text)
	}
	if !strings.Contains(text, "── welcome.pdf [filename] ──") {
		t.Errorf("expected second result, got:\n%s", text)
	}
}

func Test_FormatDocumentContent(t *testing.T) {
	doc := index.NewDocument("reports/q1.docx")
	doc.Format = extract.FormatDOCX
	doc.Content = "first\nsecond"

	text := FormatDocumentContent(doc)
	if !strings.Contains(text, "── reports/q1.docx (docx, 2 lines) ──") {
		t.Errorf("expected header, got:\n%s", text)
	}
	if !strings.Contains(text, "1│ first\n2│ second\n") {
		t.Errorf("expected numbered lines, got:\n%s", text)
	}
}

func Test_FormatReport(t *testing.T) {
	text := FormatReport(indexer.Report{
		FilesScanned:     10,
		FilesIndexed:     7,
		FilesFailed:      1,
		FilesUnsupported: 2,
		Duration:         1500 * time.Millisecond,
		Cancelled:        true,
	})
	if !strings.Contains(text, "Indexed 7 of 10 files in 1.5s (cancelled)") {
		t.Errorf("expected summary line, got:\n%s", text)
	}
	if !strings.Contains(text, "failed: 1") || !strings.Contains(text, "unsupported: 2") {
		t.Errorf("expected failure counts, got:\n%s", text)
	}
}

func Test_FormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatFileSize(tt.bytes); got != tt.want {
			t.Errorf("formatFileSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func Test_FormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
