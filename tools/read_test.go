package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/lexandro/docindex-mcp/extract"
	"github.com/lexandro/docindex-mcp/index"
)

func newTestReadHandler(t *testing.T) *ReadHandler {
	t.Helper()
	store := index.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	ok := index.NewDocument("documents/welcome.txt")
	ok.Format = extract.FormatTXT
	ok.Status = index.StatusOK
	ok.Content = "Welcome to search\nsecond line"

	broken := index.NewDocument("reports/broken.pdf")
	broken.Format = extract.FormatPDF
	broken.Status = index.StatusFailed
	broken.Reason = "corrupt pdf"

	for _, doc := range []*index.Document{ok, broken} {
		if err := store.Upsert(context.Background(), doc); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	return &ReadHandler{Store: store, Logger: discardLogger()}
}

func Test_ReadHandler_EmptyPath(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for empty filePath")
	}
}

func Test_ReadHandler_ReturnsExtractedText(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{FilePath: "documents/welcome.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "── documents/welcome.txt (txt, 2 lines) ──") {
		t.Errorf("expected header, got:\n%s", text)
	}
	if !strings.Contains(text, "1│ Welcome to search") {
		t.Errorf("expected first numbered line, got:\n%s", text)
	}
}

func Test_ReadHandler_NotIndexed(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{FilePath: "missing.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for a missing record")
	}
	if text := resultText(t, result); !strings.Contains(text, "File not found in index") {
		t.Errorf("expected not-found message, got: %s", text)
	}
}

func Test_ReadHandler_FailedExtraction(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{FilePath: "reports/broken.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for a failed record")
	}
	if text := resultText(t, result); !strings.Contains(text, "failed: corrupt pdf") {
		t.Errorf("expected failure reason, got: %s", text)
	}
}
