package tools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexandro/docindex-mcp/ignore"
	"github.com/lexandro/docindex-mcp/tree"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newTestWalker(t *testing.T) *tree.Walker {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, root, "documents/welcome.txt", "Welcome to search")
	writeTestFile(t, root, "documents/reports/q1.txt", "Quarterly results")
	writeTestFile(t, root, "readme.txt", "read me")
	writeTestFile(t, root, ".hidden/secret.txt", "secret")

	walker, err := tree.New(root, ignore.NewMatcher(ignore.MatcherOptions{RootDir: root}))
	if err != nil {
		t.Fatalf("tree.New: %v", err)
	}
	return walker
}

func Test_ListHandler_Root(t *testing.T) {
	h := &ListHandler{Walker: newTestWalker(t), Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, ListArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "documents/") {
		t.Errorf("expected folder 'documents/', got:\n%s", text)
	}
	if !strings.Contains(text, "readme.txt") {
		t.Errorf("expected 'readme.txt', got:\n%s", text)
	}
	if strings.Contains(text, ".hidden") {
		t.Errorf("hidden folder should not be listed, got:\n%s", text)
	}
	if strings.Index(text, "documents/") > strings.Index(text, "readme.txt") {
		t.Errorf("expected folders before files, got:\n%s", text)
	}
}

func Test_ListHandler_Subfolder(t *testing.T) {
	h := &ListHandler{Walker: newTestWalker(t), Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, ListArgs{Path: "documents"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "── documents ──") {
		t.Errorf("expected header for documents, got:\n%s", text)
	}
	if !strings.Contains(text, "parent: /") {
		t.Errorf("expected parent line, got:\n%s", text)
	}
	if !strings.Contains(text, "reports/") || !strings.Contains(text, "welcome.txt") {
		t.Errorf("expected reports/ and welcome.txt, got:\n%s", text)
	}
}

func Test_ListHandler_Errors(t *testing.T) {
	h := &ListHandler{Walker: newTestWalker(t), Logger: discardLogger()}

	tests := []struct {
		path string
		want string
	}{
		{"../etc", "Invalid path"},
		{"missing", "Folder not found"},
		{"readme.txt", "Not a folder"},
	}
	for _, tt := range tests {
		result, _, err := h.Handle(context.Background(), nil, ListArgs{Path: tt.path})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.path, err)
		}
		if !result.IsError {
			t.Errorf("%s: expected IsError=true", tt.path)
		}
		if text := resultText(t, result); !strings.Contains(text, tt.want) {
			t.Errorf("%s: expected %q, got: %s", tt.path, tt.want, text)
		}
	}
}
