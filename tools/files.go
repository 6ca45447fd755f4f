package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/docindex-mcp/tree"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListArgs defines the input parameters for the docindex_list tool.
type ListArgs struct {
	Path string `json:"path,omitempty" jsonschema:"Folder path relative to the document root (default: the root itself)"`
}

// ListHandler holds the dependencies for the list tool.
type ListHandler struct {
	Walker *tree.Walker
	Logger *slog.Logger
}

// Handle processes a docindex_list request.
func (h *ListHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	listing, err := h.Walker.List(ctx, args.Path)
	if err != nil {
		h.Logger.Info("docindex_list failed", "path", args.Path, "error", err)
		return errorResult(listErrorText(args.Path, err)), nil, nil
	}

	h.Logger.Info("docindex_list",
		"path", listing.CurrentPath,
		"entries", len(listing.Entries),
		"elapsed", time.Since(start),
	)
	return textResult(FormatListing(listing)), nil, nil
}

func listErrorText(path string, err error) string {
	switch {
	case errors.Is(err, tree.ErrInvalidPath):
		return fmt.Sprintf("Invalid path: %s", path)
	case errors.Is(err, tree.ErrNotFound):
		return fmt.Sprintf("Folder not found: %s", path)
	case errors.Is(err, tree.ErrNotADirectory):
		return fmt.Sprintf("Not a folder: %s", path)
	case errors.Is(err, tree.ErrPermission):
		return fmt.Sprintf("Permission denied: %s", path)
	default:
		return fmt.Sprintf("List error: %v", err)
	}
}
