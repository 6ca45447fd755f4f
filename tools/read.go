package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/docindex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReadArgs defines the input parameters for the docindex_read tool.
type ReadArgs struct {
	FilePath string `json:"filePath" jsonschema:"Relative file path of an indexed document (e.g. reports/q1.pdf)"`
}

// ReadHandler holds the dependencies for the read tool.
type ReadHandler struct {
	Store  index.Store
	Logger *slog.Logger
}

// Handle processes a docindex_read request. It returns the extracted text,
// not the raw file bytes.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.FilePath == "" {
		h.Logger.Warn("docindex_read called with empty filePath")
		return errorResult("Error: filePath parameter is required"), nil, nil
	}

	doc, found, err := h.Store.FindByPath(ctx, args.FilePath)
	if err != nil {
		h.Logger.Error("docindex_read failed", "filePath", args.FilePath, "error", err)
		return errorResult(fmt.Sprintf("Read error: %v", err)), nil, nil
	}
	if !found {
		h.Logger.Info("docindex_read file not found", "filePath", args.FilePath)
		return errorResult(fmt.Sprintf("File not found in index: %s", args.FilePath)), nil, nil
	}
	if doc.Status != index.StatusOK {
		return errorResult(fmt.Sprintf("No text extracted from %s (%s: %s)", doc.Path, doc.Status, doc.Reason)), nil, nil
	}

	h.Logger.Info("docindex_read", "filePath", args.FilePath, "elapsed", time.Since(start))
	return textResult(FormatDocumentContent(doc)), nil, nil
}
