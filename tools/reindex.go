package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgs defines the input parameters for the docindex_reindex tool.
type ReindexArgs struct {
	Force bool `json:"force,omitempty" jsonschema:"Re-extract every file, including files unchanged since the last run"`
}

// ReindexFunc runs one indexing pass. *indexer.Indexer provides it via Run.
type ReindexFunc func(ctx context.Context, options indexer.RunOptions) (indexer.Report, error)

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	DoReindex ReindexFunc
	Logger    *slog.Logger
}

// Handle processes a docindex_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("docindex_reindex started", "force", args.Force)

	report, err := h.DoReindex(ctx, indexer.RunOptions{Force: args.Force})
	if errors.Is(err, indexer.ErrAlreadyIndexing) {
		h.Logger.Info("docindex_reindex rejected, run in progress")
		return errorResult("Indexing is already in progress, try again when it finishes."), nil, nil
	}
	if err != nil {
		h.Logger.Error("docindex_reindex failed", "error", err)
		return errorResult(fmt.Sprintf("Reindex error: %v", err)), nil, nil
	}

	h.Logger.Info("docindex_reindex complete",
		"runID", report.RunID,
		"indexed", report.FilesIndexed,
		"failed", report.FilesFailed,
		"elapsed", report.Duration,
	)
	return textResult("Reindex complete. " + FormatReport(report)), nil, nil
}
