package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/docindex-mcp/search"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the docindex_search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Text to find in file names and document contents (case-insensitive, at least 2 characters)"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Engine *search.Engine
	Logger *slog.Logger
}

// Handle processes a docindex_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("docindex_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	results, err := h.Engine.Search(ctx, search.Query{Text: args.Query, Limit: args.MaxResults})
	if err != nil {
		h.Logger.Error("docindex_search failed", "query", args.Query, "error", err)
		if errors.Is(err, search.ErrUnavailable) {
			return errorResult("Search is temporarily unavailable, retry shortly."), nil, nil
		}
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("docindex_search",
		"query", args.Query,
		"results", len(results),
		"elapsed", time.Since(start),
	)
	return textResult(FormatSearchResults(results)), nil, nil
}
