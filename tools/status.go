package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the docindex_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Store     index.Store
	Indexer   *indexer.Indexer
	Backend   string
	StartTime time.Time
	RootDir   string
	Logger    *slog.Logger
}

// Handle processes a docindex_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	builder.WriteString("=== docindex-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Root directory: %s\n", h.RootDir))
	builder.WriteString(fmt.Sprintf("Index backend: %s\n", h.Backend))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))

	count, err := h.Store.Count(ctx)
	if err != nil {
		builder.WriteString(fmt.Sprintf("Indexed documents: unavailable (%v)\n", err))
	} else {
		builder.WriteString(fmt.Sprintf("Indexed documents: %d\n", count))
	}
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	if h.Indexer != nil {
		if h.Indexer.Running() {
			builder.WriteString("Indexing: in progress\n")
		} else {
			builder.WriteString("Indexing: idle\n")
		}
		if report, ok := h.Indexer.LastReport(); ok {
			builder.WriteString(fmt.Sprintf("\nLast run (%s ago):\n", formatDuration(time.Since(report.StartedAt))))
			builder.WriteString(FormatReport(report))
		}
	}

	h.Logger.Info("docindex_status",
		"documents", count,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)
	return textResult(builder.String()), nil, nil
}
