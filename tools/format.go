package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/lexandro/docindex-mcp/search"
	"github.com/lexandro/docindex-mcp/tree"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FormatListing formats a directory listing as human-readable text.
// Folders come first and carry a trailing slash.
func FormatListing(listing *tree.Listing) string {
	var builder strings.Builder
	current := listing.CurrentPath
	if current == "" {
		current = "/"
	}
	builder.WriteString(fmt.Sprintf("── %s ──\n", current))
	if listing.ParentPath != nil {
		parent := *listing.ParentPath
		if parent == "" {
			parent = "/"
		}
		builder.WriteString(fmt.Sprintf("parent: %s\n", parent))
	}

	if len(listing.Entries) == 0 {
		builder.WriteString("\n(empty folder)\n")
		return builder.String()
	}
	builder.WriteString("\n")

	for _, entry := range listing.Entries {
		if entry.IsDir() {
			builder.WriteString(fmt.Sprintf("  %s/\n", entry.Name))
			continue
		}
		builder.WriteString(fmt.Sprintf("  %s  (%s, %s)\n",
			entry.Name,
			formatFileSize(entry.Size),
			entry.ModifiedAt.Format(time.DateTime),
		))
	}
	return builder.String()
}

// FormatSearchResults formats ranked search results as human-readable text.
func FormatSearchResults(results []search.Result) string {
	if len(results) == 0 {
		return "No matches found."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(results)))

	for i, result := range results {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("── %s [%s] ──\n", result.Path, result.MatchType))
		if result.Snippet != "" {
			builder.WriteString(fmt.Sprintf("  %s\n", result.Snippet))
		}
	}
	return builder.String()
}

// FormatDocumentContent formats extracted text with line numbers.
// Output format: header line with path and line count, followed by numbered lines.
func FormatDocumentContent(doc *index.Document) string {
	lines := strings.Split(doc.Content, "\n")
	lineCount := len(lines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s (%s, %d lines) ──\n", doc.Path, doc.Format, lineCount))

	width := len(fmt.Sprintf("%d", lineCount))
	for i, line := range lines {
		builder.WriteString(fmt.Sprintf("%*d│ %s\n", width, i+1, line))
	}
	return builder.String()
}

// FormatReport formats an indexing report.
func FormatReport(report indexer.Report) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Indexed %d of %d files in %s",
		report.FilesIndexed, report.FilesScanned, report.Duration.Round(time.Millisecond)))
	if report.Cancelled {
		builder.WriteString(" (cancelled)")
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("  unchanged: %d\n", report.FilesUnchanged))
	builder.WriteString(fmt.Sprintf("  failed: %d\n", report.FilesFailed))
	builder.WriteString(fmt.Sprintf("  unsupported: %d\n", report.FilesUnsupported))
	builder.WriteString(fmt.Sprintf("  pruned: %d\n", report.FilesPruned))
	return builder.String()
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
