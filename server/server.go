package server

import (
	"github.com/lexandro/docindex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// Setup creates and configures the MCP server with all tool registrations.
func Setup(
	listHandler *tools.ListHandler,
	searchHandler *tools.SearchHandler,
	readHandler *tools.ReadHandler,
	reindexHandler *tools.ReindexHandler,
	statusHandler *tools.StatusHandler,
) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "docindex-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server indexes a folder of office documents (PDF, DOCX, XLSX, DOC, XLS, RTF, TXT) and searches them by file name and by the text inside them.

- Use docindex_list to browse the folder hierarchy
- Use docindex_search to find documents by name or content (at least 2 characters, case-insensitive)
- Use docindex_read to read the extracted text of a document found by search
- Use docindex_reindex after bulk changes if results look stale
- The index updates automatically when files change (via filesystem watcher)`,
		},
	)

	// Register docindex_list tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "docindex_list",
		Description: `List the folders and files directly inside a folder of the document root. Folders come first, then files, each group sorted by name. Omit path for the root.`,
	}, listHandler.Handle)

	// Register docindex_search tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "docindex_search",
		Description: `Search documents by file name and extracted text.

Each result is tagged with where the query matched:
  - [both]: file name and content
  - [filename]: file name only
  - [content]: content only, with a snippet around the first occurrence

Results are ranked in that order. Queries shorter than 2 characters return nothing.`,
	}, searchHandler.Handle)

	// Register docindex_read tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "docindex_read",
		Description: `Read the text extracted from an indexed document. Returns numbered lines (format: "N│ content"). Binary formats are returned as plain text, not file bytes.`,
	}, readHandler.Handle)

	// Register docindex_reindex tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "docindex_reindex",
		Description: "Re-scan the document root and update the index. Unchanged files are skipped unless force is set. Fails if indexing is already running.",
	}, reindexHandler.Handle)

	// Register docindex_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "docindex_status",
		Description: "Show index status: document count, backend, last indexing run, memory usage, and uptime.",
	}, statusHandler.Handle)

	return mcpServer
}
