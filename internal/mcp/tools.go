package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchLibraryTool defines the search_library MCP tool.
var searchLibraryTool = mcp.NewTool("search_library",
	mcp.WithDescription("Search the narrative library semantically. Supports spoiler protection: pass max_chapter to hide passages from later chapters."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
	mcp.WithString("document_id",
		mcp.Description("Restrict the search to a single document"),
	),
	mcp.WithNumber("max_chapter",
		mcp.Description("Hide passages beyond this chapter number (spoiler protection)"),
	),
	mcp.WithBoolean("include_backmatter",
		mcp.Description("Include appendices, glossaries and other end-of-book material when a chapter filter is set"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List the documents in the library with their chunk counts and chapter ranges."),
	mcp.WithBoolean("include_deleted",
		mcp.Description("Also list soft-deleted documents"),
	),
)

// documentStatusTool defines the document_status MCP tool.
var documentStatusTool = mcp.NewTool("document_status",
	mcp.WithDescription("Get one document's lifecycle state: indexed, deleted, chunk count, highest chapter."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("ID of the document"),
	),
)
