package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/lorekeeper/internal/lifecycle"
	"github.com/ziadkadry99/lorekeeper/internal/vectorindex"
)

// handleSearchLibrary performs spoiler-aware semantic search over the library.
func (s *Server) handleSearchLibrary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	filter := vectorindex.Filter{
		DocumentID:        request.GetString("document_id", ""),
		IncludeBackmatter: request.GetBool("include_backmatter", false),
	}
	if maxChapter := request.GetInt("max_chapter", -1); maxChapter >= 0 {
		filter.MaxChapter = &maxChapter
	}

	results, err := s.index.Search(ctx, query, limit, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No matching passages found. The library may be empty, or the chapter filter may exclude everything relevant."), nil
	}

	return mcp.NewToolResultText(vectorindex.FormatResults(results)), nil
}

// handleListDocuments lists the library contents.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.lifecycle.List(ctx, request.GetBool("include_deleted", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("The library is empty."), nil
	}

	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s (%s)\n", d.Title, d.ID)
		fmt.Fprintf(&b, "  chunks: %d", d.ChunkCount)
		if d.MaxChapter > 0 {
			fmt.Fprintf(&b, ", chapters: 1-%d", d.MaxChapter)
		}
		if d.Deleted {
			b.WriteString(", deleted")
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleDocumentStatus reports one document's lifecycle state.
func (s *Server) handleDocumentStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}

	st, err := s.lifecycle.Status(ctx, id)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no document with ID %q", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("document status: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", st.Title)
	fmt.Fprintf(&b, "Filename: %s\n", st.Filename)
	fmt.Fprintf(&b, "Indexed: %v\n", st.Indexed)
	fmt.Fprintf(&b, "Deleted: %v\n", st.Deleted)
	fmt.Fprintf(&b, "Chunks: %d\n", st.ChunkCount)
	if st.MaxChapter > 0 {
		fmt.Fprintf(&b, "Highest chapter: %d\n", st.MaxChapter)
	}
	if st.BackmatterChunks > 0 {
		fmt.Fprintf(&b, "Backmatter chunks: %d\n", st.BackmatterChunks)
	}
	if st.LastEvent != "" {
		fmt.Fprintf(&b, "Last event: %s\n", st.LastEvent)
	}
	return mcp.NewToolResultText(b.String()), nil
}
