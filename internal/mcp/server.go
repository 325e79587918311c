// Package mcp exposes the library to MCP clients: spoiler-aware search plus
// document listing and status tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/lorekeeper/internal/lifecycle"
	"github.com/ziadkadry99/lorekeeper/internal/vectorindex"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes library search tools.
type Server struct {
	index     *vectorindex.Manager
	lifecycle *lifecycle.Manager
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(index *vectorindex.Manager, lm *lifecycle.Manager) *Server {
	s := &Server{
		index:     index,
		lifecycle: lm,
	}

	s.mcp = server.NewMCPServer(
		"lorekeeper",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchLibraryTool, s.handleSearchLibrary)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	s.mcp.AddTool(documentStatusTool, s.handleDocumentStatus)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
