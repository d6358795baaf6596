// Package mcp exposes the policy retrieval pipeline to AI agents over the
// Model Context Protocol.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/policyrag/policyrag/internal/vectorstore"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Retriever returns candidate chunks for a query text.
type Retriever interface {
	Retrieve(ctx context.Context, text string) ([]vectorstore.Chunk, error)
}

// Evaluator re-ranks chunks and applies the confidence gate.
type Evaluator interface {
	EvaluateAndRerank(ctx context.Context, query string, chunks []vectorstore.Chunk) ([]vectorstore.Chunk, bool, error)
}

// Server wraps an MCP server that exposes policy search tools.
type Server struct {
	retriever Retriever
	evaluator Evaluator
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given pipeline stages.
func NewServer(retriever Retriever, evaluator Evaluator) *Server {
	s := &Server{
		retriever: retriever,
		evaluator: evaluator,
	}

	s.mcp = server.NewMCPServer(
		"policyrag",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchPoliciesTool, s.handleSearchPolicies)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
