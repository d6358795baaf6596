package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/policyrag/policyrag/internal/vectorstore"
)

// handleSearchPolicies runs retrieval plus re-ranking and formats the
// surviving chunks for agent consumption.
func (s *Server) handleSearchPolicies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	chunks, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	valid, confident, err := s.evaluator.EvaluateAndRerank(ctx, query, chunks)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("re-ranking failed: %v", err)), nil
	}
	if !confident {
		return mcp.NewToolResultText("No relevant policy chunks found. The knowledge base may not cover this topic, or it has not been ingested yet (run `policyrag ingest`)."), nil
	}

	if len(valid) > limit {
		valid = valid[:limit]
	}

	return mcp.NewToolResultText(formatChunks(valid)), nil
}

// formatChunks converts chunks into a rich text format optimized for AI
// agent consumption.
func formatChunks(chunks []vectorstore.Chunk) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d relevant chunk(s):\n", len(chunks)))

	for i, c := range chunks {
		sb.WriteString(fmt.Sprintf("\n--- Chunk %d", i+1))
		if c.Score != nil {
			sb.WriteString(fmt.Sprintf(" (score: %.4f)", *c.Score))
		}
		sb.WriteString(" ---\n")
		sb.WriteString(fmt.Sprintf("Source: %s | Section: %s | Page: %s\n\n", c.SourceDocument, c.SectionHeader, c.PageNumber))
		sb.WriteString(c.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
