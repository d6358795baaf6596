package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchPoliciesTool defines the search_policies MCP tool.
var searchPoliciesTool = mcp.NewTool("search_policies",
	mcp.WithDescription("Search the HR policy knowledge base. Returns the most relevant policy chunks with source, section, and page metadata."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of chunks to return (default 5)"),
	),
)
