package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultSearchLimit caps toolSearch results when the caller sets no limit.
const defaultSearchLimit = 5

type toolSearchInput struct {
	Query    string `json:"query" jsonschema:"required,Search text or regular expression matched against tool names, descriptions and keywords"`
	Category string `json:"category,omitempty" jsonschema:"Restrict results to one category (reasoning, session, config, search)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default: 5)"`
}

type toolSearchOutput struct {
	Query      string          `json:"query"`
	Results    []*SearchResult `json:"results"`
	Count      int             `json:"count"`
	TotalTools int             `json:"total_tools"`
}

type toolListInput struct {
	Category string `json:"category,omitempty" jsonschema:"Restrict the listing to one category"`
}

type toolListOutput struct {
	Tools []*ToolMetadata `json:"tools"`
	Count int             `json:"count"`
}

func (s *Server) registerSearchTools() {
	addTool(s, &mcp.Tool{
		Name:        ToolSearch,
		Description: "Search the available tools by name, description or keyword. Queries are matched as plain text and as regular expressions.",
	}, CategorySearch, []string{"discover", "find", "tools"}, s.handleToolSearch)

	addTool(s, &mcp.Tool{
		Name:        ToolList,
		Description: "List every available tool with its category and keywords.",
	}, CategorySearch, []string{"discover", "tools", "catalog"}, s.handleToolList)
}

func (s *Server) handleToolSearch(ctx context.Context, _ *mcp.CallToolRequest, args toolSearchInput) (*mcp.CallToolResult, any, error) {
	_, done := s.observe(ctx, ToolSearch, "", args)
	var toolErr error
	defer func() { done(toolErr) }()

	if strings.TrimSpace(args.Query) == "" {
		toolErr = fmt.Errorf("query is required")
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: toolErr.Error()}},
		}, nil, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results := s.toolRegistry.Search(args.Query, ToolCategory(args.Category))
	if len(results) > limit {
		results = results[:limit]
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Tool.Name)
	}
	text := fmt.Sprintf("No tools found matching: %s", args.Query)
	if len(names) > 0 {
		text = fmt.Sprintf("Found %d tool(s) for query '%s': %s", len(names), args.Query, strings.Join(names, ", "))
	}

	return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, toolSearchOutput{
			Query:      args.Query,
			Results:    results,
			Count:      len(results),
			TotalTools: s.toolRegistry.Count(),
		}, nil
}

func (s *Server) handleToolList(ctx context.Context, _ *mcp.CallToolRequest, args toolListInput) (*mcp.CallToolResult, any, error) {
	_, done := s.observe(ctx, ToolList, "", args)
	defer done(nil)

	tools := s.toolRegistry.List(ToolCategory(args.Category))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Found %d tools", len(tools))}},
	}, toolListOutput{Tools: tools, Count: len(tools)}, nil
}
