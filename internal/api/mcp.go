// Package api exposes the query pipeline over MCP so local agent hosts can
// call it as a tool.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/teller/internal/resolver"
	"github.com/kalambet/teller/internal/retrieval"
)

// MCPResolver abstracts the tiered pipeline for the MCP layer.
type MCPResolver interface {
	Resolve(ctx context.Context, query string) resolver.Resolution
}

// MCPKnowledge abstracts direct knowledge retrieval, bypassing the other tiers.
type MCPKnowledge interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
	RetrieveAt(ctx context.Context, query string, threshold float32) (retrieval.Result, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Resolver       MCPResolver
	Knowledge      MCPKnowledge
	IntentCount    int
	KnowledgeCount int
}

// NewMCPServer creates an MCP server with all teller tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"teller",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("teller — tiered query resolution for banking customer support."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("resolve_query",
			mcp.WithDescription("Resolve a customer query through the full tier chain: safety gate, intent match, knowledge retrieval, generative fallback."),
			mcp.WithString("query", mcp.Description("The customer query"), mcp.Required()),
		),
		mcpResolveQuery(deps),
	)

	s.AddTool(
		mcp.NewTool("search_knowledge",
			mcp.WithDescription("Search only the knowledge base, returning the best document answer with its similarity score."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("threshold", mcp.Description("Minimum similarity score (default: configured threshold)")),
		),
		mcpSearchKnowledge(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"teller://stats",
			"Index Statistics",
			mcp.WithResourceDescription("Sizes of the loaded intent and knowledge indexes as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpResolveQuery(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		res := deps.Resolver.Resolve(ctx, query)

		b, err := json.Marshal(map[string]string{
			"answer": res.Answer,
			"tier":   res.Tier.String(),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		var res retrieval.Result
		if threshold := req.GetFloat("threshold", -1); threshold >= 0 {
			res, err = deps.Knowledge.RetrieveAt(ctx, query, float32(threshold))
		} else {
			res, err = deps.Knowledge.Retrieve(ctx, query)
		}
		if err != nil {
			return mcpError(fmt.Sprintf("retrieval failed: %v", err)), nil
		}

		outcome := "no_match"
		switch res.Outcome {
		case retrieval.OutcomeAnswer:
			outcome = "answer"
		case retrieval.OutcomeRejected:
			outcome = "rejected"
		}

		b, err := json.Marshal(map[string]any{
			"outcome": outcome,
			"answer":  res.Answer,
			"score":   res.Score,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(map[string]int{
			"intents":   deps.IntentCount,
			"knowledge": deps.KnowledgeCount,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
