package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/teller/internal/api"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query pipeline over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Resolver:       p.resolver,
			Knowledge:      p.knowledge,
			IntentCount:    p.intentCount,
			KnowledgeCount: p.knowledgeCount,
		})

		slog.Info("MCP server started (stdio transport)")
		stdioSrv := server.NewStdioServer(mcpSrv)
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
