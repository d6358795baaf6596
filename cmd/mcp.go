package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/config"
	"github.com/policyrag/policyrag/internal/inference"
	mcpserver "github.com/policyrag/policyrag/internal/mcp"
	"github.com/policyrag/policyrag/internal/pipeline"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing policy search tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		infClient := inference.NewClient(cfg.InferenceURL)

		store, err := vectorstore.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection)
		if err != nil {
			return fmt.Errorf("creating vector store: %w", err)
		}
		defer store.Close()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "policyrag MCP server started on stdio (collection=%s)\n", cfg.Collection)

		srv := mcpserver.NewServer(
			pipeline.NewRetriever(infClient, store, cfg.RetrievalK),
			pipeline.NewEvaluator(infClient, cfg.RerankThreshold),
		)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
