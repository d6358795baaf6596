package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/config"
	"github.com/policyrag/policyrag/internal/db"
	"github.com/policyrag/policyrag/internal/eventlog"
	"github.com/policyrag/policyrag/internal/inference"
	"github.com/policyrag/policyrag/internal/llm"
	"github.com/policyrag/policyrag/internal/pipeline"
	"github.com/policyrag/policyrag/internal/server"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

var serveAllowAll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the query gateway",
	Long:  `Starts the HTTP gateway serving POST /query (streamed answers with citations), GET /health, and GET /documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model, cfg.LLMBase)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		infClient := inference.NewClient(cfg.InferenceURL)

		store, err := vectorstore.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection)
		if err != nil {
			return fmt.Errorf("creating vector store: %w", err)
		}
		defer store.Close()

		events, err := eventlog.New(cfg.EventLogPath)
		if err != nil {
			return fmt.Errorf("opening event log: %w", err)
		}
		defer events.Close()

		var manifest *db.Manifest
		database, err := db.Open(filepath.Join(cfg.DataDir, "policyrag.db"))
		if err != nil {
			log.Printf("manifest database unavailable, /documents disabled: %v", err)
		} else {
			defer database.Close()
			manifest = db.NewManifest(database)
		}

		srv := server.New(
			server.Config{Port: cfg.Port, AllowAll: serveAllowAll},
			pipeline.NewRouter(provider, cfg.Model),
			pipeline.NewRetriever(infClient, store, cfg.RetrievalK),
			pipeline.NewEvaluator(infClient, cfg.RerankThreshold),
			pipeline.NewEngine(provider, cfg.Model),
			events,
			manifest,
		)

		// Shut down cleanly so queued audit records are flushed.
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("shutdown: %v", err)
			}
		}()

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
