package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/config"
	"github.com/policyrag/policyrag/internal/db"
	"github.com/policyrag/policyrag/internal/inference"
	"github.com/policyrag/policyrag/internal/ingest"
	"github.com/policyrag/policyrag/internal/llm"
	"github.com/policyrag/policyrag/internal/partition"
	"github.com/policyrag/policyrag/internal/progress"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest policy documents into the knowledge base",
	Long: `Partitions, embeds, and indexes policy documents. With no argument the
configured docs directory is walked using the include/exclude globs;
with a file argument only that file is ingested. Unchanged files are
skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
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

		store, err := vectorstore.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection)
		if err != nil {
			return fmt.Errorf("creating vector store: %w", err)
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("initializing collection: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "policyrag.db"))
		if err != nil {
			return fmt.Errorf("opening manifest database: %w", err)
		}
		defer database.Close()
		manifest := db.NewManifest(database)

		pipe := ingest.NewPipeline(
			partition.NewClient(cfg.PartitionURL),
			inference.NewClient(cfg.InferenceURL),
			store,
			provider,
			cfg.Model,
			manifest,
		)
		pipe.SetForce(ingestForce)

		var files []string
		if len(args) == 1 {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("accessing %s: %w", args[0], err)
			}
			files = []string{args[0]}
		} else {
			files, err = ingest.Walk(cfg.DocsDir, cfg.Include, cfg.Exclude)
			if err != nil {
				return err
			}
		}
		if len(files) == 0 {
			fmt.Println("No policy documents found.")
			return nil
		}

		reporter := progress.NewReporter()
		var reporterStarted bool
		pipe.SetProgressFunc(func(current, total int, message string) {
			if !reporterStarted {
				reporter.Start(total)
				reporterStarted = true
			}
			reporter.Update(current, message)
		})

		var ingested, skipped, chunks, llmCalls int
		for _, f := range files {
			reporterStarted = false
			result, err := pipe.IngestFile(ctx, f)
			if reporterStarted {
				reporter.Finish()
			}
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", f, err)
			}
			if result.Skipped {
				skipped++
				continue
			}
			ingested++
			chunks += result.Chunks
			llmCalls += result.LLMCalls
		}

		fmt.Printf("Ingested %d file(s) (%d skipped, unchanged): %d chunks, %d LLM calls.\n",
			ingested, skipped, chunks, llmCalls)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest files even if unchanged")
	rootCmd.AddCommand(ingestCmd)
}
