package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/teller/internal/config"
	"github.com/kalambet/teller/internal/engine"
	"github.com/kalambet/teller/internal/indexer"
	"github.com/kalambet/teller/internal/retrieval"
	"github.com/kalambet/teller/internal/storage"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the intent and knowledge indexes from source corpora",
	Long: `Read the dataset and document directories, embed every record, and
replace the stored vector sets. Run this before the first chat session and
after any corpus change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		datasetDir, _ := cmd.Flags().GetString("dataset")
		docsDir, _ := cmd.Flags().GetString("docs")
		if datasetDir == "" {
			datasetDir = cfg.Data.DatasetDir
		}
		if docsDir == "" {
			docsDir = cfg.Data.DocsDir
		}

		eng := engine.NewOllamaEngine(cfg.Ollama.BaseURL)
		if err := engine.EnsureReady(ctx, eng, "", cfg.Ollama.EmbedModel, os.Stderr); err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		embedder := retrieval.NewEmbedder(eng, cfg.Ollama.EmbedModel)
		ix := indexer.New(embedder, store, slog.Default())

		printStep("Indexing dataset from %s", datasetDir)
		intents, err := ix.BuildIntents(ctx, datasetDir)
		if err != nil {
			return fmt.Errorf("indexing dataset: %w", err)
		}
		printSuccess("Indexed %d intents", intents)

		printStep("Indexing documents from %s", docsDir)
		docs, err := ix.BuildKnowledge(ctx, docsDir)
		if err != nil {
			return fmt.Errorf("indexing documents: %w", err)
		}
		printSuccess("Indexed %d knowledge documents", docs)

		return nil
	},
}

func init() {
	indexCmd.Flags().String("dataset", "", "dataset directory (overrides config)")
	indexCmd.Flags().String("docs", "", "documents directory (overrides config)")
}
