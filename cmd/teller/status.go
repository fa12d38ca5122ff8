package main

import (
	"github.com/spf13/cobra"

	"github.com/kalambet/teller/internal/config"
	"github.com/kalambet/teller/internal/engine"
	"github.com/kalambet/teller/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show teller system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		eng := engine.NewOllamaEngine(cfg.Ollama.BaseURL)
		if !eng.IsRunning(ctx) {
			printStatus("Ollama", "not running")
		} else {
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
			for _, model := range []string{cfg.Ollama.GenModel, cfg.Ollama.EmbedModel} {
				if eng.HasModel(ctx, model) {
					printStatus("Model", "%s (ready)", model)
				} else {
					printStatus("Model", "%s (missing)", model)
				}
			}
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			printError("storage error: %v", err)
			return nil
		}
		defer store.Close()

		if n, err := store.IntentCount(); err == nil {
			printStatus("Intents", "%d", n)
		}
		if n, err := store.KnowledgeCount(); err == nil {
			printStatus("Knowledge docs", "%d", n)
		}
		printStatus("Similarity threshold", "%.2f", cfg.Retrieval.SimilarityThreshold)
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}
