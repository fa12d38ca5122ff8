package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kalambet/teller/internal/config"
	"github.com/kalambet/teller/internal/engine"
	"github.com/kalambet/teller/internal/fallback"
	"github.com/kalambet/teller/internal/guardrail"
	"github.com/kalambet/teller/internal/resolver"
	"github.com/kalambet/teller/internal/retrieval"
	"github.com/kalambet/teller/internal/storage"
)

// pipeline bundles the fully wired query-serving components.
type pipeline struct {
	store          *storage.Store
	resolver       *resolver.Resolver
	knowledge      *retrieval.KnowledgeRetriever
	intentCount    int
	knowledgeCount int
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

func setupLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// buildPipeline loads config and storage and wires every tier. It fails when
// the intent index is missing; the system cannot serve queries without it.
func buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	eng := engine.NewOllamaEngine(cfg.Ollama.BaseURL)
	if err := engine.EnsureReady(ctx, eng, cfg.Ollama.GenModel, cfg.Ollama.EmbedModel, os.Stderr); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	intents, err := store.LoadIntentVectors()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading intent vectors: %w", err)
	}
	if len(intents) == 0 {
		store.Close()
		return nil, fmt.Errorf("no intent vectors found; run 'teller index' first")
	}

	knowledge, err := store.LoadKnowledgeVectors()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading knowledge vectors: %w", err)
	}

	embedder := retrieval.NewEmbedder(eng, cfg.Ollama.EmbedModel)
	filter := guardrail.NewFilter()

	intentIndex, err := retrieval.NewIntentIndex(embedder, intents)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building intent index: %w", err)
	}

	knowledgeRetriever, err := retrieval.NewKnowledgeRetriever(embedder, filter, knowledge, float32(cfg.Retrieval.SimilarityThreshold))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building knowledge retriever: %w", err)
	}

	generator := fallback.NewGenerator(eng, cfg.Ollama.GenModel, engine.GenerateOptions{
		MaxNewTokens: cfg.Generation.MaxNewTokens,
		Temperature:  cfg.Generation.Temperature,
		TopP:         cfg.Generation.TopP,
	})

	return &pipeline{
		store:          store,
		resolver:       resolver.New(filter, intentIndex, knowledgeRetriever, generator, slog.Default()),
		knowledge:      knowledgeRetriever,
		intentCount:    intentIndex.Len(),
		knowledgeCount: knowledgeRetriever.Len(),
	}, nil
}
