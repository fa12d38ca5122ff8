// Package indexer runs the offline embedding pass: it reads JSON corpora
// from disk, embeds each record, and replaces the stored vector sets.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kalambet/teller/internal/retrieval"
	"github.com/kalambet/teller/internal/storage"
)

// VectorWriter abstracts the persistence operations the indexer needs.
type VectorWriter interface {
	ReplaceIntentVectors(records []storage.IntentRecord) error
	ReplaceKnowledgeVectors(records []storage.KnowledgeRecord) error
}

// Indexer embeds dataset and document corpora and persists the results.
type Indexer struct {
	embedder *retrieval.Embedder
	store    VectorWriter
	logger   *slog.Logger
}

// New creates an Indexer. A nil logger falls back to slog.Default.
func New(embedder *retrieval.Embedder, store VectorWriter, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{embedder: embedder, store: store, logger: logger}
}

type intentEntry struct {
	IntentID    string `json:"intent_id"`
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

type knowledgeEntry struct {
	Keywords []string `json:"keywords"`
	Answer   string   `json:"answer"`
}

// BuildIntents reads every *.json file under dir, embeds each valid record
// over its instruction and input, and replaces the stored intent set. Files
// are processed in lexical order and record order within a file is kept, so
// rebuilt positions are stable. Returns the number of records indexed.
func (ix *Indexer) BuildIntents(ctx context.Context, dir string) (int, error) {
	files, err := listJSONFiles(dir)
	if err != nil {
		return 0, err
	}

	var records []storage.IntentRecord
	seen := make(map[string]bool)
	for _, path := range files {
		var entries []intentEntry
		if err := readJSONFile(path, &entries); err != nil {
			ix.logger.Warn("skipping malformed dataset file", "path", path, "error", err)
			continue
		}
		for i, e := range entries {
			if e.IntentID == "" || e.Output == "" {
				ix.logger.Warn("skipping incomplete intent record", "path", path, "index", i)
				continue
			}
			if seen[e.IntentID] {
				ix.logger.Warn("skipping duplicate intent_id", "path", path, "intent_id", e.IntentID)
				continue
			}
			seen[e.IntentID] = true
			records = append(records, storage.IntentRecord{
				IntentID:    e.IntentID,
				Instruction: e.Instruction,
				Input:       e.Input,
				Output:      e.Output,
			})
		}
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("no valid intent records found in %s", dir)
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Instruction + " " + r.Input
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding intents: %w", err)
	}
	for i := range records {
		records[i].Embedding = vecs[i]
	}

	if err := ix.store.ReplaceIntentVectors(records); err != nil {
		return 0, fmt.Errorf("storing intent vectors: %w", err)
	}
	return len(records), nil
}

// BuildKnowledge reads every *.json file under dir, embeds each valid record
// over its joined keywords and answer, and replaces the stored knowledge
// set. An empty corpus is not an error; the stored set simply becomes empty.
// Returns the number of records indexed.
func (ix *Indexer) BuildKnowledge(ctx context.Context, dir string) (int, error) {
	files, err := listJSONFiles(dir)
	if err != nil {
		return 0, err
	}

	var records []storage.KnowledgeRecord
	var texts []string
	for _, path := range files {
		var entries []knowledgeEntry
		if err := readJSONFile(path, &entries); err != nil {
			ix.logger.Warn("skipping malformed document file", "path", path, "error", err)
			continue
		}
		for i, e := range entries {
			if len(e.Keywords) == 0 || e.Answer == "" {
				ix.logger.Warn("skipping incomplete knowledge record", "path", path, "index", i)
				continue
			}
			keywordsJSON, err := json.Marshal(e.Keywords)
			if err != nil {
				ix.logger.Warn("skipping unencodable keywords", "path", path, "index", i, "error", err)
				continue
			}
			records = append(records, storage.KnowledgeRecord{
				ID:       uuid.New().String(),
				Keywords: string(keywordsJSON),
				Answer:   e.Answer,
			})
			texts = append(texts, strings.Join(e.Keywords, " ")+" "+e.Answer)
		}
	}

	if len(records) > 0 {
		vecs, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embedding documents: %w", err)
		}
		for i := range records {
			records[i].Embedding = vecs[i]
		}
	}

	if err := ix.store.ReplaceKnowledgeVectors(records); err != nil {
		return 0, fmt.Errorf("storing knowledge vectors: %w", err)
	}
	return len(records), nil
}

// listJSONFiles returns the *.json files in dir sorted lexically.
func listJSONFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return files, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}
