package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/teller/internal/guardrail"
	"github.com/kalambet/teller/internal/storage"
)

// Outcome classifies the result of a knowledge retrieval attempt.
type Outcome int

const (
	// OutcomeNoMatch means no document scored above the threshold.
	OutcomeNoMatch Outcome = iota
	// OutcomeAnswer means a document matched and its answer is returned.
	OutcomeAnswer
	// OutcomeRejected means the query failed the safety re-check.
	OutcomeRejected
)

// Result is the outcome of a knowledge retrieval, with the answer text and
// similarity score populated for OutcomeAnswer.
type Result struct {
	Outcome Outcome
	Answer  string
	Score   float32
}

// KnowledgeRetriever performs threshold-gated document retrieval. Queries are
// re-checked against the safety filter before any scoring, and only matches
// at or above the similarity threshold produce an answer.
type KnowledgeRetriever struct {
	embedder  *Embedder
	filter    *guardrail.Filter
	matrix    *Matrix
	answers   []string
	threshold float32
}

// NewKnowledgeRetriever builds a retriever from stored knowledge records.
// An empty record set is valid; retrieval then always reports no match.
func NewKnowledgeRetriever(embedder *Embedder, filter *guardrail.Filter, records []storage.KnowledgeRecord, threshold float32) (*KnowledgeRetriever, error) {
	r := &KnowledgeRetriever{
		embedder:  embedder,
		filter:    filter,
		threshold: threshold,
	}
	if len(records) == 0 {
		return r, nil
	}

	rows := make([][]float32, len(records))
	answers := make([]string, len(records))
	for i, rec := range records {
		if len(rec.Embedding) == 0 {
			return nil, fmt.Errorf("knowledge record %s has no embedding", rec.ID)
		}
		rows[i] = rec.Embedding
		answers[i] = rec.Answer
	}

	matrix, err := NewMatrix(rows)
	if err != nil {
		return nil, fmt.Errorf("building knowledge matrix: %w", err)
	}
	r.matrix = matrix
	r.answers = answers
	return r, nil
}

// Len returns the number of indexed documents.
func (r *KnowledgeRetriever) Len() int {
	if r.matrix == nil {
		return 0
	}
	return r.matrix.Len()
}

// Retrieve re-checks the query for safety, then scores it against every
// document. Blank queries are treated as unsafe.
func (r *KnowledgeRetriever) Retrieve(ctx context.Context, query string) (Result, error) {
	return r.RetrieveAt(ctx, query, r.threshold)
}

// RetrieveAt is Retrieve with an explicit similarity threshold in place of
// the configured one.
func (r *KnowledgeRetriever) RetrieveAt(ctx context.Context, query string, threshold float32) (Result, error) {
	if strings.TrimSpace(query) == "" || !r.filter.IsSafe(query) {
		return Result{Outcome: OutcomeRejected, Answer: guardrail.RejectionMessage}, nil
	}
	if r.matrix == nil {
		return Result{Outcome: OutcomeNoMatch}, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}
	i, score, err := r.matrix.Top(vec)
	if err != nil {
		return Result{}, fmt.Errorf("scoring query: %w", err)
	}
	if score < threshold {
		return Result{Outcome: OutcomeNoMatch, Score: score}, nil
	}
	return Result{Outcome: OutcomeAnswer, Answer: r.answers[i], Score: score}, nil
}
