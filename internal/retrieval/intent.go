package retrieval

import (
	"context"
	"fmt"

	"github.com/kalambet/teller/internal/storage"
)

// IntentIndex answers queries by exact-dataset matching: the query embedding
// is compared against every indexed intent and the closest match's canned
// response is returned. No similarity threshold applies; the argmax always
// produces an answer.
type IntentIndex struct {
	embedder *Embedder
	matrix   *Matrix
	outputs  []string
	ids      []string
}

// NewIntentIndex builds an IntentIndex from stored intent records. The
// records must be non-empty and share one embedding dimension; their order
// determines match positions.
func NewIntentIndex(embedder *Embedder, records []storage.IntentRecord) (*IntentIndex, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("intent index requires at least one record")
	}

	rows := make([][]float32, len(records))
	outputs := make([]string, len(records))
	ids := make([]string, len(records))
	for i, r := range records {
		if len(r.Embedding) == 0 {
			return nil, fmt.Errorf("intent %s has no embedding", r.IntentID)
		}
		rows[i] = r.Embedding
		outputs[i] = r.Output
		ids[i] = r.IntentID
	}

	matrix, err := NewMatrix(rows)
	if err != nil {
		return nil, fmt.Errorf("building intent matrix: %w", err)
	}

	return &IntentIndex{
		embedder: embedder,
		matrix:   matrix,
		outputs:  outputs,
		ids:      ids,
	}, nil
}

// Len returns the number of indexed intents.
func (idx *IntentIndex) Len() int { return idx.matrix.Len() }

// BestMatch embeds the query and returns the canned response of the most
// similar intent.
func (idx *IntentIndex) BestMatch(ctx context.Context, query string) (string, error) {
	vec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}
	i, _, err := idx.matrix.Top(vec)
	if err != nil {
		return "", fmt.Errorf("matching query: %w", err)
	}
	return idx.outputs[i], nil
}
