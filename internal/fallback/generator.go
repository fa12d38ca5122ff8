// Package fallback produces free-form answers from the language model when
// neither the intent index nor the knowledge base can serve a query.
package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/teller/internal/engine"
)

// Generator wraps an Engine to produce last-resort answers.
type Generator struct {
	engine engine.Engine
	model  string
	opts   engine.GenerateOptions
}

// NewGenerator creates a Generator for the given model and sampling options.
func NewGenerator(e engine.Engine, model string, opts engine.GenerateOptions) *Generator {
	return &Generator{engine: e, model: model, opts: opts}
}

// Generate asks the model to continue the query as a raw prompt and strips
// any echo of the query text from the output. The result may be empty after
// stripping; callers decide what an empty answer means.
func (g *Generator) Generate(ctx context.Context, query string) (string, error) {
	out, err := g.engine.Generate(ctx, g.model, query, g.opts)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return strings.TrimSpace(strings.ReplaceAll(out, query, "")), nil
}
