// Package resolver sequences the tiered query pipeline: guardrail gate,
// intent match, knowledge retrieval, and generative fallback.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kalambet/teller/internal/guardrail"
	"github.com/kalambet/teller/internal/retrieval"
)

// NoInfoMessage is the terminal response when every tier falls through.
const NoInfoMessage = "I'm sorry, I do not have information on that topic."

// Tier identifies which stage of the pipeline produced the final answer.
type Tier int

const (
	// TierNone means no tier produced a usable answer.
	TierNone Tier = iota
	// TierRejected means the guardrail terminated the query.
	TierRejected
	// TierIntent means the intent index answered.
	TierIntent
	// TierKnowledge means the knowledge retriever answered.
	TierKnowledge
	// TierFallback means the generative fallback answered.
	TierFallback
)

// String returns a short label for logging.
func (t Tier) String() string {
	switch t {
	case TierRejected:
		return "rejected"
	case TierIntent:
		return "intent"
	case TierKnowledge:
		return "knowledge"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

// IntentMatcher is the tier 1 contract: an unconditional best guess.
type IntentMatcher interface {
	BestMatch(ctx context.Context, query string) (string, error)
}

// KnowledgeSource is the tier 2 contract: thresholded retrieval with an
// internal safety re-check.
type KnowledgeSource interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// AnswerGenerator is the tier 3 contract: free-form generation.
type AnswerGenerator interface {
	Generate(ctx context.Context, query string) (string, error)
}

// Resolution is the final answer for a query and the tier that produced it.
type Resolution struct {
	Answer string
	Tier   Tier
}

// Resolver runs a query through the tier chain. Construct it with all
// collaborators up front; it holds no per-query state and is safe for
// concurrent use once built.
type Resolver struct {
	filter    *guardrail.Filter
	intents   IntentMatcher
	knowledge KnowledgeSource
	generator AnswerGenerator
	log       *slog.Logger
}

// New creates a Resolver. A nil logger falls back to slog.Default.
func New(filter *guardrail.Filter, intents IntentMatcher, knowledge KnowledgeSource, generator AnswerGenerator, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		filter:    filter,
		intents:   intents,
		knowledge: knowledge,
		generator: generator,
		log:       log,
	}
}

// Resolve walks the query through the tiers in order and returns the first
// usable answer. A tier error is logged and advances the chain; it never
// fails the query. Each tier runs at most once.
func (r *Resolver) Resolve(ctx context.Context, query string) Resolution {
	res := r.resolve(ctx, query)
	r.log.Debug("query resolved", "tier", res.Tier)
	return res
}

func (r *Resolver) resolve(ctx context.Context, query string) Resolution {
	if !r.filter.IsSafe(query) {
		return Resolution{Answer: guardrail.RejectionMessage, Tier: TierRejected}
	}

	answer, err := r.intents.BestMatch(ctx, query)
	if err != nil {
		r.log.Warn("intent match failed", "error", err)
	} else if strings.TrimSpace(answer) != "" {
		return Resolution{Answer: answer, Tier: TierIntent}
	}

	res, err := r.knowledge.Retrieve(ctx, query)
	if err != nil {
		r.log.Warn("knowledge retrieval failed", "error", err)
	} else {
		switch res.Outcome {
		case retrieval.OutcomeRejected:
			// The retriever's own safety check is final, not retryable.
			return Resolution{Answer: res.Answer, Tier: TierRejected}
		case retrieval.OutcomeAnswer:
			if strings.TrimSpace(res.Answer) != "" {
				return Resolution{Answer: res.Answer, Tier: TierKnowledge}
			}
		}
	}

	generated, err := r.generator.Generate(ctx, query)
	if err != nil {
		r.log.Warn("fallback generation failed", "error", err)
	} else if trimmed := strings.TrimSpace(generated); trimmed != "" && trimmed != query {
		return Resolution{Answer: trimmed, Tier: TierFallback}
	}

	return Resolution{Answer: NoInfoMessage, Tier: TierNone}
}
