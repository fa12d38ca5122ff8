package resolver

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/kalambet/teller/internal/guardrail"
	"github.com/kalambet/teller/internal/retrieval"
)

type fakeIntents struct {
	answer string
	err    error
	calls  int
}

func (f *fakeIntents) BestMatch(ctx context.Context, query string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeKnowledge struct {
	result retrieval.Result
	err    error
	calls  int
}

func (f *fakeKnowledge) Retrieve(ctx context.Context, query string) (retrieval.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, query string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type harness struct {
	resolver  *Resolver
	intents   *fakeIntents
	knowledge *fakeKnowledge
	generator *fakeGenerator
}

func newHarness(intents *fakeIntents, knowledge *fakeKnowledge, generator *fakeGenerator) *harness {
	log := slog.New(slog.DiscardHandler)
	return &harness{
		resolver:  New(guardrail.NewFilter(), intents, knowledge, generator, log),
		intents:   intents,
		knowledge: knowledge,
		generator: generator,
	}
}

func TestResolve_GuardrailRejects(t *testing.T) {
	h := newHarness(&fakeIntents{answer: "should not be used"}, &fakeKnowledge{}, &fakeGenerator{})

	res := h.resolver.Resolve(context.Background(), "what is my account number")
	if res.Answer != guardrail.RejectionMessage {
		t.Errorf("answer = %q, want exact rejection message", res.Answer)
	}
	if res.Tier != TierRejected {
		t.Errorf("tier = %v, want TierRejected", res.Tier)
	}
	// A rejected query must reach no tier at all.
	if h.intents.calls != 0 || h.knowledge.calls != 0 || h.generator.calls != 0 {
		t.Errorf("tiers invoked for rejected query: intents=%d knowledge=%d generator=%d",
			h.intents.calls, h.knowledge.calls, h.generator.calls)
	}
}

func TestResolve_IntentShortCircuits(t *testing.T) {
	h := newHarness(
		&fakeIntents{answer: "Log in to the portal and navigate to Loans."},
		&fakeKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeAnswer, Answer: "other"}},
		&fakeGenerator{answer: "generated"},
	)

	res := h.resolver.Resolve(context.Background(), "how can I check my loan status")
	if res.Answer != "Log in to the portal and navigate to Loans." {
		t.Errorf("answer = %q, want the intent output verbatim", res.Answer)
	}
	if res.Tier != TierIntent {
		t.Errorf("tier = %v, want TierIntent", res.Tier)
	}
	if h.knowledge.calls != 0 || h.generator.calls != 0 {
		t.Errorf("later tiers invoked after intent answer: knowledge=%d generator=%d",
			h.knowledge.calls, h.generator.calls)
	}
}

func TestResolve_KnowledgeBypassesFallback(t *testing.T) {
	h := newHarness(
		&fakeIntents{answer: "   "},
		&fakeKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeAnswer, Answer: "EMI payments are due on the 5th.", Score: 0.75}},
		&fakeGenerator{answer: "generated"},
	)

	res := h.resolver.Resolve(context.Background(), "when is my emi due")
	if res.Answer != "EMI payments are due on the 5th." {
		t.Errorf("answer = %q, want knowledge answer", res.Answer)
	}
	if res.Tier != TierKnowledge {
		t.Errorf("tier = %v, want TierKnowledge", res.Tier)
	}
	if h.generator.calls != 0 {
		t.Errorf("generator invoked %d times after knowledge answer, want 0", h.generator.calls)
	}
}

func TestResolve_KnowledgeRejectionIsFinal(t *testing.T) {
	h := newHarness(
		&fakeIntents{answer: ""},
		&fakeKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeRejected, Answer: guardrail.RejectionMessage}},
		&fakeGenerator{answer: "generated"},
	)

	res := h.resolver.Resolve(context.Background(), "some query")
	if res.Answer != guardrail.RejectionMessage {
		t.Errorf("answer = %q, want rejection message", res.Answer)
	}
	if res.Tier != TierRejected {
		t.Errorf("tier = %v, want TierRejected", res.Tier)
	}
	if h.generator.calls != 0 {
		t.Errorf("generator invoked after retriever rejection, want 0 calls")
	}
}

func TestResolve_FallbackAnswers(t *testing.T) {
	h := newHarness(
		&fakeIntents{answer: ""},
		&fakeKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeNoMatch}},
		&fakeGenerator{answer: "An overdraft lets you spend beyond your balance."},
	)

	res := h.resolver.Resolve(context.Background(), "what is an overdraft")
	if res.Tier != TierFallback {
		t.Errorf("tier = %v, want TierFallback", res.Tier)
	}
	if res.Answer != "An overdraft lets you spend beyond your balance." {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestResolve_WhitespaceGenerationFallsThrough(t *testing.T) {
	h := newHarness(
		&fakeIntents{answer: ""},
		&fakeKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeNoMatch}},
		&fakeGenerator{answer: "   \n  "},
	)

	res := h.resolver.Resolve(context.Background(), "obscure question")
	if res.Answer != NoInfoMessage {
		t.Errorf("answer = %q, want exact no-information message", res.Answer)
	}
	if res.Tier != TierNone {
		t.Errorf("tier = %v, want TierNone", res.Tier)
	}
}

func TestResolve_EchoOnlyGenerationFallsThrough(t *testing.T) {
	h := newHarness(
		&fakeIntents{answer: ""},
		&fakeKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeNoMatch}},
		&fakeGenerator{answer: "obscure question"},
	)

	res := h.resolver.Resolve(context.Background(), "obscure question")
	if res.Answer != NoInfoMessage {
		t.Errorf("answer = %q, want no-information message when generation echoes the query", res.Answer)
	}
}

func TestResolve_TierErrorsAdvanceChain(t *testing.T) {
	h := newHarness(
		&fakeIntents{err: errors.New("embed failed")},
		&fakeKnowledge{err: errors.New("embed failed")},
		&fakeGenerator{err: errors.New("generate failed")},
	)

	res := h.resolver.Resolve(context.Background(), "anything")
	if res.Answer != NoInfoMessage {
		t.Errorf("answer = %q, want no-information message when every tier errors", res.Answer)
	}
	// Each tier runs exactly once, never retried.
	if h.intents.calls != 1 || h.knowledge.calls != 1 || h.generator.calls != 1 {
		t.Errorf("tier invocations = %d/%d/%d, want 1/1/1",
			h.intents.calls, h.knowledge.calls, h.generator.calls)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	h := newHarness(
		&fakeIntents{answer: "fixed answer"},
		&fakeKnowledge{},
		&fakeGenerator{},
	)

	first := h.resolver.Resolve(context.Background(), "same query")
	second := h.resolver.Resolve(context.Background(), "same query")
	if first != second {
		t.Errorf("resolutions differ for identical query: %+v vs %+v", first, second)
	}
}
