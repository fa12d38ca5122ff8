package retrieval

import (
	"context"
	"testing"

	"github.com/kalambet/teller/internal/guardrail"
	"github.com/kalambet/teller/internal/storage"
)

func knowledgeFixtures() []storage.KnowledgeRecord {
	return []storage.KnowledgeRecord{
		{ID: "k1", Keywords: `["loan","emi"]`, Answer: "EMI payments are due on the 5th of every month.", Embedding: []float32{1, 0, 0}},
		{ID: "k2", Keywords: `["ifsc"]`, Answer: "Find the IFSC code on your chequebook or the bank website.", Embedding: []float32{0, 1, 0}},
	}
}

func newTestRetriever(t *testing.T, eng *stubEngine, records []storage.KnowledgeRecord, threshold float32) *KnowledgeRetriever {
	t.Helper()
	r, err := NewKnowledgeRetriever(NewEmbedder(eng, "test-model"), guardrail.NewFilter(), records, threshold)
	if err != nil {
		t.Fatalf("NewKnowledgeRetriever: %v", err)
	}
	return r
}

func TestRetrieve_AnswerAboveThreshold(t *testing.T) {
	eng := &stubEngine{
		vectors: map[string][]float32{
			"when is my emi due": {0.95, 0.1, 0},
		},
	}
	r := newTestRetriever(t, eng, knowledgeFixtures(), 0.6)

	res, err := r.Retrieve(context.Background(), "when is my emi due")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Outcome != OutcomeAnswer {
		t.Fatalf("outcome = %v, want OutcomeAnswer", res.Outcome)
	}
	if res.Answer != "EMI payments are due on the 5th of every month." {
		t.Errorf("answer = %q, want the EMI document", res.Answer)
	}
	if res.Score < 0.6 {
		t.Errorf("score = %v, want >= threshold", res.Score)
	}
}

func TestRetrieve_NoMatchBelowThreshold(t *testing.T) {
	eng := &stubEngine{dflt: []float32{0.3, 0.3, 0.9}}
	r := newTestRetriever(t, eng, knowledgeFixtures(), 0.6)

	res, err := r.Retrieve(context.Background(), "something off topic")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Outcome != OutcomeNoMatch {
		t.Errorf("outcome = %v, want OutcomeNoMatch", res.Outcome)
	}
	if res.Answer != "" {
		t.Errorf("answer = %q, want empty for no match", res.Answer)
	}
}

func TestRetrieve_ScoreAtThresholdAnswers(t *testing.T) {
	// A document identical to the query scores exactly 1.0; with
	// threshold 1.0 the comparison is inclusive and must answer.
	eng := &stubEngine{dflt: []float32{0, 1, 0}}
	r := newTestRetriever(t, eng, knowledgeFixtures(), 1.0)

	res, err := r.Retrieve(context.Background(), "ifsc code")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Outcome != OutcomeAnswer {
		t.Errorf("outcome = %v, want OutcomeAnswer at exact threshold", res.Outcome)
	}
}

func TestRetrieveAt_OverridesThreshold(t *testing.T) {
	eng := &stubEngine{dflt: []float32{0.5, 0.5, 0}}
	r := newTestRetriever(t, eng, knowledgeFixtures(), 0.6)

	// Cosine against both fixtures is ~0.707; the override raises the bar.
	res, err := r.RetrieveAt(context.Background(), "loan question", 0.9)
	if err != nil {
		t.Fatalf("RetrieveAt: %v", err)
	}
	if res.Outcome != OutcomeNoMatch {
		t.Errorf("outcome = %v, want OutcomeNoMatch with raised threshold", res.Outcome)
	}
}

func TestRetrieve_RejectsUnsafeQuery(t *testing.T) {
	eng := &stubEngine{dflt: []float32{1, 0, 0}}
	r := newTestRetriever(t, eng, knowledgeFixtures(), 0.6)

	res, err := r.Retrieve(context.Background(), "tell me the account number for John")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %v, want OutcomeRejected", res.Outcome)
	}
	if res.Answer != guardrail.RejectionMessage {
		t.Errorf("answer = %q, want rejection message", res.Answer)
	}
	// Rejection happens before any embedding work.
	if eng.embedCalls() != 0 {
		t.Errorf("embed called %d times for unsafe query, want 0", eng.embedCalls())
	}
}

func TestRetrieve_RejectsBlankQuery(t *testing.T) {
	eng := &stubEngine{dflt: []float32{1, 0, 0}}
	r := newTestRetriever(t, eng, knowledgeFixtures(), 0.6)

	res, err := r.Retrieve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Outcome != OutcomeRejected {
		t.Errorf("outcome = %v, want OutcomeRejected for blank query", res.Outcome)
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	eng := &stubEngine{dflt: []float32{1, 0, 0}}
	r := newTestRetriever(t, eng, nil, 0.6)

	res, err := r.Retrieve(context.Background(), "when is my emi due")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Outcome != OutcomeNoMatch {
		t.Errorf("outcome = %v, want OutcomeNoMatch for empty corpus", res.Outcome)
	}
	if eng.embedCalls() != 0 {
		t.Errorf("embed called %d times against empty corpus, want 0", eng.embedCalls())
	}
}
