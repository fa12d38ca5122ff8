package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/teller/internal/resolver"
	"github.com/kalambet/teller/internal/retrieval"
)

// --- mocks ---

type mockResolver struct {
	resolution resolver.Resolution
	gotQuery   string
}

func (m *mockResolver) Resolve(_ context.Context, query string) resolver.Resolution {
	m.gotQuery = query
	return m.resolution
}

type mockKnowledge struct {
	result       retrieval.Result
	err          error
	gotThreshold float32
	atCalled     bool
}

func (m *mockKnowledge) Retrieve(_ context.Context, _ string) (retrieval.Result, error) {
	return m.result, m.err
}

func (m *mockKnowledge) RetrieveAt(_ context.Context, _ string, threshold float32) (retrieval.Result, error) {
	m.atCalled = true
	m.gotThreshold = threshold
	return m.result, m.err
}

// --- helpers ---

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestResolveQueryTool(t *testing.T) {
	res := &mockResolver{resolution: resolver.Resolution{
		Answer: "Log in to the portal and navigate to Loans.",
		Tier:   resolver.TierIntent,
	}}
	deps := MCPDeps{Resolver: res, Knowledge: &mockKnowledge{}}

	handler := mcpResolveQuery(deps)
	result, err := handler(context.Background(), makeCallToolRequest("resolve_query", map[string]interface{}{
		"query": "how can I check my loan status",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(toolText(t, result)), &payload); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if payload["answer"] != "Log in to the portal and navigate to Loans." {
		t.Errorf("answer = %q", payload["answer"])
	}
	if payload["tier"] != "intent" {
		t.Errorf("tier = %q, want intent", payload["tier"])
	}
	if res.gotQuery != "how can I check my loan status" {
		t.Errorf("resolver received %q", res.gotQuery)
	}
}

func TestResolveQueryTool_MissingQuery(t *testing.T) {
	deps := MCPDeps{Resolver: &mockResolver{}, Knowledge: &mockKnowledge{}}

	handler := mcpResolveQuery(deps)
	result, err := handler(context.Background(), makeCallToolRequest("resolve_query", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing query")
	}
}

func TestSearchKnowledgeTool(t *testing.T) {
	deps := MCPDeps{
		Resolver: &mockResolver{},
		Knowledge: &mockKnowledge{result: retrieval.Result{
			Outcome: retrieval.OutcomeAnswer,
			Answer:  "EMIs are due on the 5th.",
			Score:   0.82,
		}},
	}

	handler := mcpSearchKnowledge(deps)
	result, err := handler(context.Background(), makeCallToolRequest("search_knowledge", map[string]interface{}{
		"query": "when is my emi due",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	var payload struct {
		Outcome string  `json:"outcome"`
		Answer  string  `json:"answer"`
		Score   float32 `json:"score"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &payload); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if payload.Outcome != "answer" {
		t.Errorf("outcome = %q, want answer", payload.Outcome)
	}
	if payload.Score != 0.82 {
		t.Errorf("score = %v, want 0.82", payload.Score)
	}
}

func TestSearchKnowledgeTool_ThresholdOverride(t *testing.T) {
	knowledge := &mockKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeNoMatch, Score: 0.5}}
	deps := MCPDeps{Resolver: &mockResolver{}, Knowledge: knowledge}

	handler := mcpSearchKnowledge(deps)
	_, err := handler(context.Background(), makeCallToolRequest("search_knowledge", map[string]interface{}{
		"query":     "when is my emi due",
		"threshold": 0.9,
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !knowledge.atCalled {
		t.Fatal("expected RetrieveAt to be used when threshold is given")
	}
	if knowledge.gotThreshold != 0.9 {
		t.Errorf("threshold = %v, want 0.9", knowledge.gotThreshold)
	}
}

func TestSearchKnowledgeTool_NoMatch(t *testing.T) {
	deps := MCPDeps{
		Resolver:  &mockResolver{},
		Knowledge: &mockKnowledge{result: retrieval.Result{Outcome: retrieval.OutcomeNoMatch}},
	}

	handler := mcpSearchKnowledge(deps)
	result, err := handler(context.Background(), makeCallToolRequest("search_knowledge", map[string]interface{}{
		"query": "off topic",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &payload); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if payload["outcome"] != "no_match" {
		t.Errorf("outcome = %v, want no_match", payload["outcome"])
	}
}

func TestSearchKnowledgeTool_RetrievalError(t *testing.T) {
	deps := MCPDeps{
		Resolver:  &mockResolver{},
		Knowledge: &mockKnowledge{err: errors.New("engine down")},
	}

	handler := mcpSearchKnowledge(deps)
	result, err := handler(context.Background(), makeCallToolRequest("search_knowledge", map[string]interface{}{
		"query": "anything",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error when retrieval fails")
	}
}

func TestStatsResource(t *testing.T) {
	deps := MCPDeps{
		Resolver:       &mockResolver{},
		Knowledge:      &mockKnowledge{},
		IntentCount:    42,
		KnowledgeCount: 7,
	}

	handler := mcpResourceStats(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("teller://stats"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}

	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var stats map[string]int
	if err := json.Unmarshal([]byte(text.Text), &stats); err != nil {
		t.Fatalf("stats not JSON: %v", err)
	}
	if stats["intents"] != 42 || stats["knowledge"] != 7 {
		t.Errorf("stats = %v, want intents=42 knowledge=7", stats)
	}
}

func TestNewMCPServer(t *testing.T) {
	s := NewMCPServer(MCPDeps{Resolver: &mockResolver{}, Knowledge: &mockKnowledge{}})
	if s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
