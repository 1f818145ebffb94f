package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/recruitflow/talent-search/internal/llm"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) StructuredOutput(_ context.Context, prompt, _ string, _ json.RawMessage, _ llm.Thinking, out any) error {
	f.prompt = prompt
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), out)
}

func TestDocRerankerClampsAndSorts(t *testing.T) {
	client := &fakeLLM{response: `{"documents": [
		{"id": "1", "relevance_score": -0.3},
		{"id": "2", "relevance_score": 1.7},
		{"id": "3", "relevance_score": 0.5}
	]}`}
	r := NewDocReranker(client, 2000)

	docs := []Doc{
		{ID: "1", CandidateID: 1, Content: "a"},
		{ID: "2", CandidateID: 2, Content: "b"},
		{ID: "3", CandidateID: 3, Content: "c"},
	}
	scored, err := r.Rerank(context.Background(), "go engineer", docs, llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 3 {
		t.Fatalf("expected 3 results, got %d", len(scored))
	}
	if scored[0].ID != "2" || scored[0].Score != 1 {
		t.Errorf("expected doc 2 clamped to 1, got %s score %g", scored[0].ID, scored[0].Score)
	}
	if scored[2].ID != "1" || scored[2].Score != 0 {
		t.Errorf("expected doc 1 clamped to 0, got %s score %g", scored[2].ID, scored[2].Score)
	}
}

func TestDocRerankerDropsUnknownIDs(t *testing.T) {
	client := &fakeLLM{response: `{"documents": [
		{"id": "1", "relevance_score": 0.8},
		{"id": "999", "relevance_score": 0.9}
	]}`}
	r := NewDocReranker(client, 2000)

	scored, err := r.Rerank(context.Background(), "q", []Doc{{ID: "1", Content: "a"}}, llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 1 || scored[0].ID != "1" {
		t.Errorf("hallucinated ids must be dropped, got %+v", scored)
	}
}

func TestDocRerankerEmptyInput(t *testing.T) {
	r := NewDocReranker(&fakeLLM{}, 2000)
	scored, err := r.Rerank(context.Background(), "q", nil, llm.ThinkingBalanced)
	if err != nil || scored != nil {
		t.Errorf("expected nil, nil for empty input, got %v, %v", scored, err)
	}
}

func testHits() []vectorstore.Hit {
	return []vectorstore.Hit{
		{ID: "a", Score: 0.9, Payload: vectorstore.DocPayload{
			CandidateID:  1,
			DocType:      "resume",
			EmbeddedText: "built payment services in Go",
			CurrentTitle: "Backend Engineer",
		}},
		{ID: "b", Score: 0.8, Payload: vectorstore.DocPayload{
			CandidateID:  1,
			DocType:      "interview_transcript",
			EmbeddedText: "discussed database sharding",
		}},
		{ID: "c", Score: 0.7, Payload: vectorstore.DocPayload{
			CandidateID:  2,
			DocType:      "resume",
			EmbeddedText: "frontend work with React",
		}},
	}
}

func TestCandidateRerankerGroupsByCandidate(t *testing.T) {
	client := &fakeLLM{response: `{"candidates": [
		{"candidate_id": 1, "relevance_score": 0.9, "explanation": "Strong backend depth."},
		{"candidate_id": 2, "relevance_score": 0.4, "explanation": "Frontend focus."}
	]}`}
	r := NewCandidateReranker(client, 2000, nil)

	results, err := r.Rerank(context.Background(), "backend engineers", testHits(), 10, llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(results))
	}
	// both chunks of candidate 1 must land in a single block
	if strings.Count(client.prompt, "--- CANDIDATE ID: 1 ---") != 1 {
		t.Errorf("candidate 1 should appear once in the prompt:\n%s", client.prompt)
	}
	if !strings.Contains(client.prompt, "built payment services in Go") ||
		!strings.Contains(client.prompt, "discussed database sharding") {
		t.Error("all chunks of a candidate must be included")
	}
}

func TestCandidateRerankerPromptAsksForAvailableCount(t *testing.T) {
	client := &fakeLLM{response: `{"candidates": [
		{"candidate_id": 1, "relevance_score": 0.9, "explanation": "x"},
		{"candidate_id": 2, "relevance_score": 0.8, "explanation": "y"}
	]}`}
	r := NewCandidateReranker(client, 2000, nil)

	// only 2 candidates exist; asking for the top 10 invites made-up ids
	if _, err := r.Rerank(context.Background(), "q", testHits(), 10, llm.ThinkingBalanced); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(client.prompt, "Return the top 2 most relevant") {
		t.Errorf("prompt must request only the available candidates:\n%s", client.prompt)
	}
	if !strings.Contains(client.prompt, "Return JSON with exactly 2 candidates.") {
		t.Errorf("closing instruction must match the requested count:\n%s", client.prompt)
	}
	if strings.Contains(client.prompt, "top 10") {
		t.Error("prompt must not ask for more candidates than exist")
	}
}

func TestCandidateRerankerCapsAtTopK(t *testing.T) {
	client := &fakeLLM{response: `{"candidates": [
		{"candidate_id": 1, "relevance_score": 0.9, "explanation": "x"},
		{"candidate_id": 2, "relevance_score": 0.8, "explanation": "y"}
	]}`}
	r := NewCandidateReranker(client, 2000, nil)

	results, err := r.Rerank(context.Background(), "q", testHits(), 1, llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestCandidateRerankerClampsScores(t *testing.T) {
	client := &fakeLLM{response: `{"candidates": [
		{"candidate_id": 1, "relevance_score": 2.5, "explanation": "x"}
	]}`}
	r := NewCandidateReranker(client, 2000, nil)

	results, err := r.Rerank(context.Background(), "q", testHits(), 10, llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].MatchScore != 1 {
		t.Errorf("expected score clamped to 1, got %g", results[0].MatchScore)
	}
}

func TestCandidateRerankerLLMFailure(t *testing.T) {
	r := NewCandidateReranker(&fakeLLM{err: errors.New("timeout")}, 2000, nil)
	_, err := r.Rerank(context.Background(), "q", testHits(), 10, llm.ThinkingBalanced)
	if !errors.Is(err, apperrors.ErrSearchTier) {
		t.Fatalf("expected search tier error, got %v", err)
	}
}

func TestExplanationGenerator(t *testing.T) {
	client := &fakeLLM{response: `{"explanations": [
		{"candidate_id": 1, "explanation": "Matches the location and notice constraints."}
	]}`}
	g := NewExplanationGenerator(client)

	got, err := g.Generate(context.Background(), "q", []ExplainInput{
		{CandidateID: 1, Content: "resume text", Score: 70, MatchedOn: "structured_score"},
	}, llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[1] == "" {
		t.Error("expected explanation for candidate 1")
	}
}
