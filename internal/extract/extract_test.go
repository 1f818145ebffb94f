package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/recruitflow/talent-search/internal/llm"
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

type fakeVocab struct {
	names []string
	err   error
}

func (f *fakeVocab) SkillNames(context.Context) ([]string, error) {
	return f.names, f.err
}

func TestExtractNormalizesSkills(t *testing.T) {
	client := &fakeLLM{response: `{
		"search_strategy": "structured",
		"strategy_explanation": "Pure filter query.",
		"semantic_query": "",
		"extracted_filters": {"skills": ["Reactjs", "postgre"]}
	}`}
	e := New(client, &fakeVocab{names: []string{"React", "PostgreSQL", "Python"}}, 0.85, nil)

	ext, err := e.Extract(context.Background(), "candidates with Reactjs and postgre", llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.Strategy != StrategyStructured {
		t.Errorf("expected structured, got %s", ext.Strategy)
	}
	want := []string{"React", "PostgreSQL"}
	for i, skill := range want {
		if ext.Filters.Skills[i] != skill {
			t.Errorf("skill %d: expected %s, got %s", i, skill, ext.Filters.Skills[i])
		}
	}
}

func TestExtractDefaultsSemanticQuery(t *testing.T) {
	client := &fakeLLM{response: `{
		"search_strategy": "semantic",
		"strategy_explanation": "Conceptual query.",
		"semantic_query": "",
		"extracted_filters": {}
	}`}
	e := New(client, &fakeVocab{}, 0.85, nil)

	ext, err := e.Extract(context.Background(), "who demonstrates ownership", llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.SemanticQuery != "who demonstrates ownership" {
		t.Errorf("expected original query as semantic query, got %q", ext.SemanticQuery)
	}
}

func TestExtractUnknownStrategyFallsBackToHybrid(t *testing.T) {
	client := &fakeLLM{response: `{
		"search_strategy": "exotic",
		"strategy_explanation": "",
		"semantic_query": "anything",
		"extracted_filters": {}
	}`}
	e := New(client, &fakeVocab{}, 0.85, nil)

	ext, err := e.Extract(context.Background(), "anything", llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.Strategy != StrategyHybrid {
		t.Errorf("expected hybrid fallback, got %s", ext.Strategy)
	}
}

func TestExtractLLMFailureIsFatal(t *testing.T) {
	client := &fakeLLM{err: errors.New("upstream 500")}
	e := New(client, &fakeVocab{}, 0.85, nil)

	_, err := e.Extract(context.Background(), "anything", llm.ThinkingBalanced)
	if !errors.Is(err, apperrors.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractVocabularyFailureKeepsRawSkills(t *testing.T) {
	client := &fakeLLM{response: `{
		"search_strategy": "structured",
		"strategy_explanation": "",
		"semantic_query": "",
		"extracted_filters": {"skills": ["Reactjs"]}
	}`}
	e := New(client, &fakeVocab{err: errors.New("db down")}, 0.85, nil)

	ext, err := e.Extract(context.Background(), "Reactjs candidates", llm.ThinkingBalanced)
	if err != nil {
		t.Fatalf("vocabulary failure must not fail extraction: %v", err)
	}
	if ext.Filters.Skills[0] != "Reactjs" {
		t.Errorf("expected raw skill kept, got %s", ext.Filters.Skills[0])
	}
}
