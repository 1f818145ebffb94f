package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/recruitflow/talent-search/internal/llm"
)

// snippetBudget caps the content preview included per result.
const snippetBudget = 400

// ExplainInput is one scored result needing an explanation.
type ExplainInput struct {
	CandidateID int64
	Content     string
	Score       float64
	MatchedOn   string
}

var explanationSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"explanations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"candidate_id": {"type": "number"},
					"explanation": {"type": "string"}
				},
				"required": ["candidate_id", "explanation"]
			}
		}
	},
	"required": ["explanations"]
}`)

// ExplanationGenerator produces short per-candidate match rationale for tiers
// that did not already emit one.
type ExplanationGenerator struct {
	llm    llm.StructuredClient
	logger *slog.Logger
}

// NewExplanationGenerator creates an ExplanationGenerator.
func NewExplanationGenerator(client llm.StructuredClient) *ExplanationGenerator {
	return &ExplanationGenerator{
		llm:    client,
		logger: slog.Default().With("component", "explanation-generator"),
	}
}

// Generate returns explanations keyed by candidate id.
func (g *ExplanationGenerator) Generate(ctx context.Context, query string, results []ExplainInput, thinking llm.Thinking) (map[int64]string, error) {
	out := make(map[int64]string)
	if len(results) == 0 {
		return out, nil
	}

	snippets := ""
	for _, r := range results {
		snippets += fmt.Sprintf("Candidate %d (score %.3f matched_on=%s): %s\n",
			r.CandidateID, r.Score, r.MatchedOn, truncate(r.Content, snippetBudget))
	}
	prompt := fmt.Sprintf(`You are ranking candidates for a recruiter.
Given the query and snippets, produce 1-2 sentence explanations per candidate highlighting why they match.
Be concise and specific.
Query: %s
Snippets:
%s`, query, snippets)

	var parsed struct {
		Explanations []struct {
			CandidateID int64  `json:"candidate_id"`
			Explanation string `json:"explanation"`
		} `json:"explanations"`
	}
	if err := g.llm.StructuredOutput(ctx, prompt, "result_explanations", explanationSchema, thinking, &parsed); err != nil {
		return nil, fmt.Errorf("generating explanations: %w", err)
	}
	for _, e := range parsed.Explanations {
		out[e.CandidateID] = e.Explanation
	}
	return out, nil
}
