// Package search implements the three-tier search router: intent extraction,
// structured / hybrid / semantic execution, reranking, and explanation.
package search

import (
	"github.com/recruitflow/talent-search/internal/extract"
)

// Tags describing which tier/method produced a result.
const (
	MatchedOnStructuredScore = "structured_score"
	MatchedOnResumeRerank    = "resume_rerank"
	MatchedOnHybrid          = "hybrid"
	MatchedOnSemantic        = "semantic"
)

// Request is one search invocation.
type Request struct {
	Query    string `json:"query"`
	JobID    *int64 `json:"job_id,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// Result is one ranked candidate. MatchScore is in [0,1] for hybrid/semantic
// results and an additive 0-80 score for structured results; scores are never
// mixed across tiers within one response.
type Result struct {
	CandidateID int64   `json:"candidate_id"`
	MatchScore  float64 `json:"match_score"`
	MatchedOn   string  `json:"matched_on"`
	Explanation string  `json:"explanation"`
}

// Response is the full search reply.
type Response struct {
	Query               string           `json:"query"`
	Strategy            extract.Strategy `json:"search_strategy"`
	Filters             extract.Filters  `json:"extracted_filters"`
	StrategyExplanation string           `json:"strategy_explanation"`
	Results             []Result         `json:"results"`
}

// tierResult carries a Result plus the content snippet used for explanation
// generation on the structured path.
type tierResult struct {
	Result
	content string
}
