// Package rerank implements second-pass relevance scoring: a generic
// document reranker for the job-description structured path, an LLM
// candidate reranker that also emits per-candidate explanations, and an
// explanation generator for tiers that produced none.
package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/recruitflow/talent-search/internal/llm"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/metrics"
)

// Doc is a rerankable document.
type Doc struct {
	ID          string
	CandidateID int64
	Content     string
}

// ScoredDoc is a Doc with its relevance score.
type ScoredDoc struct {
	Doc
	Score float64
}

var docRerankSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"documents": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Document id as given"},
					"relevance_score": {"type": "number", "description": "Relevance score from 0.0 to 1.0"}
				},
				"required": ["id", "relevance_score"]
			}
		}
	},
	"required": ["documents"]
}`)

// DocReranker scores documents against a query without explanations.
type DocReranker struct {
	llm        llm.StructuredClient
	charBudget int
	logger     *slog.Logger
}

// NewDocReranker creates a DocReranker. charBudget caps the characters of
// each document included in the prompt.
func NewDocReranker(client llm.StructuredClient, charBudget int) *DocReranker {
	return &DocReranker{
		llm:        client,
		charBudget: charBudget,
		logger:     slog.Default().With("component", "doc-reranker"),
	}
}

// Rerank returns docs sorted by descending relevance. Documents the model
// omits are dropped.
func (r *DocReranker) Rerank(ctx context.Context, query string, docs []Doc, thinking llm.Thinking) ([]ScoredDoc, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	prompt := r.buildPrompt(query, docs)
	var out struct {
		Documents []struct {
			ID             string  `json:"id"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"documents"`
	}
	if err := r.llm.StructuredOutput(ctx, prompt, "document_rerank", docRerankSchema, thinking, &out); err != nil {
		return nil, fmt.Errorf("%w: document rerank: %v", apperrors.ErrSearchTier, err)
	}

	byID := make(map[string]Doc, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	scored := make([]ScoredDoc, 0, len(out.Documents))
	for _, item := range out.Documents {
		doc, ok := byID[item.ID]
		if !ok {
			continue
		}
		scored = append(scored, ScoredDoc{Doc: doc, Score: clamp01(item.RelevanceScore)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}

func (r *DocReranker) buildPrompt(query string, docs []Doc) string {
	blocks := ""
	for _, d := range docs {
		blocks += fmt.Sprintf("--- DOCUMENT ID: %s ---\n%s\n--- END DOCUMENT ID: %s ---\n\n",
			d.ID, truncate(d.Content, r.charBudget), d.ID)
	}
	return fmt.Sprintf(`You are scoring candidate resumes against a job requirement.

JOB REQUIREMENT: %q

Score each document's relevance to the requirement from 0.0 (irrelevant) to 1.0 (perfect match).

%sReturn JSON with one entry per document, using the document ids exactly as given.`, query, blocks)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}

// CandidateResult is one reranked candidate with its explanation.
type CandidateResult struct {
	CandidateID int64
	MatchScore  float64
	Explanation string
}

var candidateRerankSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"candidates": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"candidate_id": {"type": "number", "description": "Candidate ID from the document"},
					"relevance_score": {"type": "number", "description": "Relevance score from 0.0 to 1.0"},
					"explanation": {"type": "string", "description": "Brief explanation of why this candidate matches the query"}
				},
				"required": ["candidate_id", "relevance_score", "explanation"]
			}
		}
	},
	"required": ["candidates"]
}`)

// CandidateReranker re-evaluates vector hits with the LLM, grouping chunks by
// candidate so the model judges each person once across all their documents.
type CandidateReranker struct {
	llm        llm.StructuredClient
	charBudget int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewCandidateReranker creates a CandidateReranker. metrics may be nil.
func NewCandidateReranker(client llm.StructuredClient, charBudget int, m *metrics.Metrics) *CandidateReranker {
	return &CandidateReranker{
		llm:        client,
		charBudget: charBudget,
		metrics:    m,
		logger:     slog.Default().With("component", "candidate-reranker"),
	}
}

// Rerank returns at most topK candidates sorted by relevance, each with a
// score clamped to [0,1] and a non-empty explanation.
func (r *CandidateReranker) Rerank(ctx context.Context, query string, hits []vectorstore.Hit, topK int, thinking llm.Thinking) ([]CandidateResult, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	prompt, candidateCount := r.buildPrompt(query, hits, topK)
	if candidateCount == 0 {
		return nil, nil
	}

	start := time.Now()
	var out struct {
		Candidates []struct {
			CandidateID    int64   `json:"candidate_id"`
			RelevanceScore float64 `json:"relevance_score"`
			Explanation    string  `json:"explanation"`
		} `json:"candidates"`
	}
	err := r.llm.StructuredOutput(ctx, prompt, "candidate_rerank", candidateRerankSchema, thinking, &out)
	if r.metrics != nil {
		r.metrics.RerankLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: candidate rerank: %v", apperrors.ErrSearchTier, err)
	}

	results := make([]CandidateResult, 0, len(out.Candidates))
	for _, c := range out.Candidates {
		if len(results) >= topK {
			break
		}
		results = append(results, CandidateResult{
			CandidateID: c.CandidateID,
			MatchScore:  clamp01(c.RelevanceScore),
			Explanation: c.Explanation,
		})
	}
	r.logger.Info("rerank complete", "candidates", candidateCount, "returned", len(results))
	return results, nil
}

type candidateBlock struct {
	id      int64
	payload vectorstore.DocPayload
	docs    []vectorstore.DocPayload
}

func (r *CandidateReranker) buildPrompt(query string, hits []vectorstore.Hit, topK int) (string, int) {
	order := make([]int64, 0)
	blocks := make(map[int64]*candidateBlock)
	for _, hit := range hits {
		cid := hit.Payload.CandidateID
		if cid == 0 {
			continue
		}
		block, ok := blocks[cid]
		if !ok {
			block = &candidateBlock{id: cid, payload: hit.Payload}
			blocks[cid] = block
			order = append(order, cid)
		}
		block.docs = append(block.docs, hit.Payload)
	}
	if len(order) == 0 {
		return "", 0
	}

	body := ""
	for _, cid := range order {
		block := blocks[cid]
		docTexts := ""
		for i, doc := range block.docs {
			if i > 0 {
				docTexts += "\n\n"
			}
			docTexts += fmt.Sprintf("[%s]: %s", doc.DocType, truncate(doc.EmbeddedText, r.charBudget))
		}
		body += fmt.Sprintf(`--- CANDIDATE ID: %d ---
Current Title: %s
Current Company: %s
Current Location: %s
Experience: %s years
Added Skills: %s
Notice Period (days): %s
Can Join Immediately: %t
Expected Salary (LPA): %s
Preferred Work Type: %s

DOCUMENTS:
%s
--- END CANDIDATE ID: %d ---

`,
			cid,
			orNA(block.payload.CurrentTitle),
			orNA(block.payload.CurrentCompany),
			orNA(block.payload.CurrentLocation),
			floatOrNA(block.payload.TotalExperienceYears),
			skillsOrNA(block.payload.Skills),
			intOrNA(block.payload.NoticePeriodDays),
			block.payload.CanJoinImmediately,
			floatOrNA(block.payload.ExpectedSalaryLPA),
			orNA(block.payload.PreferredWorkType),
			docTexts,
			cid,
		)
	}

	returnCount := topK
	if len(order) < returnCount {
		returnCount = len(order)
	}

	prompt := fmt.Sprintf(`You are a recruiting assistant evaluating candidate relevance.

SEARCH QUERY: %q

Evaluate the following %d candidates and rank them by relevance to the query.
Return the top %d most relevant candidates with scores and brief explanations.

%sINSTRUCTIONS:
1. Read each candidate's documents (resume, transcripts, comments) carefully
2. Evaluate strict relevance to the search query - not just keyword matches
3. Consider skills, experience, and qualitative aspects mentioned in documents
4. Assign relevance_score from 0.0 (irrelevant) to 1.0 (perfect match)
5. Write a concise explanation (1-2 sentences) for each candidate
6. Return candidates sorted by relevance_score descending

Return JSON with exactly %d candidates.`, query, len(order), returnCount, body, returnCount)
	return prompt, len(order)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func intOrNA(v *int64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}

func floatOrNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *v)
}

func skillsOrNA(skills []string) string {
	if len(skills) == 0 {
		return "N/A"
	}
	out := skills[0]
	for _, s := range skills[1:] {
		out += ", " + s
	}
	return out
}
