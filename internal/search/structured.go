package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/llm"
	"github.com/recruitflow/talent-search/internal/rerank"
	"github.com/recruitflow/talent-search/internal/store"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
)

// searchStructured answers the query with SQL alone. With a job id the
// candidates' latest resumes are reranked against the job description;
// otherwise ranking is the deterministic interview+availability score.
func (s *Service) searchStructured(ctx context.Context, ext *extract.Extraction, jobID *int64, topK int, thinking llm.Thinking) ([]tierResult, error) {
	fetchLimit := topK * 5
	if fetchLimit < 50 {
		fetchLimit = 50
	}

	q := buildCandidateQuery(ext.Filters, jobID, fetchLimit)
	rows, err := s.store.SearchCandidates(ctx, q)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrSearchTier, 500, "structured search: %v", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if jobID != nil {
		results, ok, err := s.rerankResumes(ctx, rows, *jobID, ext, thinking)
		if err != nil {
			return nil, err
		}
		if ok {
			return results, nil
		}
		// no resume text available, fall back to deterministic scoring
	}

	return scoreDeterministic(rows), nil
}

// rerankResumes scores the latest resume of each candidate against the job
// description. Returns ok=false when no candidate has resume text.
func (s *Service) rerankResumes(ctx context.Context, rows []store.CandidateRow, jobID int64, ext *extract.Extraction, thinking llm.Thinking) ([]tierResult, bool, error) {
	job, err := s.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	jobQuery := job.Description
	if jobQuery == "" {
		jobQuery = job.Title
	}
	if jobQuery == "" {
		jobQuery = ext.SemanticQuery
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.CandidateID
	}
	resumes, err := s.store.LatestResumes(ctx, ids)
	if err != nil {
		return nil, false, fmt.Errorf("fetching resumes for job %d: %w", jobID, err)
	}

	var docs []rerank.Doc
	for _, row := range rows {
		text := resumes[row.CandidateID]
		if text == "" {
			continue
		}
		docs = append(docs, rerank.Doc{
			ID:          strconv.FormatInt(row.CandidateID, 10),
			CandidateID: row.CandidateID,
			Content:     text,
		})
	}
	if len(docs) == 0 {
		return nil, false, nil
	}

	scored, err := s.docReranker.Rerank(ctx, jobQuery, docs, thinking)
	if err != nil {
		return nil, false, err
	}

	// aggregate the best score per candidate
	best := make(map[int64]rerank.ScoredDoc, len(scored))
	for _, d := range scored {
		if cur, ok := best[d.CandidateID]; !ok || d.Score > cur.Score {
			best[d.CandidateID] = d
		}
	}
	results := make([]tierResult, 0, len(best))
	for _, d := range best {
		results = append(results, tierResult{
			Result: Result{
				CandidateID: d.CandidateID,
				MatchScore:  d.Score,
				MatchedOn:   MatchedOnResumeRerank,
			},
			content: d.Content,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		return results[i].CandidateID < results[j].CandidateID
	})
	return results, true, nil
}

func scoreDeterministic(rows []store.CandidateRow) []tierResult {
	results := make([]tierResult, 0, len(rows))
	for _, row := range rows {
		var overall *float64
		if row.OverallScore.Valid {
			overall = &row.OverallScore.Float64
		}
		var notice *int64
		if row.NoticePeriodDays.Valid {
			notice = &row.NoticePeriodDays.Int64
		}
		results = append(results, tierResult{
			Result: Result{
				CandidateID: row.CandidateID,
				MatchScore:  structuredScore(overall, row.CanJoinImmediately, notice),
				MatchedOn:   MatchedOnStructuredScore,
			},
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		return results[i].CandidateID < results[j].CandidateID
	})
	return results
}
