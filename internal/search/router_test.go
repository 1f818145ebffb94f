package search

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/recruitflow/talent-search/internal/embedding"
	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/llm"
	"github.com/recruitflow/talent-search/internal/rerank"
	"github.com/recruitflow/talent-search/internal/store"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	"github.com/recruitflow/talent-search/pkg/config"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/metrics"
)

// registered once; the prometheus default registry rejects duplicates
var testMetrics = metrics.New()

type fakeStorage struct {
	rows       []store.CandidateRow
	lastQuery  store.CandidateQuery
	job        *store.Job
	jobErr     error
	applicants []int64
	resumes    map[int64]string
}

func (f *fakeStorage) SearchCandidates(_ context.Context, q store.CandidateQuery) ([]store.CandidateRow, error) {
	f.lastQuery = q
	return f.rows, nil
}

func (f *fakeStorage) JobByID(context.Context, int64) (*store.Job, error) {
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	return f.job, nil
}

func (f *fakeStorage) CandidateIDsForJob(context.Context, int64) ([]int64, error) {
	return f.applicants, nil
}

func (f *fakeStorage) LatestResumes(context.Context, []int64) (map[int64]string, error) {
	return f.resumes, nil
}

type fakeVectors struct {
	hits       []vectorstore.Hit
	err        error
	lastFilter *vectorstore.Filter
	lastLimit  uint64
}

func (f *fakeVectors) HybridSearch(_ context.Context, _ []float32, _ vectorstore.SparseVector, filter *vectorstore.Filter, limit uint64) ([]vectorstore.Hit, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	return f.hits, f.err
}

type fakeExtractor struct {
	extraction *extract.Extraction
	err        error
}

func (f *fakeExtractor) Extract(context.Context, string, llm.Thinking) (*extract.Extraction, error) {
	return f.extraction, f.err
}

type fakeDense struct{}

func (fakeDense) Embed(context.Context, string, embedding.InputType) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeSparse struct{}

func (fakeSparse) Embed(context.Context, string) (vectorstore.SparseVector, error) {
	return vectorstore.SparseVector{Indices: []uint32{1}, Values: []float32{1}}, nil
}

type fakeDocScorer struct {
	scored []rerank.ScoredDoc
	err    error
}

func (f *fakeDocScorer) Rerank(_ context.Context, _ string, _ []rerank.Doc, _ llm.Thinking) ([]rerank.ScoredDoc, error) {
	return f.scored, f.err
}

type fakeCandScorer struct {
	results  []rerank.CandidateResult
	err      error
	lastTopK int
}

func (f *fakeCandScorer) Rerank(_ context.Context, _ string, _ []vectorstore.Hit, topK int, _ llm.Thinking) ([]rerank.CandidateResult, error) {
	f.lastTopK = topK
	return f.results, f.err
}

type fakeExplainer struct {
	explanations map[int64]string
	err          error
}

func (f *fakeExplainer) Generate(context.Context, string, []rerank.ExplainInput, llm.Thinking) (map[int64]string, error) {
	return f.explanations, f.err
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultTopK:           10,
		MaxTopK:               50,
		RerankFetchMultiplier: 3,
		ExplanationType:       "llm",
		ChunkCharBudget:       2000,
	}
}

func newTestService(deps Dependencies) *Service {
	deps.Config = testConfig()
	deps.DefaultThinking = llm.ThinkingBalanced
	deps.Metrics = testMetrics
	return NewService(deps)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := newTestService(Dependencies{Extractor: &fakeExtractor{}})
	_, err := svc.Search(context.Background(), Request{Query: "   "})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestSearchStructuredDeterministicRanking(t *testing.T) {
	st := &fakeStorage{rows: []store.CandidateRow{
		{CandidateID: 1, CanJoinImmediately: false, NoticePeriodDays: sql.NullInt64{Int64: 60, Valid: true}},
		{CandidateID: 2, CanJoinImmediately: true, OverallScore: sql.NullFloat64{Float64: 4.0, Valid: true}},
		{CandidateID: 3, CanJoinImmediately: false, NoticePeriodDays: sql.NullInt64{Int64: 5, Valid: true}},
	}}
	svc := newTestService(Dependencies{
		Store: st,
		Extractor: &fakeExtractor{extraction: &extract.Extraction{
			Strategy:      extract.StrategyStructured,
			SemanticQuery: "immediate joiners",
		}},
		Explainer: &fakeExplainer{explanations: map[int64]string{2: "Strong interviews, available now."}},
	})

	resp, err := svc.Search(context.Background(), Request{Query: "immediate joiners", TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Strategy != extract.StrategyStructured {
		t.Errorf("expected structured strategy, got %s", resp.Strategy)
	}
	if st.lastQuery.Limit != 50 {
		t.Errorf("expected overfetch limit 50, got %d", st.lastQuery.Limit)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	// candidate 2: 40 interview + 30 availability; candidate 3: 15; candidate 1: 0
	wantOrder := []int64{2, 3, 1}
	for i, want := range wantOrder {
		if resp.Results[i].CandidateID != want {
			t.Errorf("position %d: expected candidate %d, got %d", i, want, resp.Results[i].CandidateID)
		}
		if resp.Results[i].MatchedOn != MatchedOnStructuredScore {
			t.Errorf("expected matched_on %s, got %s", MatchedOnStructuredScore, resp.Results[i].MatchedOn)
		}
		if resp.Results[i].Explanation == "" {
			t.Errorf("candidate %d has no explanation", resp.Results[i].CandidateID)
		}
	}
	if resp.Results[0].Explanation != "Strong interviews, available now." {
		t.Errorf("llm explanation not applied: %q", resp.Results[0].Explanation)
	}
	if resp.Results[0].MatchScore != 70 {
		t.Errorf("expected score 70, got %g", resp.Results[0].MatchScore)
	}
}

func TestSearchStructuredExplanationFallback(t *testing.T) {
	st := &fakeStorage{rows: []store.CandidateRow{{CandidateID: 1, CanJoinImmediately: true}}}
	svc := newTestService(Dependencies{
		Store: st,
		Extractor: &fakeExtractor{extraction: &extract.Extraction{
			Strategy:            extract.StrategyStructured,
			StrategyExplanation: "All constraints are structured.",
		}},
		Explainer: &fakeExplainer{err: errors.New("llm unavailable")},
	})

	resp, err := svc.Search(context.Background(), Request{Query: "available candidates"})
	if err != nil {
		t.Fatalf("explanation failure must not fail the request: %v", err)
	}
	if resp.Results[0].Explanation == "" {
		t.Error("expected deterministic fallback explanation")
	}
}

func TestSearchStructuredResumeRerankForJob(t *testing.T) {
	jobID := int64(12)
	st := &fakeStorage{
		rows: []store.CandidateRow{{CandidateID: 1}, {CandidateID: 2}},
		job:  &store.Job{JobID: jobID, Title: "Backend Engineer", Description: "Go services"},
		resumes: map[int64]string{
			1: "resume one",
			2: "resume two",
		},
	}
	svc := newTestService(Dependencies{
		Store: st,
		Extractor: &fakeExtractor{extraction: &extract.Extraction{
			Strategy: extract.StrategyStructured,
		}},
		DocReranker: &fakeDocScorer{scored: []rerank.ScoredDoc{
			{Doc: rerank.Doc{ID: "2", CandidateID: 2, Content: "resume two"}, Score: 0.9},
			{Doc: rerank.Doc{ID: "1", CandidateID: 1, Content: "resume one"}, Score: 0.4},
		}},
		Explainer: &fakeExplainer{},
	})

	resp, err := svc.Search(context.Background(), Request{Query: "best fits", JobID: &jobID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].CandidateID != 2 || resp.Results[0].MatchScore != 0.9 {
		t.Errorf("unexpected top result: %+v", resp.Results[0])
	}
	if resp.Results[0].MatchedOn != MatchedOnResumeRerank {
		t.Errorf("expected matched_on %s, got %s", MatchedOnResumeRerank, resp.Results[0].MatchedOn)
	}
}

func TestSearchSemanticIgnoresFilters(t *testing.T) {
	vectors := &fakeVectors{hits: []vectorstore.Hit{
		{ID: "a", Score: 0.8, Payload: vectorstore.DocPayload{CandidateID: 9}},
	}}
	svc := newTestService(Dependencies{
		Vectors: vectors,
		Dense:   fakeDense{},
		Sparse:  fakeSparse{},
		Extractor: &fakeExtractor{extraction: &extract.Extraction{
			Strategy:      extract.StrategySemantic,
			SemanticQuery: "strong communicators",
			Filters:       extract.Filters{Locations: []string{"Pune"}},
		}},
		CandReranker: &fakeCandScorer{results: []rerank.CandidateResult{
			{CandidateID: 9, MatchScore: 0.75, Explanation: "Clear, structured answers."},
		}},
	})

	resp, err := svc.Search(context.Background(), Request{Query: "strong communicators"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors.lastFilter != nil {
		t.Error("semantic tier must not apply extracted filters")
	}
	if vectors.lastLimit != 80 {
		t.Errorf("expected fetch limit 80, got %d", vectors.lastLimit)
	}
	if resp.Results[0].MatchedOn != MatchedOnSemantic {
		t.Errorf("expected matched_on %s, got %s", MatchedOnSemantic, resp.Results[0].MatchedOn)
	}
	if resp.Results[0].Explanation == "" {
		t.Error("semantic results must carry reranker explanations")
	}
}

func TestSearchHybridZeroApplicantJob(t *testing.T) {
	jobID := int64(99)
	vectors := &fakeVectors{}
	svc := newTestService(Dependencies{
		Store:   &fakeStorage{applicants: nil},
		Vectors: vectors,
		Dense:   fakeDense{},
		Sparse:  fakeSparse{},
		Extractor: &fakeExtractor{extraction: &extract.Extraction{
			Strategy:      extract.StrategyHybrid,
			SemanticQuery: "java developers",
		}},
		CandReranker: &fakeCandScorer{},
	})

	resp, err := svc.Search(context.Background(), Request{Query: "java developers", JobID: &jobID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results for job without applicants, got %d", len(resp.Results))
	}
	if vectors.lastFilter == nil || len(vectors.lastFilter.Must) != 1 {
		t.Error("expected an impossible applicant restriction, not an unfiltered search")
	}
}

func TestSearchTopKClampedToMax(t *testing.T) {
	scorer := &fakeCandScorer{}
	svc := newTestService(Dependencies{
		Vectors: &fakeVectors{hits: []vectorstore.Hit{{ID: "a"}}},
		Dense:   fakeDense{},
		Sparse:  fakeSparse{},
		Extractor: &fakeExtractor{extraction: &extract.Extraction{
			Strategy:      extract.StrategyHybrid,
			SemanticQuery: "anyone",
		}},
		CandReranker: scorer,
	})

	if _, err := svc.Search(context.Background(), Request{Query: "anyone", TopK: 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scorer.lastTopK != 50 {
		t.Errorf("expected topK clamped to 50, got %d", scorer.lastTopK)
	}
}

func TestSearchTierErrorIsFatal(t *testing.T) {
	svc := newTestService(Dependencies{
		Vectors: &fakeVectors{hits: []vectorstore.Hit{{ID: "a"}}},
		Dense:   fakeDense{},
		Sparse:  fakeSparse{},
		Extractor: &fakeExtractor{extraction: &extract.Extraction{
			Strategy:      extract.StrategyHybrid,
			SemanticQuery: "anyone",
		}},
		CandReranker: &fakeCandScorer{err: errors.New("rerank failed")},
	})

	if _, err := svc.Search(context.Background(), Request{Query: "anyone"}); err == nil {
		t.Fatal("expected tier failure to fail the request")
	}
}
