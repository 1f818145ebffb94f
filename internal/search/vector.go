package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/recruitflow/talent-search/internal/embedding"
	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/llm"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
)

// searchHybrid keeps the extracted filters as a vector store payload filter
// on top of the fused dense+sparse query.
func (s *Service) searchHybrid(ctx context.Context, ext *extract.Extraction, jobID *int64, topK int, thinking llm.Thinking) ([]tierResult, error) {
	filter, err := s.vectorFilterWithJob(ctx, ext.Filters, jobID)
	if err != nil {
		return nil, err
	}
	return s.vectorSearch(ctx, ext.SemanticQuery, filter, topK, thinking, MatchedOnHybrid)
}

// searchSemantic ignores the extracted filters entirely; only the job
// restriction (when present) applies.
func (s *Service) searchSemantic(ctx context.Context, ext *extract.Extraction, jobID *int64, topK int, thinking llm.Thinking) ([]tierResult, error) {
	filter, err := s.vectorFilterWithJob(ctx, extract.Filters{}, jobID)
	if err != nil {
		return nil, err
	}
	return s.vectorSearch(ctx, ext.SemanticQuery, filter, topK, thinking, MatchedOnSemantic)
}

func (s *Service) vectorSearch(ctx context.Context, query string, filter *vectorstore.Filter, topK int, thinking llm.Thinking, matchedOn string) ([]tierResult, error) {
	dense, sparse, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	limit := topK * s.cfg.RerankFetchMultiplier
	if limit < 80 {
		limit = 80
	}
	hits, err := s.vectors.HybridSearch(ctx, dense, sparse, filter, uint64(limit))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ranked, err := s.candReranker.Rerank(ctx, query, hits, topK, thinking)
	if err != nil {
		return nil, err
	}

	results := make([]tierResult, len(ranked))
	for i, r := range ranked {
		results[i] = tierResult{Result: Result{
			CandidateID: r.CandidateID,
			MatchScore:  r.MatchScore,
			MatchedOn:   matchedOn,
			Explanation: r.Explanation,
		}}
	}
	return results, nil
}

// embedQuery computes the dense and sparse query vectors concurrently. The
// dense call goes through a circuit breaker since it is a remote API.
func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, vectorstore.SparseVector, error) {
	var (
		dense  []float32
		sparse vectorstore.SparseVector
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.denseBreaker.Execute(func() error {
			var err error
			dense, err = s.dense.Embed(gctx, query, embedding.InputQuery)
			return err
		})
	})
	g.Go(func() error {
		var err error
		sparse, err = s.sparse.Embed(gctx, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, vectorstore.SparseVector{}, apperrors.Newf(apperrors.ErrEmbedding, 502, "embedding query: %v", err)
	}
	return dense, sparse, nil
}
