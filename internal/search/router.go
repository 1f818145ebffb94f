package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/recruitflow/talent-search/internal/analytics"
	"github.com/recruitflow/talent-search/internal/embedding"
	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/llm"
	"github.com/recruitflow/talent-search/internal/rerank"
	"github.com/recruitflow/talent-search/internal/store"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	"github.com/recruitflow/talent-search/pkg/config"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/logger"
	"github.com/recruitflow/talent-search/pkg/metrics"
	"github.com/recruitflow/talent-search/pkg/resilience"
	"github.com/recruitflow/talent-search/pkg/tracing"
)

// Storage is the subset of the relational store the search service uses.
type Storage interface {
	SearchCandidates(ctx context.Context, q store.CandidateQuery) ([]store.CandidateRow, error)
	JobByID(ctx context.Context, jobID int64) (*store.Job, error)
	CandidateIDsForJob(ctx context.Context, jobID int64) ([]int64, error)
	LatestResumes(ctx context.Context, candidateIDs []int64) (map[int64]string, error)
}

// VectorSearcher runs fused dense+sparse queries against the vector store.
type VectorSearcher interface {
	HybridSearch(ctx context.Context, dense []float32, sparse vectorstore.SparseVector, filter *vectorstore.Filter, limit uint64) ([]vectorstore.Hit, error)
}

// IntentExtractor turns a free-text query into a strategy plus filters.
type IntentExtractor interface {
	Extract(ctx context.Context, query string, thinking llm.Thinking) (*extract.Extraction, error)
}

// DocScorer scores raw documents against a query.
type DocScorer interface {
	Rerank(ctx context.Context, query string, docs []rerank.Doc, thinking llm.Thinking) ([]rerank.ScoredDoc, error)
}

// CandidateScorer scores vector hits grouped per candidate.
type CandidateScorer interface {
	Rerank(ctx context.Context, query string, hits []vectorstore.Hit, topK int, thinking llm.Thinking) ([]rerank.CandidateResult, error)
}

// Explainer generates per-candidate explanations.
type Explainer interface {
	Generate(ctx context.Context, query string, results []rerank.ExplainInput, thinking llm.Thinking) (map[int64]string, error)
}

// Service routes each search request to exactly one tier and assembles the
// ranked, explained response.
type Service struct {
	store           Storage
	vectors         VectorSearcher
	dense           embedding.DenseProvider
	sparse          embedding.SparseProvider
	extractor       IntentExtractor
	docReranker     DocScorer
	candReranker    CandidateScorer
	explainer       Explainer
	cache           *ResponseCache
	collector       *analytics.Collector
	cfg             config.SearchConfig
	defaultThinking llm.Thinking
	metrics         *metrics.Metrics
	denseBreaker    *resilience.CircuitBreaker
	logger          *slog.Logger
}

// Dependencies holds everything a Service needs. Cache and Collector may be
// nil, in which case caching and analytics are disabled.
type Dependencies struct {
	Store           Storage
	Vectors         VectorSearcher
	Dense           embedding.DenseProvider
	Sparse          embedding.SparseProvider
	Extractor       IntentExtractor
	DocReranker     DocScorer
	CandReranker    CandidateScorer
	Explainer       Explainer
	Cache           *ResponseCache
	Collector       *analytics.Collector
	Config          config.SearchConfig
	DefaultThinking llm.Thinking
	Metrics         *metrics.Metrics
}

// NewService creates the search service.
func NewService(deps Dependencies) *Service {
	return &Service{
		store:           deps.Store,
		vectors:         deps.Vectors,
		dense:           deps.Dense,
		sparse:          deps.Sparse,
		extractor:       deps.Extractor,
		docReranker:     deps.DocReranker,
		candReranker:    deps.CandReranker,
		explainer:       deps.Explainer,
		cache:           deps.Cache,
		collector:       deps.Collector,
		cfg:             deps.Config,
		defaultThinking: deps.DefaultThinking,
		metrics:         deps.Metrics,
		denseBreaker:    resilience.NewCircuitBreaker("dense-embedding", resilience.CircuitBreakerConfig{}),
		logger:          slog.Default().With("component", "search"),
	}
}

// Search runs one query through extraction, a single tier, and explanation.
// Tier errors are fatal to the request; there is no cross-tier fallback.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, 400, "query is required")
	}
	req.Query = query

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}
	thinking := llm.ParseThinking(req.Thinking, s.defaultThinking)

	log := logger.FromContext(ctx).With("component", "search")
	start := time.Now()

	var (
		resp     *Response
		cacheHit bool
		err      error
	)
	if s.cache != nil {
		resp, cacheHit, err = s.cache.GetOrCompute(ctx, req, topK, func() (*Response, error) {
			return s.execute(ctx, req, topK, thinking)
		})
	} else {
		resp, err = s.execute(ctx, req, topK, thinking)
	}

	elapsed := time.Since(start)
	if err != nil {
		s.metrics.SearchRequestsTotal.WithLabelValues("unknown", "error").Inc()
		log.Error("search failed", "query", query, "error", err, "duration_ms", elapsed.Milliseconds())
		return nil, err
	}

	strategy := string(resp.Strategy)
	cacheLabel := "miss"
	if cacheHit {
		cacheLabel = "hit"
		s.metrics.CacheHitsTotal.Inc()
	} else {
		s.metrics.CacheMissesTotal.Inc()
	}
	s.metrics.SearchRequestsTotal.WithLabelValues(strategy, "success").Inc()
	s.metrics.SearchLatency.WithLabelValues(strategy, cacheLabel).Observe(elapsed.Seconds())
	s.metrics.SearchResultsCount.WithLabelValues(strategy).Observe(float64(len(resp.Results)))

	log.Info("search completed",
		"query", query,
		"strategy", strategy,
		"results", len(resp.Results),
		"cache_hit", cacheHit,
		"duration_ms", elapsed.Milliseconds())

	if s.collector != nil {
		eventType := analytics.EventSearch
		if len(resp.Results) == 0 {
			eventType = analytics.EventZeroResult
		}
		s.collector.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			Strategy:  strategy,
			JobID:     req.JobID,
			TopK:      topK,
			Returned:  len(resp.Results),
			LatencyMs: elapsed.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
	return resp, nil
}

func (s *Service) execute(ctx context.Context, req Request, topK int, thinking llm.Thinking) (*Response, error) {
	ctx, root := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	defer func() {
		root.End()
		root.Log()
	}()

	extractCtx, extractSpan := tracing.StartChildSpan(ctx, "extract")
	ext, err := s.extractor.Extract(extractCtx, req.Query, thinking)
	extractSpan.End()
	if err != nil {
		return nil, err
	}
	root.SetAttr("strategy", string(ext.Strategy))

	tierCtx, tierSpan := tracing.StartChildSpan(ctx, "tier")
	var results []tierResult
	switch ext.Strategy {
	case extract.StrategyStructured:
		results, err = s.searchStructured(tierCtx, ext, req.JobID, topK, thinking)
	case extract.StrategySemantic:
		results, err = s.searchSemantic(tierCtx, ext, req.JobID, topK, thinking)
	default:
		results, err = s.searchHybrid(tierCtx, ext, req.JobID, topK, thinking)
	}
	tierSpan.End()
	if err != nil {
		return nil, err
	}

	if len(results) > topK {
		results = results[:topK]
	}
	if ext.Strategy == extract.StrategyStructured {
		s.explainStructured(ctx, req.Query, ext, results, thinking)
	}

	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r.Result
	}
	return &Response{
		Query:               req.Query,
		Strategy:            ext.Strategy,
		Filters:             ext.Filters,
		StrategyExplanation: ext.StrategyExplanation,
		Results:             out,
	}, nil
}

// explainStructured fills in explanations for structured-tier results. The
// LLM pass is best-effort; failures fall back to the deterministic builder
// and never fail the request.
func (s *Service) explainStructured(ctx context.Context, query string, ext *extract.Extraction, results []tierResult, thinking llm.Thinking) {
	fallback := buildDeterministicExplanation(ext.Filters, ext.StrategyExplanation)
	for i := range results {
		results[i].Explanation = fallback
	}
	if s.cfg.ExplanationType != "llm" || s.explainer == nil || len(results) == 0 {
		return
	}

	inputs := make([]rerank.ExplainInput, len(results))
	for i, r := range results {
		inputs[i] = rerank.ExplainInput{
			CandidateID: r.CandidateID,
			Content:     r.content,
			Score:       r.MatchScore,
			MatchedOn:   r.MatchedOn,
		}
	}
	explanations, err := s.explainer.Generate(ctx, query, inputs, thinking)
	if err != nil {
		s.logger.Warn("llm explanation failed, using deterministic fallback", "error", err)
		return
	}
	for i := range results {
		if text, ok := explanations[results[i].CandidateID]; ok && text != "" {
			results[i].Explanation = text
		}
	}
}
