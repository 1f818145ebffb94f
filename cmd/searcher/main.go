package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/recruitflow/talent-search/internal/analytics"
	"github.com/recruitflow/talent-search/internal/embedding"
	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/llm"
	"github.com/recruitflow/talent-search/internal/rerank"
	"github.com/recruitflow/talent-search/internal/search"
	"github.com/recruitflow/talent-search/internal/store"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	"github.com/recruitflow/talent-search/pkg/config"
	"github.com/recruitflow/talent-search/pkg/health"
	"github.com/recruitflow/talent-search/pkg/kafka"
	"github.com/recruitflow/talent-search/pkg/logger"
	"github.com/recruitflow/talent-search/pkg/metrics"
	"github.com/recruitflow/talent-search/pkg/middleware"
	"github.com/recruitflow/talent-search/pkg/postgres"
	pkgredis "github.com/recruitflow/talent-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	pgClient, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgClient.Close()
	db := store.New(pgClient)

	vectors, err := vectorstore.New(cfg.Qdrant)
	if err != nil {
		slog.Error("failed to connect to qdrant", "error", err)
		os.Exit(1)
	}
	defer vectors.Close()
	if err := vectors.EnsureCollection(ctx); err != nil {
		slog.Error("failed to ensure collection", "error", err)
		os.Exit(1)
	}

	var responseCache *search.ResponseCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		responseCache = search.NewResponseCache(redisClient, cfg.Redis)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	llmClient := llm.NewOpenAIClient(cfg.LLM)
	denseProvider := embedding.NewOpenAIDense(cfg.Embedding, m)
	sparseProvider, err := embedding.NewTokenizerSparse(cfg.Embedding.Encoding)
	if err != nil {
		slog.Error("failed to load tokenizer", "error", err)
		os.Exit(1)
	}

	svc := search.NewService(search.Dependencies{
		Store:           db,
		Vectors:         vectors,
		Dense:           denseProvider,
		Sparse:          sparseProvider,
		Extractor:       extract.New(llmClient, db, cfg.Search.SkillMatchMinScore, m),
		DocReranker:     rerank.NewDocReranker(llmClient, cfg.Search.ChunkCharBudget),
		CandReranker:    rerank.NewCandidateReranker(llmClient, cfg.Search.ChunkCharBudget, m),
		Explainer:       rerank.NewExplanationGenerator(llmClient),
		Cache:           responseCache,
		Collector:       collector,
		Config:          cfg.Search,
		DefaultThinking: llm.ParseThinking(cfg.LLM.DefaultThinking, llm.ThinkingBalanced),
		Metrics:         m,
	})

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("qdrant", func(ctx context.Context) health.ComponentHealth {
		if err := vectors.HealthCheck(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("embedding", func(ctx context.Context) health.ComponentHealth {
		if err := denseProvider.HealthCheck(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	search.NewHandler(svc).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
