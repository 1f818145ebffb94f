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
	"github.com/recruitflow/talent-search/internal/indexing"
	"github.com/recruitflow/talent-search/internal/store"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	"github.com/recruitflow/talent-search/pkg/config"
	"github.com/recruitflow/talent-search/pkg/health"
	"github.com/recruitflow/talent-search/pkg/kafka"
	"github.com/recruitflow/talent-search/pkg/logger"
	"github.com/recruitflow/talent-search/pkg/metrics"
	"github.com/recruitflow/talent-search/pkg/postgres"
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
	slog.Info("starting indexer service",
		"topic", cfg.Kafka.Topics.DocumentIndex,
		"concurrency", cfg.Indexer.Concurrency)

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

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	denseProvider := embedding.NewOpenAIDense(cfg.Embedding, m)
	sparseProvider, err := embedding.NewTokenizerSparse(cfg.Embedding.Encoding)
	if err != nil {
		slog.Error("failed to load tokenizer", "error", err)
		os.Exit(1)
	}
	chunker, err := indexing.NewChunker(cfg.Embedding.Encoding, cfg.Indexer.ChunkMaxTokens, cfg.Indexer.ChunkOverlap)
	if err != nil {
		slog.Error("failed to create chunker", "error", err)
		os.Exit(1)
	}

	processor := indexing.NewProcessor(db, vectors, denseProvider, sparseProvider,
		chunker, cfg.Indexer.Concurrency, collector, m)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIndex, indexing.MessageHandler(processor, cfg.Indexer.ProcessTimeout))
	defer consumer.Close()

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
	checker.Register("embedding", func(ctx context.Context) health.ComponentHealth {
		if err := denseProvider.HealthCheck(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("health server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	slog.Info("indexer consuming", "topic", cfg.Kafka.Topics.DocumentIndex)
	if err := consumer.Start(ctx); err != nil && err != context.Canceled {
		slog.Error("consumer error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}
	slog.Info("indexer service stopped")
}
