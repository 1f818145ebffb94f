// Package integration contains tests that exercise real backing services
// (PostgreSQL, Redis, Qdrant). Each test skips itself when its backend is
// unreachable, so the suite is safe to run anywhere.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/recruitflow/talent-search/pkg/config"
	"github.com/recruitflow/talent-search/pkg/postgres"
	"github.com/recruitflow/talent-search/pkg/redis"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) (*redis.Client, config.RedisConfig) {
	t.Helper()
	cfg := testRedisConfig()
	client, err := redis.NewClient(cfg)
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, cfg
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "talentsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "talentsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func testRedisConfig() config.RedisConfig {
	return config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 1),
		PoolSize: 2,
		CacheTTL: time.Minute,
	}
}

func testQdrantConfig() config.QdrantConfig {
	return config.QdrantConfig{
		Host:            envOrDefault("TEST_QDRANT_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_QDRANT_PORT", 6334),
		Collection:      "talent_search_integration",
		DenseName:       "text-dense",
		SparseName:      "text-sparse",
		DenseSize:       4,
		RequestTimeout:  10 * time.Second,
		RetryAttempts:   2,
		UpsertBatchSize: 64,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
