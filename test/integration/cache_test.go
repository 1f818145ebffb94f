package integration

import (
	"context"
	"testing"
	"time"

	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/search"
)

// TestResponseCacheRoundTrip verifies miss -> compute -> hit -> invalidate
// against a real Redis.
func TestResponseCacheRoundTrip(t *testing.T) {
	client, cfg := skipIfNoRedis(t)
	cache := search.NewResponseCache(client, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate (setup): %v", err)
	}

	req := search.Request{Query: "golang developers in Pune"}
	computed := 0
	compute := func() (*search.Response, error) {
		computed++
		return &search.Response{
			Query:    req.Query,
			Strategy: extract.StrategyHybrid,
		}, nil
	}

	resp, hit, err := cache.GetOrCompute(ctx, req, 10, compute)
	if err != nil {
		t.Fatalf("GetOrCompute (cold): %v", err)
	}
	if hit {
		t.Error("cold lookup reported a cache hit")
	}
	if resp.Query != req.Query {
		t.Errorf("response query = %q, want %q", resp.Query, req.Query)
	}

	resp2, hit, err := cache.GetOrCompute(ctx, req, 10, compute)
	if err != nil {
		t.Fatalf("GetOrCompute (warm): %v", err)
	}
	if !hit {
		t.Error("warm lookup missed the cache")
	}
	if resp2.Strategy != extract.StrategyHybrid {
		t.Errorf("cached strategy = %q, want hybrid", resp2.Strategy)
	}
	if computed != 1 {
		t.Errorf("compute ran %d times, want 1", computed)
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, hit, err = cache.GetOrCompute(ctx, req, 10, compute); err != nil {
		t.Fatalf("GetOrCompute (after invalidate): %v", err)
	}
	if hit {
		t.Error("lookup after invalidation reported a hit")
	}
	if computed != 2 {
		t.Errorf("compute ran %d times after invalidation, want 2", computed)
	}
}
