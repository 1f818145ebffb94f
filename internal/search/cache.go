package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/recruitflow/talent-search/pkg/config"
	pkgredis "github.com/recruitflow/talent-search/pkg/redis"
)

const cacheKeyPrefix = "search:"

// ResponseCache caches full search responses in Redis, with singleflight
// protection so identical concurrent requests compute once.
type ResponseCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResponseCache creates a ResponseCache.
func NewResponseCache(client *pkgredis.Client, cfg config.RedisConfig) *ResponseCache {
	return &ResponseCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "response-cache"),
	}
}

func (c *ResponseCache) get(ctx context.Context, key string) (*Response, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &resp, true
}

func (c *ResponseCache) set(ctx context.Context, key string, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for the request, or computes and
// stores it. The second return value reports a cache hit.
func (c *ResponseCache) GetOrCompute(ctx context.Context, req Request, topK int, computeFn func() (*Response, error)) (*Response, bool, error) {
	key := buildCacheKey(req, topK)
	if resp, ok := c.get(ctx, key); ok {
		return resp, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if resp, ok := c.get(ctx, key); ok {
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Response), false, nil
}

// Invalidate drops every cached search response. Called after bulk data
// changes that would make cached rankings stale.
func (c *ResponseCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit/miss counters.
func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildCacheKey(req Request, topK int) string {
	jobPart := "none"
	if req.JobID != nil {
		jobPart = fmt.Sprintf("%d", *req.JobID)
	}
	raw := fmt.Sprintf("%s|job=%s|k=%d|t=%s",
		strings.ToLower(strings.TrimSpace(req.Query)),
		jobPart, topK, strings.ToLower(req.Thinking))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
