package search

import (
	"strings"
	"testing"
)

func TestCacheKeyStable(t *testing.T) {
	req := Request{Query: "go engineers", Thinking: "balanced"}
	if buildCacheKey(req, 10) != buildCacheKey(req, 10) {
		t.Error("identical requests must share a cache key")
	}
}

func TestCacheKeyNormalizesQuery(t *testing.T) {
	a := buildCacheKey(Request{Query: "  Go Engineers "}, 10)
	b := buildCacheKey(Request{Query: "go engineers"}, 10)
	if a != b {
		t.Error("case and surrounding whitespace must not change the key")
	}
}

func TestCacheKeyVariesByParameters(t *testing.T) {
	base := Request{Query: "go engineers"}
	jobID := int64(4)
	keys := map[string]bool{
		buildCacheKey(base, 10):                          true,
		buildCacheKey(base, 20):                          true,
		buildCacheKey(Request{Query: "go engineers", JobID: &jobID}, 10):          true,
		buildCacheKey(Request{Query: "go engineers", Thinking: "accurate"}, 10): true,
	}
	if len(keys) != 4 {
		t.Errorf("expected 4 distinct keys, got %d", len(keys))
	}
}

func TestCacheKeyPrefixed(t *testing.T) {
	if !strings.HasPrefix(buildCacheKey(Request{Query: "q"}, 10), cacheKeyPrefix) {
		t.Error("keys must carry the search prefix for pattern invalidation")
	}
}
