// Package benchmark contains Go benchmarks for the hot paths of the search
// pipeline: filter compilation, deterministic scoring, and sparse embedding.
package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/recruitflow/talent-search/internal/embedding"
	"github.com/recruitflow/talent-search/internal/indexing"
)

// BenchmarkSparseEmbed measures sparse vector construction over a typical
// resume chunk.
func BenchmarkSparseEmbed(b *testing.B) {
	p, err := embedding.NewTokenizerSparse("cl100k_base")
	if err != nil {
		b.Skipf("encoding unavailable: %v", err)
	}
	text := strings.Repeat("golang backend engineer kafka postgres kubernetes docker aws ", 30)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Embed(context.Background(), text); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkChunkLongDocument measures token-window chunking of a long
// transcript.
func BenchmarkChunkLongDocument(b *testing.B) {
	c, err := indexing.NewChunker("cl100k_base", 1500, 0.15)
	if err != nil {
		b.Skipf("encoding unavailable: %v", err)
	}
	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&sb, "interviewer question %d and a reasonably detailed candidate answer about system design. ", i)
	}
	text := sb.String()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chunks := c.Chunk(text)
		if len(chunks) == 0 {
			b.Fatal("no chunks")
		}
	}
}
