package indexing

import (
	"strings"
	"testing"
)

func newTestChunker(t *testing.T, maxTokens int, overlap float64) *Chunker {
	t.Helper()
	c, err := NewChunker("cl100k_base", maxTokens, overlap)
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	return c
}

func TestChunkEmptyText(t *testing.T) {
	c := newTestChunker(t, 100, 0.15)
	if chunks := c.Chunk(""); chunks != nil {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := newTestChunker(t, 100, 0.15)
	text := "golang engineer with kafka experience"
	chunks := c.Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("short text must round-trip unchanged, got %q", chunks[0])
	}
}

func TestChunkLongTextOverlaps(t *testing.T) {
	c := newTestChunker(t, 20, 0.25)
	text := strings.Repeat("distributed systems design review notes ", 40)
	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// every token of the original must be covered, in order
	var rebuilt strings.Builder
	step := c.maxTokens - c.overlap
	for i, chunk := range chunks {
		tokens := c.encoder.Encode(chunk, nil, nil)
		if len(tokens) > c.maxTokens {
			t.Errorf("chunk %d exceeds max tokens: %d", i, len(tokens))
		}
		if i == len(chunks)-1 {
			rebuilt.WriteString(chunk)
		} else {
			rebuilt.WriteString(c.encoder.Decode(tokens[:step]))
		}
	}
	if rebuilt.String() != text {
		t.Error("chunks do not reconstruct the original text")
	}
}

func TestChunkWindowsShareOverlap(t *testing.T) {
	c := newTestChunker(t, 10, 0.3)
	text := strings.Repeat("candidate interview transcript content ", 20)
	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	first := c.encoder.Encode(chunks[0], nil, nil)
	second := c.encoder.Encode(chunks[1], nil, nil)
	tail := first[len(first)-c.overlap:]
	head := second[:c.overlap]
	for i := range tail {
		if tail[i] != head[i] {
			t.Fatalf("adjacent chunks do not share the overlap window")
		}
	}
}
