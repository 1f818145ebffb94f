// Package indexing implements the async document-indexing pipeline: events
// arrive via Kafka, documents are chunked, dual-embedded, and upserted into
// the vector store with queue-row bookkeeping in Postgres.
package indexing

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker splits document text into overlapping token windows.
type Chunker struct {
	encoder   *tiktoken.Tiktoken
	maxTokens int
	overlap   int
}

// NewChunker creates a Chunker for the given encoding. overlapFraction is
// the share of maxTokens repeated between adjacent chunks.
func NewChunker(encoding string, maxTokens int, overlapFraction float64) (*Chunker, error) {
	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %s: %w", encoding, err)
	}
	overlap := int(float64(maxTokens) * overlapFraction)
	if overlap >= maxTokens {
		overlap = maxTokens - 1
	}
	return &Chunker{
		encoder:   encoder,
		maxTokens: maxTokens,
		overlap:   overlap,
	}, nil
}

// Chunk tokenizes text and decodes overlapping windows back to strings. Text
// at or under the window size yields a single chunk; empty text yields none.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	tokens := c.encoder.Encode(text, nil, nil)
	if len(tokens) <= c.maxTokens {
		return []string{text}
	}

	step := c.maxTokens - c.overlap
	if step < 1 {
		step = 1
	}
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.encoder.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
