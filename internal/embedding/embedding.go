// Package embedding turns text into the two vector kinds the collection
// requires: dense semantic embeddings from an OpenAI-compatible API, and
// local sparse term-frequency vectors built over the tiktoken vocabulary.
package embedding

import (
	"context"

	"github.com/recruitflow/talent-search/internal/vectorstore"
)

// InputType distinguishes query embeddings from document embeddings for
// providers that support asymmetric encoding.
type InputType string

const (
	InputQuery    InputType = "query"
	InputDocument InputType = "document"
)

// DenseProvider produces fixed-length float vectors.
type DenseProvider interface {
	Embed(ctx context.Context, text string, inputType InputType) ([]float32, error)
}

// SparseProvider produces term-weighted sparse vectors.
type SparseProvider interface {
	Embed(ctx context.Context, text string) (vectorstore.SparseVector, error)
}
