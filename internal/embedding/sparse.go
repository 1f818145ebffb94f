package embedding

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/recruitflow/talent-search/internal/vectorstore"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
)

// wordPattern keeps alphanumerics plus the characters that appear in skill
// names like "c++", "c#", ".net", "node.js".
var wordPattern = regexp.MustCompile(`[^a-z0-9.+#]+`)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
		"has", "have", "he", "her", "his", "i", "in", "is", "it", "its", "my",
		"no", "not", "of", "on", "or", "our", "she", "so", "that", "the",
		"their", "them", "they", "this", "to", "was", "we", "were", "which",
		"will", "with", "you", "your",
	} {
		stopwords[w] = struct{}{}
	}
}

// TokenizerSparse builds term-frequency sparse vectors over the tiktoken
// vocabulary: term ids become sparse indices, normalized counts become
// weights. Lexical signal only; the IDF modifier on the collection's sparse
// field supplies the corpus weighting.
type TokenizerSparse struct {
	encoder *tiktoken.Tiktoken
}

// NewTokenizerSparse loads the named tiktoken encoding (e.g. cl100k_base).
func NewTokenizerSparse(encoding string) (*TokenizerSparse, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading tiktoken encoding %s: %w", encoding, err)
	}
	return &TokenizerSparse{encoder: enc}, nil
}

// Embed returns the sparse TF vector for text. An empty vector (no usable
// terms) is returned as-is; the caller decides whether that is acceptable.
func (p *TokenizerSparse) Embed(_ context.Context, text string) (vectorstore.SparseVector, error) {
	if p.encoder == nil {
		return vectorstore.SparseVector{}, fmt.Errorf("%w: sparse encoder not initialized", apperrors.ErrEmbedding)
	}

	counts := make(map[uint32]int)
	total := 0
	for _, word := range wordPattern.Split(strings.ToLower(text), -1) {
		word = strings.TrimSpace(word)
		if len(word) <= 1 {
			continue
		}
		if _, ok := stopwords[word]; ok {
			continue
		}
		for _, id := range p.encoder.Encode(word, nil, nil) {
			counts[uint32(id)]++
			total++
		}
	}

	if total == 0 {
		return vectorstore.SparseVector{}, nil
	}

	indices := make([]uint32, 0, len(counts))
	for id := range counts {
		indices = append(indices, id)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, id := range indices {
		values[i] = float32(counts[id]) / float32(total)
	}
	return vectorstore.SparseVector{Indices: indices, Values: values}, nil
}
