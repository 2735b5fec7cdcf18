package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashEmbedder is a deterministic feature-hashing embedder. Descriptions that
// share words land close to each other, which is enough for local runs and
// tests where no model server is available.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	tokens := tokenize(CleanText(text))

	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			// bigrams add a little word-order signal
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return Normalize(vec), nil
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	idx := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
