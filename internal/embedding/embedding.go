package embedding

import (
	"context"
	"math"
	"strings"

	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/db"
)

// Embedder turns a profile description into a fixed-size, L2-normalised vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New picks the HTTP embedder when EMBEDDING_URL is set, the hashing one otherwise.
func New(cfg *config.Config) Embedder {
	if cfg.Embedding.URL != "" {
		return NewHTTPEmbedder(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.APIKey, cfg.Embedding.Timeout)
	}
	return NewHashEmbedder(db.EmbeddingDim)
}

// CleanText collapses all whitespace runs into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// CosineDistance is 1 - cos(a, b); 0 for identical directions, 2 for opposite.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
