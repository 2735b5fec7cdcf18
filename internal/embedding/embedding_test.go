package embedding_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "squat bench deadlift", embedding.CleanText("  squat\n\tbench   deadlift "))
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := embedding.NewHashEmbedder(db.EmbeddingDim)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Crossfit three times a week, looking for a squat partner")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Crossfit  three times a week,\nlooking for a squat partner")
	require.NoError(t, err)

	require.Len(t, a, db.EmbeddingDim)
	assert.Equal(t, a, b)
	assert.InDelta(t, 0, embedding.CosineDistance(a, a), 1e-6)
}

func TestHashEmbedder_SimilarTextIsCloser(t *testing.T) {
	e := embedding.NewHashEmbedder(db.EmbeddingDim)
	ctx := context.Background()

	base, _ := e.Embed(ctx, "powerlifting squat bench deadlift heavy training")
	near, _ := e.Embed(ctx, "powerlifting squat bench deadlift every morning")
	far, _ := e.Embed(ctx, "yoga pilates stretching meditation")

	assert.Less(t, embedding.CosineDistance(base, near), embedding.CosineDistance(base, far))
}

func TestHTTPEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "minilm", req["model"])
		assert.Equal(t, "hello gym", req["input"])
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		vec := make([]float32, db.EmbeddingDim)
		vec[0] = 3
		vec[1] = 4
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	}))
	defer srv.Close()

	e := embedding.NewHTTPEmbedder(srv.URL, "minilm", "secret", time.Second)
	vec, err := e.Embed(context.Background(), " hello   gym ")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestHTTPEmbedder_WrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 2, 3}}},
		})
	}))
	defer srv.Close()

	_, err := embedding.NewHTTPEmbedder(srv.URL, "m", "", time.Second).Embed(context.Background(), "x")
	assert.Error(t, err)
}
