package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oggyb/gymbro-match/internal/db"
)

// HTTPEmbedder talks to an OpenAI-compatible embeddings endpoint, e.g. a
// text-embeddings-inference server hosting the MiniLM sentence model.
type HTTPEmbedder struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

func NewHTTPEmbedder(url, model, apiKey string, timeout time.Duration) *HTTPEmbedder {
	return &HTTPEmbedder{
		url:    url,
		model:  model,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: CleanText(text)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	vec := out.Data[0].Embedding
	if len(vec) != db.EmbeddingDim {
		return nil, fmt.Errorf("embedding has %d dims, want %d", len(vec), db.EmbeddingDim)
	}
	return Normalize(vec), nil
}
