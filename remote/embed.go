package remote

import (
	"context"
	"fmt"

	"github.com/Paranoid-AF/vctrace"
)

// TextEmbedder computes text conditioning vectors via an OpenAI-compatible
// /embeddings API.
type TextEmbedder struct {
	api        *apiClient
	model      string
	dimensions int
}

// NewTextEmbedder creates an embedder for the given API endpoint. A positive
// dimensions is sent with every request and enforced on the response.
func NewTextEmbedder(baseURL, apiKey, model string, dimensions int) *TextEmbedder {
	return &TextEmbedder{
		api:        newAPIClient(baseURL, apiKey, defaultTimeout),
		model:      model,
		dimensions: dimensions,
	}
}

// Model returns the embedding model name.
func (e *TextEmbedder) Model() string { return e.model }

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []embeddingDataItem `json:"data"`
}

type embeddingDataItem struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the text vector for prompt.
func (e *TextEmbedder) Embed(ctx context.Context, prompt string) (vctrace.FixedVector, error) {
	var result embeddingResponse
	req := embeddingRequest{Input: prompt, Model: e.model, Dimensions: e.dimensions}
	if err := e.api.post(ctx, "/embeddings", req, &result); err != nil {
		return vctrace.FixedVector{}, err
	}
	if len(result.Data) == 0 {
		return vctrace.FixedVector{}, fmt.Errorf("empty embedding response")
	}
	vec := result.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return vctrace.FixedVector{}, fmt.Errorf("%w: embedding has dim %d, want %d", vctrace.ErrDimensionMismatch, len(vec), e.dimensions)
	}
	return vctrace.VectorOf(vec...), nil
}
