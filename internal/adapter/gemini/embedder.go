// Package gemini adapts Google's generative AI API to the embedding and
// generation provider ports.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"knowhub/internal/apperr"
)

func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

func NewEmbedder(client *genai.Client, model string, dim int) *Embedder {
	return &Embedder{client: client, model: model, dim: dim}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, fmt.Errorf("%w: embed: %v", apperr.ErrProvider, err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("%w: embed: empty response", apperr.ErrProvider)
	}
	out, err := reduceDimension(res.Embedding.Values, e.dim)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", apperr.ErrProvider, err)
	}
	return out, nil
}

// reduceDimension truncates a Matryoshka embedding to dim values and
// renormalizes to unit length. gemini-embedding-001 emits 3072 dims; the
// leading dims carry a valid lower-dimensional representation, so truncation
// plus renormalization keeps cosine distances meaningful at the stored size.
func reduceDimension(values []float32, dim int) ([]float32, error) {
	if len(values) == dim {
		return values, nil
	}
	if len(values) < dim {
		return nil, fmt.Errorf("model returned %d dims, want %d", len(values), dim)
	}
	out := values[:dim]
	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("truncated embedding has zero norm")
	}
	scaled := make([]float32, dim)
	for i, v := range out {
		scaled[i] = float32(float64(v) / norm)
	}
	return scaled, nil
}
