package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbeddingConfig configures a langchaingo-backed OpenAI embedder.
type OpenAIEmbeddingConfig struct {
	APIKey  string
	BaseURL string // overrides the default endpoint; used for OpenAI-compatible servers (e.g. Ollama)
	Model   string
}

// OpenAIEmbedder implements rag.EmbeddingProvider against langchaingo's
// OpenAI embeddings client, the second of the two EmbeddingProvider
// backends alongside VoyageEmbedder.
type OpenAIEmbedder struct {
	embedder *embeddings.EmbedderImpl
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder.
func NewOpenAIEmbedder(cfg OpenAIEmbeddingConfig) (*OpenAIEmbedder, error) {
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI embedder: %w", err)
	}

	return &OpenAIEmbedder{embedder: embedder}, nil
}

// Embed embeds a single text. model is accepted for interface symmetry with
// VoyageEmbedder but otherwise unused: the model is fixed at construction.
func (o *OpenAIEmbedder) Embed(ctx context.Context, _ string, text string) ([]float64, error) {
	vector, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embed failed: %w", err)
	}
	return toFloat64(vector), nil
}

// EmbedBatch embeds many texts in one call.
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, _ string, texts []string) ([][]float64, error) {
	vectors, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embed batch failed: %w", err)
	}
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		out[i] = toFloat64(v)
	}
	return out, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
