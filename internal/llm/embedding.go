package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VoyageEmbeddingConfig configures a Voyage AI HTTP embedding client.
type VoyageEmbeddingConfig struct {
	APIKey string
	Model  string // e.g. "voyage-3", "voyage-3.5-lite"; empty defaults to "voyage-3"
}

// voyageRequest is the Voyage AI embeddings request payload.
type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// VoyageEmbedder implements rag.EmbeddingProvider against the Voyage AI
// embeddings HTTP API.
type VoyageEmbedder struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewVoyageEmbedder constructs a VoyageEmbedder.
func NewVoyageEmbedder(cfg VoyageEmbeddingConfig) *VoyageEmbedder {
	model := cfg.Model
	if model == "" {
		model = "voyage-3"
	}
	return &VoyageEmbedder{
		apiKey: cfg.APIKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Embed embeds a single text. model overrides the configured default when non-empty.
func (v *VoyageEmbedder) Embed(ctx context.Context, model, text string) ([]float64, error) {
	vectors, err := v.embedBatch(ctx, model, []string{text}, "query")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("voyage: no embeddings returned")
	}
	return vectors[0], nil
}

// EmbedBatch embeds multiple texts in a single request, for document
// ingestion paths where input_type "document" applies.
func (v *VoyageEmbedder) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float64, error) {
	return v.embedBatch(ctx, model, texts, "document")
}

func (v *VoyageEmbedder) embedBatch(ctx context.Context, model string, texts []string, inputType string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("voyage: no texts provided")
	}
	if model == "" {
		model = v.model
	}

	body, err := json.Marshal(voyageRequest{Input: texts, Model: model, InputType: inputType})
	if err != nil {
		return nil, fmt.Errorf("voyage: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.voyageai.com/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("voyage: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("voyage: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voyage: error (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("voyage: failed to decode response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("voyage: returned %d embeddings for %d texts", len(parsed.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("voyage: invalid index %d in response", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}
