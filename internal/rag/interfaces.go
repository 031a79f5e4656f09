package rag

import (
	"context"
	"time"
)

// CompletionRequest is the input to a single completion call.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionProvider runs a single text completion. Implementations are
// assumed thread-safe and connection-pooled; the core never retries a
// failed call itself.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// EmbeddingProvider embeds text for vector search. Batch is a convenience
// that may be implemented as parallel single-text calls.
type EmbeddingProvider interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float64, error)
}

// SearchFilters narrows a vector search request.
type SearchFilters struct {
	SessionID string
	Tags      []string
}

// SearchHit is one raw result from the vector store, before client-side
// filtering or BM25 fusion.
type SearchHit struct {
	ID      string
	Score   float64
	Payload MessagePayload
}

// VectorStore is the content-addressed semantic index the Hybrid Retriever
// searches. The core applies all finer filtering (temporal, role, quality,
// tag exclusion) client-side; the store only honors SearchFilters.
type VectorStore interface {
	Search(ctx context.Context, userID string, queryVector []float64, limit int, query string, filters SearchFilters) ([]SearchHit, error)
}

// Clock abstracts "now" so temporal filtering is testable without sleeping.
type Clock interface {
	Now() time.Time
}
