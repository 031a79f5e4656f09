// Package llm adapts langchaingo-backed chat providers and an HTTP embedding
// client to the internal/rag package's narrow CompletionProvider and
// EmbeddingProvider interfaces.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/k-moffett/ragpilot/internal/rag"
)

// ProviderConfig selects and configures a chat completion backend.
type ProviderConfig struct {
	Provider    string // "openai" or "anthropic"
	APIKey      string
	BaseURL     string // overrides the default endpoint; used for OpenAI-compatible servers (e.g. Ollama)
	MaxTokens   int
}

// NewCompletionProvider builds a rag.CompletionProvider from langchaingo's
// OpenAI or Anthropic client, selected by ProviderConfig.Provider.
func NewCompletionProvider(cfg ProviderConfig) (rag.CompletionProvider, error) {
	switch cfg.Provider {
	case "openai", "":
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return &langchainProvider{llm: client, maxTokens: cfg.MaxTokens}, nil
	case "anthropic":
		client, err := anthropic.New(anthropic.WithToken(cfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return &langchainProvider{llm: client, maxTokens: cfg.MaxTokens}, nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}

// langchainProvider wraps any langchaingo llms.Model as a single-shot,
// non-streaming rag.CompletionProvider: every rag component issues one
// blocking completion call and parses the result as JSON or plain text.
type langchainProvider struct {
	llm       llms.Model
	maxTokens int
}

func (p *langchainProvider) Complete(ctx context.Context, req rag.CompletionRequest) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	completion, err := p.llm.Call(ctx, req.Prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	return completion, nil
}
