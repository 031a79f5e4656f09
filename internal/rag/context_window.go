package rag

import (
	"math"

	"github.com/k-moffett/ragpilot/internal/config"
)

// ContextWindowManager packs the highest-scoring validated results into a
// token budget, truncating at the first item that would overflow it.
type ContextWindowManager struct {
	cfg *config.ContextWindowConfig
}

// NewContextWindowManager constructs a ContextWindowManager.
func NewContextWindowManager(cfg *config.ContextWindowConfig) *ContextWindowManager {
	return &ContextWindowManager{cfg: cfg}
}

// estimateTokens is a character-based approximation, monotone in content
// length, intentionally standing in for a real tokenizer.
func estimateTokens(content string, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = 1
	}
	return int(math.Ceil(float64(len(content)) / float64(charsPerToken)))
}

const defaultReservedTokens = 512

// Fit walks validated (already sorted) in order, accumulating content
// tokens until the next addition would exceed the available budget.
// maxTokensOverride and reservedTokensOverride default, respectively, to
// config.maxContextTokens - config.minResponseTokens and 512.
func (m *ContextWindowManager) Fit(validated []ValidationResult, maxTokensOverride, reservedTokensOverride *int) FittedContext {
	maxTokens := m.cfg.MaxContextTokens - m.cfg.MinResponseTokens
	if maxTokensOverride != nil {
		maxTokens = *maxTokensOverride
	}
	reserved := defaultReservedTokens
	if reservedTokensOverride != nil {
		reserved = *reservedTokensOverride
	}
	available := maxTokens - reserved

	if available <= 0 {
		return FittedContext{
			Results:        nil,
			TruncatedCount: len(validated),
			Usage: TokenUsage{
				Total:       maxTokens,
				Reserved:    reserved,
				Available:   available,
				Used:        0,
				Utilization: 0,
			},
		}
	}

	fitted := make([]ValidationResult, 0, len(validated))
	used := 0
	for _, v := range validated {
		tokens := estimateTokens(v.Result.Payload.Content, m.cfg.CharsPerToken)
		if used+tokens > available {
			break
		}
		used += tokens
		fitted = append(fitted, v)
	}

	utilization := 0.0
	if available > 0 {
		utilization = float64(used) / float64(available)
	}

	return FittedContext{
		Results:        fitted,
		TruncatedCount: len(validated) - len(fitted),
		Usage: TokenUsage{
			Total:       maxTokens,
			Reserved:    reserved,
			Available:   available,
			Used:        used,
			Utilization: utilization,
		},
	}
}
