package rag

import (
	"context"
	"sync"
	"testing"

	"github.com/k-moffett/ragpilot/internal/config"
	"github.com/stretchr/testify/assert"
)

func testValidatorConfig() *config.ValidatorConfig {
	return &config.ValidatorConfig{DefaultMinScore: 0.15, MaxParallelValidations: 2, Temperature: 0.1}
}

func tenResults() []HybridSearchResult {
	results := make([]HybridSearchResult, 10)
	for i := range results {
		results[i] = HybridSearchResult{MessageID: string(rune('a' + i)), CombinedScore: 0.5}
	}
	return results
}

func TestValidatorSingleFailureDegradesGracefully(t *testing.T) {
	responses := make([]string, 10)
	for i := range responses {
		responses[i] = `{"score":0.8,"rationale":"relevant"}`
	}
	llm := &scriptedLLM{byCall: responses, failAt: map[int]bool{3: true}}
	validator := NewValidator(llm, testValidatorConfig(), "test-model", nil)

	validated := validator.Validate(context.Background(), "query", tenResults(), false)

	assert.Len(t, validated.Results, 10, "only score filtering removes results, not LLM failure")
	foundFallback := false
	for _, r := range validated.Results {
		if r.Rationale == "fallback: combined retrieval score" {
			foundFallback = true
		}
	}
	assert.True(t, foundFallback)
}

func TestValidatorHeuristicModeUsesCombinedScore(t *testing.T) {
	validator := NewValidator(&fakeLLM{}, testValidatorConfig(), "test-model", nil)
	results := []HybridSearchResult{{MessageID: "a", CombinedScore: 0.9}}

	validated := validator.Validate(context.Background(), "q", results, true)

	assert.Len(t, validated.Results, 1)
	assert.Equal(t, 0.9, validated.Results[0].ValidationScore)
}

func TestValidatorFiltersBelowMinScore(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"score":0.05,"rationale":"weak match"}`}}
	validator := NewValidator(llm, testValidatorConfig(), "test-model", nil)
	results := []HybridSearchResult{{MessageID: "a", CombinedScore: 0.5}}

	validated := validator.Validate(context.Background(), "q", results, false)

	assert.Empty(t, validated.Results)
	assert.Equal(t, 1, validated.Metadata.Failed)
}

func TestValidatorSortsDescendingByValidationScore(t *testing.T) {
	llm := &scriptedLLM{byCall: []string{
		`{"score":0.3,"rationale":"r1"}`,
		`{"score":0.9,"rationale":"r2"}`,
		`{"score":0.6,"rationale":"r3"}`,
	}}
	validator := NewValidator(llm, testValidatorConfig(), "test-model", nil)
	results := []HybridSearchResult{
		{MessageID: "a", CombinedScore: 0.5},
		{MessageID: "b", CombinedScore: 0.5},
		{MessageID: "c", CombinedScore: 0.5},
	}

	validated := validator.Validate(context.Background(), "q", results, false)

	require := validated.Results
	for i := 1; i < len(require); i++ {
		assert.GreaterOrEqual(t, require[i-1].ValidationScore, require[i].ValidationScore)
	}
}

func TestValidatorEmptyRetrievalYieldsEmptyValidation(t *testing.T) {
	validator := NewValidator(&fakeLLM{}, testValidatorConfig(), "test-model", nil)
	validated := validator.Validate(context.Background(), "q", nil, false)
	assert.Empty(t, validated.Results)
}

// scriptedLLM returns byCall[n] on the n-th call, or a forced error when
// failAt[n] is true, letting tests pin exactly which call index fails.
type scriptedLLM struct {
	mu     sync.Mutex
	byCall []string
	failAt map[int]bool
	call   int
}

func (s *scriptedLLM) Complete(_ context.Context, _ CompletionRequest) (string, error) {
	s.mu.Lock()
	idx := s.call
	s.call++
	s.mu.Unlock()
	if s.failAt != nil && s.failAt[idx] {
		return "", errAlwaysFail
	}
	if idx >= len(s.byCall) {
		return "", errAlwaysFail
	}
	return s.byCall[idx], nil
}
