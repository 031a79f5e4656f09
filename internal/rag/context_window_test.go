package rag

import (
	"strings"
	"testing"

	"github.com/k-moffett/ragpilot/internal/config"
	"github.com/stretchr/testify/assert"
)

func testContextWindowConfig() *config.ContextWindowConfig {
	return &config.ContextWindowConfig{MaxContextTokens: 8192, MinResponseTokens: 1024, CharsPerToken: 4}
}

func validationResultsWithContentLen(n, charLen int) []ValidationResult {
	results := make([]ValidationResult, n)
	for i := range results {
		results[i] = ValidationResult{
			Result: HybridSearchResult{
				MessageID: string(rune('a' + i)),
				Payload:   MessagePayload{Content: strings.Repeat("x", charLen)},
			},
			ValidationScore: 1.0 - float64(i)*0.01,
		}
	}
	return results
}

func TestFitPacksWithinBudget(t *testing.T) {
	mgr := NewContextWindowManager(testContextWindowConfig())
	fitted := mgr.Fit(validationResultsWithContentLen(5, 40), nil, nil)

	var total int
	for _, r := range fitted.Results {
		total += estimateTokens(r.Result.Payload.Content, 4)
	}
	assert.LessOrEqual(t, total, fitted.Usage.Available)
}

func TestFitBudgetOverflowYieldsEmpty(t *testing.T) {
	mgr := NewContextWindowManager(&config.ContextWindowConfig{MaxContextTokens: 1024, MinResponseTokens: 512, CharsPerToken: 4})
	reserved := 512
	fitted := mgr.Fit(validationResultsWithContentLen(20, 400), nil, &reserved)

	assert.Empty(t, fitted.Results)
	assert.Equal(t, 20, fitted.TruncatedCount)
	assert.Equal(t, 0, fitted.Usage.Available)
}

func TestFitTruncatesAtOverflowPoint(t *testing.T) {
	maxTokens := 20
	mgr := NewContextWindowManager(testContextWindowConfig())
	fitted := mgr.Fit(validationResultsWithContentLen(10, 40), &maxTokens, ptrInt(0))

	assert.Less(t, len(fitted.Results), 10)
	assert.Equal(t, len(fitted.Results), 10-fitted.TruncatedCount)
}

func TestEstimateTokensMonotoneInLength(t *testing.T) {
	assert.LessOrEqual(t, estimateTokens("short", 4), estimateTokens("a much longer piece of content", 4))
}

func ptrInt(v int) *int { return &v }
