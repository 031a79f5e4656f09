package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/k-moffett/ragpilot/internal/config"
	"go.uber.org/zap"
)

type validationLLMResponse struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// Validator scores each retrieved result for relevance to the user query,
// either via LLM or a cheaper heuristic that reuses the retrieval score.
type Validator struct {
	llm    CompletionProvider
	cfg    *config.ValidatorConfig
	model  string
	clock  Clock
	logger *zap.Logger
}

// NewValidator constructs a Validator.
func NewValidator(llm CompletionProvider, cfg *config.ValidatorConfig, model string, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{llm: llm, cfg: cfg, model: model, clock: SystemClock{}, logger: logger}
}

// Validate scores every result, batching LLM calls up to
// maxParallelValidations concurrent at a time, batches run sequentially.
// When heuristic is true, no LLM call is made: the combined retrieval
// score is used directly as the validation score.
func (v *Validator) Validate(ctx context.Context, query string, results []HybridSearchResult, heuristic bool) ValidatedContext {
	start := v.clock.Now()
	minScore := v.cfg.DefaultMinScore

	scored := make([]ValidationResult, 0, len(results))
	batchSize := v.cfg.MaxParallelValidations
	if batchSize <= 0 {
		batchSize = len(results)
	}

	for offset := 0; offset < len(results); offset += batchSize {
		end := offset + batchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[offset:end]

		batchScored := boundedFanOut(ctx, batch, 0, func(ctx context.Context, r HybridSearchResult) ValidationResult {
			return v.validateOne(ctx, query, r, heuristic, minScore)
		})
		scored = append(scored, batchScored...)
	}

	passed := make([]ValidationResult, 0, len(scored))
	var total float64
	var passedCount, failedCount int
	for _, s := range scored {
		total += s.ValidationScore
		if s.Passed {
			passedCount++
			passed = append(passed, s)
		} else {
			failedCount++
		}
	}

	sortValidationResultsDescending(passed)

	avg := 0.0
	if len(scored) > 0 {
		avg = total / float64(len(scored))
	}

	return ValidatedContext{
		Results: passed,
		Metadata: ValidationMetadata{
			Average:  avg,
			Passed:   passedCount,
			Failed:   failedCount,
			Duration: v.clock.Now().Sub(start),
		},
	}
}

func (v *Validator) validateOne(ctx context.Context, query string, result HybridSearchResult, heuristic bool, minScore float64) ValidationResult {
	if heuristic {
		score := result.CombinedScore
		return ValidationResult{Result: result, ValidationScore: score, Rationale: "heuristic: combined retrieval score", Passed: score >= minScore}
	}

	prompt := fmt.Sprintf(
		"Rate how relevant this retrieved content is to the user's query on a 0 to 1 scale. "+
			"Respond with strict JSON: {\"score\": 0.0, \"rationale\": \"...\"}\n\nQuery: %q\n\nContent: %q",
		query, result.Payload.Content)

	var resp validationLLMResponse
	callLLMForJSON(ctx, v.logger, "validator", func(ctx context.Context) (string, error) {
		return v.llm.Complete(ctx, CompletionRequest{Model: v.model, Prompt: prompt, Temperature: v.cfg.Temperature})
	}, &resp, func() {
		resp = validationLLMResponse{Score: result.CombinedScore, Rationale: "fallback: combined retrieval score"}
	})

	score := clampFloat(resp.Score, 0, 1)
	return ValidationResult{Result: result, ValidationScore: score, Rationale: resp.Rationale, Passed: score >= minScore}
}

func sortValidationResultsDescending(results []ValidationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ValidationScore > results[j].ValidationScore
	})
}
