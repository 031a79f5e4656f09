package rag

import (
	"context"
	"fmt"

	"github.com/k-moffett/ragpilot/internal/config"
	"go.uber.org/zap"
)

type gradingLLMResponse struct {
	Relevance    float64  `json:"relevance"`
	Completeness float64  `json:"completeness"`
	Clarity      float64  `json:"clarity"`
	Rationale    string   `json:"rationale"`
	Entities     []string `json:"entities"`
	Concepts     []string `json:"concepts"`
	Keywords     []string `json:"keywords"`
}

// Grader scores a completion for relevance/completeness/clarity and
// extracts entities/concepts/keywords. It runs after the caller has
// obtained the completion, typically in fire-and-forget mode.
type Grader struct {
	llm    CompletionProvider
	cfg    *config.GraderConfig
	model  string
	logger *zap.Logger
}

// NewGrader constructs a Grader.
func NewGrader(llm CompletionProvider, cfg *config.GraderConfig, model string, logger *zap.Logger) *Grader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grader{llm: llm, cfg: cfg, model: model, logger: logger}
}

// Grade scores query/completion pair. It never errors: a failure yields
// the documented default grading (0.5 on every axis, empty entity lists).
func (g *Grader) Grade(ctx context.Context, query, completion string) GradingResult {
	prompt := fmt.Sprintf(
		"Grade this assistant completion against the user's query. Score relevance, completeness, and clarity "+
			"each from 0 to 1, and extract notable entities, concepts, and keywords. Respond with strict JSON: "+
			"{\"relevance\": 0.0, \"completeness\": 0.0, \"clarity\": 0.0, \"rationale\": \"...\", "+
			"\"entities\": [], \"concepts\": [], \"keywords\": []}\n\nQuery: %q\n\nCompletion: %q", query, completion)

	var resp gradingLLMResponse
	callLLMForJSON(ctx, g.logger, "grader", func(ctx context.Context) (string, error) {
		return g.llm.Complete(ctx, CompletionRequest{Model: g.model, Prompt: prompt, Temperature: g.cfg.Temperature})
	}, &resp, func() {
		resp = gradingLLMResponse{Relevance: 0.5, Completeness: 0.5, Clarity: 0.5}
	})

	relevance := clampFloat(resp.Relevance, 0, 1)
	completeness := clampFloat(resp.Completeness, 0, 1)
	clarity := clampFloat(resp.Clarity, 0, 1)

	overall := g.cfg.Weights.Relevance*relevance + g.cfg.Weights.Completeness*completeness + g.cfg.Weights.Clarity*clarity

	return GradingResult{
		Relevance:    relevance,
		Completeness: completeness,
		Clarity:      clarity,
		Overall:      clampFloat(overall, 0, 1),
		Rationale:    resp.Rationale,
		Entities:     resp.Entities,
		Concepts:     resp.Concepts,
		Keywords:     resp.Keywords,
	}
}

// GradeAsync runs Grade in a detached goroutine and invokes onResult with
// the grading once complete. Any panic inside the grading call is
// recovered and logged rather than propagated, matching the Orchestrator's
// fire-and-forget invocation contract.
func (g *Grader) GradeAsync(ctx context.Context, query, completion string, onResult func(GradingResult)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("quality grading panicked", zap.Any("recovered", r))
			}
		}()
		result := g.Grade(ctx, query, completion)
		if onResult != nil {
			onResult(result)
		}
	}()
}
