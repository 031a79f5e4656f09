package rag

import (
	"context"
	"fmt"

	"github.com/k-moffett/ragpilot/internal/config"
	"go.uber.org/zap"
)

type toolStepLLMResponse struct {
	Tool      string `json:"tool"`
	Rationale string `json:"rationale"`
}

type toolPlanLLMResponse struct {
	Steps []toolStepLLMResponse `json:"steps"`
}

// ToolPlanner proposes an ordered, advisory tool plan for complex queries.
// Its output is logged and never wired into prompt assembly (see the
// Orchestrator's step 7 and the design notes on this deliberate asymmetry).
type ToolPlanner struct {
	llm       CompletionProvider
	cfg       *config.ToolPlannerConfig
	model     string
	toolNames []string
	logger    *zap.Logger
}

// NewToolPlanner constructs a ToolPlanner. toolNames is the catalog of
// tool names the planner may choose among (e.g. the MCP tool catalog).
func NewToolPlanner(llm CompletionProvider, cfg *config.ToolPlannerConfig, model string, toolNames []string, logger *zap.Logger) *ToolPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolPlanner{llm: llm, cfg: cfg, model: model, toolNames: toolNames, logger: logger}
}

// Plan proposes a plan for query, capped at maxSteps. On LLM or parse
// failure it returns an empty plan; the caller only logs the result and
// never blocks retrieval or prompt assembly on it.
func (p *ToolPlanner) Plan(ctx context.Context, query string) ToolPlan {
	prompt := fmt.Sprintf(
		"Propose an ordered plan of tool invocations (from this catalog: %v) to help answer the query. "+
			"Respond with strict JSON: {\"steps\": [{\"tool\": \"...\", \"rationale\": \"...\"}]}\n\nQuery: %q",
		p.toolNames, query)

	var resp toolPlanLLMResponse
	callLLMForJSON(ctx, p.logger, "tool_planner", func(ctx context.Context) (string, error) {
		return p.llm.Complete(ctx, CompletionRequest{Model: p.model, Prompt: prompt, Temperature: p.cfg.Temperature})
	}, &resp, func() {
		resp = toolPlanLLMResponse{}
	})

	maxSteps := p.cfg.MaxSteps
	steps := make([]ToolStep, 0, len(resp.Steps))
	for i, s := range resp.Steps {
		if maxSteps > 0 && len(steps) >= maxSteps {
			break
		}
		steps = append(steps, ToolStep{Tool: s.Tool, Rationale: s.Rationale, Order: i + 1})
	}

	return ToolPlan{Steps: steps}
}
