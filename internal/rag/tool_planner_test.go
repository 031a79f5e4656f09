package rag

import (
	"context"
	"testing"

	"github.com/k-moffett/ragpilot/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestToolPlannerHappyPath(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"steps":[{"tool":"calculator","rationale":"sum the totals"},{"tool":"vector_search","rationale":"find prior figures"}]}`,
	}}
	planner := NewToolPlanner(llm, &config.ToolPlannerConfig{MaxSteps: 5, Temperature: 0.2}, "test-model", []string{"calculator", "vector_search"}, nil)

	plan := planner.Plan(context.Background(), "calculate the total from last time")

	assert.Len(t, plan.Steps, 2)
	assert.Equal(t, 1, plan.Steps[0].Order)
	assert.Equal(t, 2, plan.Steps[1].Order)
}

func TestToolPlannerCapsAtMaxSteps(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"steps":[{"tool":"a"},{"tool":"b"},{"tool":"c"}]}`,
	}}
	planner := NewToolPlanner(llm, &config.ToolPlannerConfig{MaxSteps: 2, Temperature: 0.2}, "test-model", []string{"a", "b", "c"}, nil)

	plan := planner.Plan(context.Background(), "q")

	assert.Len(t, plan.Steps, 2)
}

func TestToolPlannerEmptyOnFailure(t *testing.T) {
	llm := &fakeLLM{err: errAlwaysFail}
	planner := NewToolPlanner(llm, &config.ToolPlannerConfig{MaxSteps: 5, Temperature: 0.2}, "test-model", nil, nil)

	plan := planner.Plan(context.Background(), "q")

	assert.Empty(t, plan.Steps)
}
