package rag

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/k-moffett/ragpilot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraderConfig() *config.GraderConfig {
	return &config.GraderConfig{Temperature: 0, Weights: config.GraderWeights{Relevance: 0.4, Completeness: 0.3, Clarity: 0.3}}
}

func TestGraderWeightedOverall(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"relevance":1.0,"completeness":1.0,"clarity":1.0,"rationale":"great","entities":["x"],"concepts":["y"],"keywords":["z"]}`,
	}}
	g := NewGrader(llm, testGraderConfig(), "test-model", nil)

	result := g.Grade(context.Background(), "q", "completion text")

	assert.Equal(t, 1.0, result.Overall)
	assert.Equal(t, []string{"x"}, result.Entities)
}

func TestGraderFallbackOnFailure(t *testing.T) {
	llm := &fakeLLM{err: errAlwaysFail}
	g := NewGrader(llm, testGraderConfig(), "test-model", nil)

	result := g.Grade(context.Background(), "q", "completion text")

	assert.Equal(t, 0.5, result.Relevance)
	assert.Equal(t, 0.5, result.Completeness)
	assert.Equal(t, 0.5, result.Clarity)
	assert.Empty(t, result.Entities)
}

func TestGraderAsyncInvokesCallback(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"relevance":0.9,"completeness":0.8,"clarity":0.7}`}}
	g := NewGrader(llm, testGraderConfig(), "test-model", nil)

	var mu sync.Mutex
	var got *GradingResult
	var wg sync.WaitGroup
	wg.Add(1)

	g.GradeAsync(context.Background(), "q", "completion", func(r GradingResult) {
		mu.Lock()
		got = &r
		mu.Unlock()
		wg.Done()
	})

	waitOrTimeout(t, &wg, time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	assert.Equal(t, 0.9, got.Relevance)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for async grading")
	}
}
