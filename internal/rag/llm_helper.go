package rag

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json|[a-zA-Z]*)?\\s*(.*?)\\s*```")

// extractJSON pulls a JSON payload out of an LLM response, tolerating a
// fenced code block (```json ... ``` or plain ``` ... ```) around raw JSON.
// It centralizes the "parse JSON, tolerating fenced code blocks" behavior
// every LLM-backed component needs.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencedBlockPattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// callLLMForJSON centralizes "call the LLM, parse JSON (tolerating code
// fences), on error apply fallback" for every component with a documented
// fallback policy. It never returns an error itself: a failure to complete
// or to parse is logged and the fallback closure's zero-value-or-better
// result is used instead, matching the per-component failure modes in the
// error-handling design.
func callLLMForJSON[T any](ctx context.Context, logger *zap.Logger, component string, complete func(context.Context) (string, error), out *T, fallback func()) {
	raw, err := complete(ctx)
	if err != nil {
		logger.Warn("llm call failed, applying fallback", zap.String("component", component), zap.Error(err))
		fallback()
		return
	}
	candidate := extractJSON(raw)
	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		logger.Warn("llm response parse failed, applying fallback", zap.String("component", component), zap.Error(err), zap.String("raw", raw))
		fallback()
	}
}
