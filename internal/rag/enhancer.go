package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/k-moffett/ragpilot/internal/config"
	"go.uber.org/zap"
)

type hydeLLMResponse struct {
	HypotheticalAnswer string  `json:"hypothetical_answer"`
	Confidence         float64 `json:"confidence"`
}

type expansionLLMResponse struct {
	Alternatives []string `json:"alternatives"`
	Related      []string `json:"related"`
}

// Enhancer runs HyDE and query expansion, each independently cacheable and
// independently fallible.
type Enhancer struct {
	llm      CompletionProvider
	cache    *Cache
	cfg      *config.EnhancerConfig
	cacheCfg *config.CacheConfig
	model    string
	logger   *zap.Logger
}

// NewEnhancer constructs an Enhancer.
func NewEnhancer(llm CompletionProvider, cache *Cache, cfg *config.EnhancerConfig, cacheCfg *config.CacheConfig, model string, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{llm: llm, cache: cache, cfg: cfg, cacheCfg: cacheCfg, model: model, logger: logger}
}

// Enhance runs the requested sub-operations concurrently and returns once
// both complete (a sub-operation not requested stays nil).
func (e *Enhancer) Enhance(ctx context.Context, query, userID string, strategy Strategy) EnhancedQuery {
	var wg sync.WaitGroup
	var result EnhancedQuery

	if strategy.UseHyDE {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := e.hyde(ctx, query, userID)
			result.HyDE = &h
		}()
	}

	if strategy.UseQueryExpansion {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exp := e.expand(ctx, query, userID)
			result.Expansion = &exp
		}()
	}

	wg.Wait()
	return result
}

func (e *Enhancer) hyde(ctx context.Context, query, userID string) HyDEResult {
	cacheKey := CacheKey("hyde", userID, query)
	if e.cacheCfg != nil && e.cacheCfg.CacheHyDE {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if h, ok := cached.(HyDEResult); ok {
				return h
			}
		}
	}

	prompt := fmt.Sprintf(
		"Write a detailed hypothetical 2-4 sentence answer that a good document retrieval system would return for this query. "+
			"Respond with strict JSON: {\"hypothetical_answer\": \"...\", \"confidence\": 0.0}\n\nQuery: %q", query)

	var resp hydeLLMResponse
	callLLMForJSON(ctx, e.logger, "enhancer.hyde", func(ctx context.Context) (string, error) {
		return e.llm.Complete(ctx, CompletionRequest{Model: e.model, Prompt: prompt, Temperature: e.cfg.Temperature})
	}, &resp, func() {
		resp = hydeLLMResponse{HypotheticalAnswer: query, Confidence: 0.5}
	})

	result := HyDEResult{
		HypotheticalAnswer: resp.HypotheticalAnswer,
		Confidence:         clampFloat(resp.Confidence, 0, 1),
		OriginalQuery:      query,
	}

	if e.cacheCfg != nil && e.cacheCfg.CacheHyDE {
		e.cache.Set(cacheKey, result, time.Duration(e.cacheCfg.DefaultTTLSeconds)*time.Second)
	}
	return result
}

func (e *Enhancer) expand(ctx context.Context, query, userID string) Expansion {
	cacheKey := CacheKey("expansion", userID, query)
	if e.cacheCfg != nil && e.cacheCfg.CacheHyDE {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if exp, ok := cached.(Expansion); ok {
				return exp
			}
		}
	}

	prompt := fmt.Sprintf(
		"Propose 2-3 alternative phrasings and 1-2 related queries for this user query, to widen retrieval recall. "+
			"Respond with strict JSON: {\"alternatives\": [\"...\"], \"related\": [\"...\"]}\n\nQuery: %q", query)

	var resp expansionLLMResponse
	callLLMForJSON(ctx, e.logger, "enhancer.expansion", func(ctx context.Context) (string, error) {
		return e.llm.Complete(ctx, CompletionRequest{Model: e.model, Prompt: prompt, Temperature: e.cfg.Temperature})
	}, &resp, func() {
		resp = expansionLLMResponse{}
	})

	result := Expansion{
		Alternatives: truncateStrings(resp.Alternatives, e.cfg.MaxAlternatives),
		Related:      truncateStrings(resp.Related, e.cfg.MaxRelated),
	}

	if e.cacheCfg != nil && e.cacheCfg.CacheHyDE {
		e.cache.Set(cacheKey, result, time.Duration(e.cacheCfg.DefaultTTLSeconds)*time.Second)
	}
	return result
}

func truncateStrings(in []string, max int) []string {
	if max <= 0 || len(in) <= max {
		return in
	}
	return in[:max]
}
