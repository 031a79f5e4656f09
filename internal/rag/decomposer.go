package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/k-moffett/ragpilot/internal/config"
	"go.uber.org/zap"
)

type subQueryLLMResponse struct {
	Text          string   `json:"text"`
	Priority      int      `json:"priority"`
	Dependencies  []string `json:"dependencies"`
	SuggestedTool string   `json:"suggestedTool"`
}

type decomposerLLMResponse struct {
	QueryType  string                `json:"queryType"`
	Complexity int                   `json:"complexity"`
	SubQueries []subQueryLLMResponse `json:"subQueries"`
}

// Decomposer breaks complex queries into prioritized, dependency-tagged
// sub-queries. Only invoked when the Router's strategy requests it.
type Decomposer struct {
	llm      CompletionProvider
	cache    *Cache
	cfg      *config.DecomposerConfig
	cacheCfg *config.CacheConfig
	model    string
	logger   *zap.Logger
}

// NewDecomposer constructs a Decomposer.
func NewDecomposer(llm CompletionProvider, cache *Cache, cfg *config.DecomposerConfig, cacheCfg *config.CacheConfig, model string, logger *zap.Logger) *Decomposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{llm: llm, cache: cache, cfg: cfg, cacheCfg: cacheCfg, model: model, logger: logger}
}

// Decompose produces a DecomposedQuery for query, falling back to a single
// echo sub-query whenever the LLM fails, returns no sub-queries, or
// maxSubQueries is zero.
func (d *Decomposer) Decompose(ctx context.Context, query, userID string) DecomposedQuery {
	cacheKey := CacheKey("decompose", userID, query)
	if d.cacheCfg != nil && d.cacheCfg.CacheDecompositions {
		if cached, ok := d.cache.Get(cacheKey); ok {
			if dq, ok := cached.(DecomposedQuery); ok {
				return dq
			}
		}
	}

	prompt := fmt.Sprintf(
		"Decompose this query into independently-answerable sub-queries. Each sub-query needs a priority "+
			"(1 = highest) and may depend on the text of an earlier sub-query. Respond with strict JSON: "+
			"{\"queryType\": \"simple|complex|comparative|listBuilding\", \"complexity\": 0, "+
			"\"subQueries\": [{\"text\": \"...\", \"priority\": 1, \"dependencies\": [], \"suggestedTool\": \"\"}]}"+
			"\n\nQuery: %q", query)

	var resp decomposerLLMResponse
	callLLMForJSON(ctx, d.logger, "decomposer", func(ctx context.Context) (string, error) {
		return d.llm.Complete(ctx, CompletionRequest{Model: d.model, Prompt: prompt, Temperature: d.cfg.Temperature})
	}, &resp, func() {
		resp = decomposerLLMResponse{}
	})

	result := d.validate(resp, query)

	if d.cacheCfg != nil && d.cacheCfg.CacheDecompositions {
		d.cache.Set(cacheKey, result, time.Duration(d.cacheCfg.DefaultTTLSeconds)*time.Second)
	}
	return result
}

func (d *Decomposer) validate(resp decomposerLLMResponse, query string) DecomposedQuery {
	maxSub := d.cfg.MaxSubQueries

	subQueries := make([]SubQuery, 0, len(resp.SubQueries))
	for _, sq := range resp.SubQueries {
		if maxSub > 0 && len(subQueries) >= maxSub {
			break
		}
		subQueries = append(subQueries, SubQuery{
			Text:          sq.Text,
			Priority:      sq.Priority,
			Dependencies:  sq.Dependencies,
			SuggestedTool: sq.SuggestedTool,
		})
	}

	if maxSub == 0 || len(subQueries) == 0 {
		return DecomposedQuery{
			OriginalQuery: query,
			QueryType:     QueryTypeSimple,
			Complexity:    5,
			SubQueries:    []SubQuery{{Text: query, Priority: 1}},
		}
	}

	return DecomposedQuery{
		OriginalQuery: query,
		QueryType:     normalizeQueryType(resp.QueryType),
		Complexity:    clampInt(resp.Complexity, 0, 10),
		SubQueries:    subQueries,
	}
}

func normalizeQueryType(raw string) QueryType {
	switch QueryType(raw) {
	case QueryTypeSimple, QueryTypeComplex, QueryTypeComparative, QueryTypeListBuilding:
		return QueryType(raw)
	default:
		return QueryTypeSimple
	}
}
