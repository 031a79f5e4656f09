package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/k-moffett/ragpilot/internal/config"
	"go.uber.org/zap"
)

var multiPartIndicators = []string{"then", "compare", "summarize", "and then", "after that", "first", "finally"}

var vagueTerms = []string{"it", "that", "this", "thing", "stuff"}

var toolIndicators = []string{"calculate", "count", "summarize", "extract", "find"}

var temporalIndicators = []string{"last time", "previously", "before", "earlier", "yesterday", "remember when"}

var comparisonIndicators = []string{"compare", "versus", " vs ", "difference between"}

var conversationalIndicators = []string{"hello", "hi ", "hey", "thanks", "thank you", "how are you"}

const routerSystemPrompt = `You are a query classifier for a retrieval-augmented conversational agent.
Classify the user's query into exactly one category:
- conversational: greetings, small talk, no retrieval needed
- factual: asks for a specific fact
- temporal: references past conversation ("what did we discuss", "last time")
- semantic: open-ended topical question
- complex: multi-part, comparative, or list-building
- retrieval-required: needs prior context but doesn't fit the above

Assign an integer complexity from 0 (trivial) to 10 (highly complex, multi-step).
Decide whether retrieval of prior context is needed.

Respond with strict JSON: {"category": "...", "complexity": 0, "needsRetrieval": true, "confidence": 0.0}`

// queryRouterLLMResponse is the wire shape the Router expects back from the LLM.
type queryRouterLLMResponse struct {
	Category       string  `json:"category"`
	Complexity     int     `json:"complexity"`
	NeedsRetrieval bool    `json:"needsRetrieval"`
	Confidence     float64 `json:"confidence"`
}

// Router classifies queries and selects a fast or complex execution path.
type Router struct {
	llm    CompletionProvider
	cache  *Cache
	cfg    *config.RouterConfig
	cacheCfg *config.CacheConfig
	model  string
	logger *zap.Logger
}

// NewRouter constructs a Router.
func NewRouter(llm CompletionProvider, cache *Cache, cfg *config.RouterConfig, cacheCfg *config.CacheConfig, model string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{llm: llm, cache: cache, cfg: cfg, cacheCfg: cacheCfg, model: model, logger: logger}
}

// Route classifies query and returns a Route, applying the fast/complex
// path rules and caching the result. A Route is never an error: on LLM or
// parse failure the keyword-heuristic fallback classification is used.
func (r *Router) Route(ctx context.Context, query, userID string) (Route, error) {
	cacheKey := CacheKey("route", userID, query)
	if r.cacheCfg != nil && r.cacheCfg.CacheRoutes {
		if cached, ok := r.cache.Get(cacheKey); ok {
			if route, ok := cached.(Route); ok {
				return route, nil
			}
		}
	}

	classification := r.classify(ctx, query)
	route := r.buildRoute(classification, query, cacheKey)

	if r.cacheCfg != nil && r.cacheCfg.CacheRoutes {
		r.cache.Set(cacheKey, route, time.Duration(r.cacheCfg.DefaultTTLSeconds)*time.Second)
	}
	return route, nil
}

func (r *Router) classify(ctx context.Context, query string) Classification {
	var resp queryRouterLLMResponse
	prompt := fmt.Sprintf("%s\n\nQuery: %q", routerSystemPrompt, query)

	callLLMForJSON(ctx, r.logger, "router", func(ctx context.Context) (string, error) {
		return r.llm.Complete(ctx, CompletionRequest{Model: r.model, Prompt: prompt, Temperature: 0})
	}, &resp, func() {
		resp = heuristicClassify(query)
	})

	return Classification{
		Category:       normalizeCategory(resp.Category),
		Complexity:     clampInt(resp.Complexity, 0, 10),
		NeedsRetrieval: resp.NeedsRetrieval,
		Confidence:     clampFloat(resp.Confidence, 0, 1),
	}
}

// heuristicClassify maps keyword indicators to a classification when the
// LLM call or its JSON parse fails; it never errors.
func heuristicClassify(query string) queryRouterLLMResponse {
	lower := strings.ToLower(query)

	switch {
	case containsAnyIndicator(lower, temporalIndicators):
		return queryRouterLLMResponse{Category: string(CategoryTemporal), Complexity: 4, NeedsRetrieval: true, Confidence: 0.4}
	case containsAnyIndicator(lower, comparisonIndicators):
		return queryRouterLLMResponse{Category: string(CategoryComplex), Complexity: 8, NeedsRetrieval: true, Confidence: 0.4}
	case containsAnyIndicator(lower, conversationalIndicators):
		return queryRouterLLMResponse{Category: string(CategoryConversational), Complexity: 1, NeedsRetrieval: false, Confidence: 0.4}
	default:
		return queryRouterLLMResponse{Category: string(CategorySemantic), Complexity: 3, NeedsRetrieval: true, Confidence: 0.3}
	}
}

func containsAnyIndicator(lower string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func normalizeCategory(raw string) QueryCategory {
	switch QueryCategory(raw) {
	case CategoryConversational, CategoryFactual, CategoryTemporal, CategorySemantic, CategoryComplex, CategoryRetrievalRequired:
		return QueryCategory(raw)
	default:
		return CategorySemantic
	}
}

func (r *Router) buildRoute(classification Classification, query, cacheKey string) Route {
	isFastPath := classification.Complexity < r.cfg.ComplexityThreshold && !hasMultiPartIndicator(query)

	if isFastPath {
		return Route{
			Classification: classification,
			Strategy:       Strategy{},
			Path:           PathFast,
			Rationale:      "complexity below threshold with no multi-part indicators",
			Metadata:       RouteMetadata{EstimatedLatencyMs: r.cfg.FastPathMaxLatencyMs, CacheKey: cacheKey},
		}
	}

	strategy := Strategy{
		UseDecomposition:  classification.Complexity > r.cfg.DecompositionThreshold,
		UseHyDE:           classification.Complexity > r.cfg.HydeThreshold,
		UseQueryExpansion: isAmbiguous(query),
		UseToolPlanning:   containsAnyIndicator(strings.ToLower(query), toolIndicators),
		UseHybridSearch:   true,
	}

	return Route{
		Classification: classification,
		Strategy:       strategy,
		Path:           PathComplex,
		Rationale:      "complexity at or above threshold, or multi-part query",
		Metadata:       RouteMetadata{EstimatedLatencyMs: r.cfg.FastPathMaxLatencyMs * 3, CacheKey: cacheKey},
	}
}

func hasMultiPartIndicator(query string) bool {
	lower := strings.ToLower(query)
	if containsAnyIndicator(lower, multiPartIndicators) {
		return true
	}
	return strings.Contains(lower, ", ") && strings.Count(lower, ",") >= 2
}

func isAmbiguous(query string) bool {
	tokens := strings.Fields(query)
	if len(tokens) <= 3 {
		return true
	}
	lower := strings.ToLower(query)
	return containsAnyIndicator(lower, vagueTerms)
}
