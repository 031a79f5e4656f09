package rag

import (
	"context"
	"fmt"

	"github.com/k-moffett/ragpilot/internal/config"
	"go.uber.org/zap"
)

// Retriever fans out over query variations (original, HyDE hypothetical,
// alternatives, related), running a dense+BM25 fusion pass per variation,
// then merges and deduplicates the union.
type Retriever struct {
	store  VectorStore
	embed  EmbeddingProvider
	cfg    *config.RetrieverConfig
	model  string
	clock  Clock
	logger *zap.Logger
}

// NewRetriever constructs a Retriever.
func NewRetriever(store VectorStore, embed EmbeddingProvider, cfg *config.RetrieverConfig, model string, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, embed: embed, cfg: cfg, model: model, clock: SystemClock{}, logger: logger}
}

// RetrieveLimitForComplexity implements the Orchestrator's retrieval-limit
// scaling rule: <=3 -> min(10,max), <=6 -> min(30,max), else max.
func RetrieveLimitForComplexity(complexity, max int) int {
	switch {
	case complexity <= 3:
		return minInt(10, max)
	case complexity <= 6:
		return minInt(30, max)
	default:
		return max
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// buildVariations deduplicates the union of original query, HyDE
// hypothetical, alternatives, and related queries, preserving order with
// the original query first.
func buildVariations(query string, enhanced EnhancedQuery) []string {
	seen := map[string]struct{}{}
	var variations []string

	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variations = append(variations, v)
	}

	add(query)
	if enhanced.HyDE != nil {
		add(enhanced.HyDE.HypotheticalAnswer)
	}
	if enhanced.Expansion != nil {
		for _, alt := range enhanced.Expansion.Alternatives {
			add(alt)
		}
		for _, rel := range enhanced.Expansion.Related {
			add(rel)
		}
	}
	return variations
}

// Retrieve fans out over query variations and returns the merged,
// deduplicated, limit-truncated result set.
func (r *Retriever) Retrieve(ctx context.Context, query, userID string, enhanced EnhancedQuery, limit int, filters RetrievalFilters, searchFilters SearchFilters) (RetrievedContext, error) {
	start := r.clock.Now()
	variations := buildVariations(query, enhanced)
	perVariationCap := 2 * limit

	type variationResult struct {
		variation string
		results   []HybridSearchResult
		err       error
	}

	outcomes := boundedFanOut(ctx, variations, 0, func(ctx context.Context, v string) variationResult {
		results, err := r.retrieveOneVariation(ctx, v, userID, perVariationCap, filters, searchFilters)
		return variationResult{variation: v, results: results, err: err}
	})

	counts := make(map[string]int, len(outcomes))
	var merged []HybridSearchResult
	var firstErr error
	for _, o := range outcomes {
		if o.err != nil {
			r.logger.Warn("retrieval failed for query variation", zap.String("variation", o.variation), zap.Error(o.err))
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		counts[o.variation] = len(o.results)
		merged = append(merged, o.results...)
	}

	// A primary-path vector-search failure on every variation is pipeline-fatal.
	if len(merged) == 0 && firstErr != nil {
		return RetrievedContext{}, fmt.Errorf("hybrid retrieval failed on all query variations: %w", firstErr)
	}

	merged = dedupByMessageID(merged)
	sortByCombinedScoreDescending(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return RetrievedContext{
		Results: merged,
		Metadata: RetrievalMetadata{
			CountsPerVariation: counts,
			FiltersApplied:     appliedFilterNames(filters),
			UsedHyDE:           enhanced.HyDE != nil,
			Duration:           r.clock.Now().Sub(start),
		},
	}, nil
}

func (r *Retriever) retrieveOneVariation(ctx context.Context, variation, userID string, storeLimit int, filters RetrievalFilters, searchFilters SearchFilters) ([]HybridSearchResult, error) {
	vector, err := r.embed.Embed(ctx, r.model, variation)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	hits, err := r.store.Search(ctx, userID, vector, storeLimit, variation, searchFilters)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	filtered := applyClientSideFilters(hits, filters, r.clock.Now(), r.cfg.TemporalThresholds)
	if len(filtered) == 0 {
		return nil, nil
	}

	corpus := make([]string, len(filtered))
	for i, h := range filtered {
		corpus[i] = h.Payload.Content
	}
	bm25Scores := bm25ScoresForCorpus(variation, corpus, BM25Params{K1: r.cfg.BM25K1, B: r.cfg.BM25B})

	results := make([]HybridSearchResult, len(filtered))
	for i, h := range filtered {
		combined := fuseScores(h.Score, bm25Scores[i], r.cfg.DenseWeight, r.cfg.BM25Weight)
		results[i] = HybridSearchResult{
			MessageID:     h.ID,
			Payload:       h.Payload,
			DenseScore:    clampFloat(h.Score, 0, 1),
			BM25Score:     clampFloat(bm25Scores[i], 0, 1),
			CombinedScore: clampFloat(combined, 0, 1),
		}
	}
	sortByCombinedScoreDescending(results)
	return results, nil
}

func appliedFilterNames(filters RetrievalFilters) []string {
	var names []string
	if filters.TemporalScope != "" && filters.TemporalScope != TemporalScopeAllTime {
		names = append(names, "temporal:"+string(filters.TemporalScope))
	}
	if len(filters.RequiredTags) > 0 {
		names = append(names, "requiredTags")
	}
	if len(filters.ExcludedTags) > 0 {
		names = append(names, "excludedTags")
	}
	if filters.Role != "" {
		names = append(names, "role")
	}
	if filters.MinQuality {
		names = append(names, "minQuality")
	}
	return names
}
