package rag

import (
	"sort"
	"time"

	"github.com/k-moffett/ragpilot/internal/config"
)

// TemporalScope names a named age tier for filtering results by recency.
type TemporalScope string

const (
	TemporalScopeLastMessage TemporalScope = "lastMessage"
	TemporalScopeRecent      TemporalScope = "recent"
	TemporalScopeSession     TemporalScope = "session"
	TemporalScopeAllTime     TemporalScope = "all_time"
)

// RetrievalFilters are the client-side filters applied after the store
// returns raw candidates: temporal scope, required/excluded tags, role, and
// a minimum-quality (drop failure-feedback) toggle.
type RetrievalFilters struct {
	TemporalScope TemporalScope
	RequiredTags  []string
	ExcludedTags  []string
	Role          Role
	MinQuality    bool
}

// temporalCutoff returns the earliest timestamp a result may have to pass
// the named scope, or the zero Time (no cutoff) for all_time.
func temporalCutoff(scope TemporalScope, now time.Time, thresholds config.TemporalThresholds) time.Time {
	switch scope {
	case TemporalScopeLastMessage:
		return now.Add(-time.Duration(thresholds.LastMessageSeconds) * time.Second)
	case TemporalScopeRecent:
		return now.Add(-time.Duration(thresholds.RecentSeconds) * time.Second)
	case TemporalScopeSession:
		return now.Add(-time.Duration(thresholds.SessionSeconds) * time.Second)
	default:
		return time.Time{}
	}
}

// applyClientSideFilters filters hits by temporal scope, required/excluded
// tags (AND semantics on required), optional role, and optional
// min-quality (drops user-feedback=failure entries).
func applyClientSideFilters(hits []SearchHit, filters RetrievalFilters, now time.Time, thresholds config.TemporalThresholds) []SearchHit {
	cutoff := temporalCutoff(filters.TemporalScope, now, thresholds)

	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		if !cutoff.IsZero() && h.Payload.Timestamp.Before(cutoff) {
			continue
		}
		if !hasAllTags(h.Payload.Tags, filters.RequiredTags) {
			continue
		}
		if hasAnyTag(h.Payload.Tags, filters.ExcludedTags) {
			continue
		}
		if filters.Role != "" && h.Payload.Role != filters.Role {
			continue
		}
		if filters.MinQuality && h.Payload.UserFeedback == FeedbackFailure {
			continue
		}
		out = append(out, h)
	}
	return out
}

func hasAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func hasAnyTag(have, excluded []string) bool {
	if len(excluded) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, e := range excluded {
		if _, ok := set[e]; ok {
			return true
		}
	}
	return false
}

// sortByCombinedScoreDescending sorts in place by combined score, highest first.
func sortByCombinedScoreDescending(results []HybridSearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})
}
