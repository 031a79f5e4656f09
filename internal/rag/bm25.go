package rag

import (
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases and splits on whitespace and punctuation.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// BM25Params holds the Okapi BM25 tuning constants.
type BM25Params struct {
	K1 float64
	B  float64
}

// bm25Score computes the raw (unnormalized) Okapi BM25 relevance score of a
// query against one document, given the full candidate document set for
// IDF and average-length statistics.
func bm25Score(query string, doc string, corpus []string, params BM25Params) float64 {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || len(corpus) == 0 {
		return 0
	}

	docTerms := tokenize(doc)
	docLen := float64(len(docTerms))

	avgDocLen := averageDocLength(corpus)
	if avgDocLen == 0 {
		return 0
	}

	termFreq := make(map[string]int, len(docTerms))
	for _, t := range docTerms {
		termFreq[t]++
	}

	n := float64(len(corpus))
	var score float64
	for _, term := range uniqueTerms(queryTerms) {
		df := documentFrequency(term, corpus)
		idf := math.Log((n-df+0.5)/(df+0.5) + 1e-12)
		tf := float64(termFreq[term])
		denom := tf + params.K1*(1-params.B+params.B*docLen/avgDocLen)
		if denom == 0 {
			continue
		}
		score += idf * (tf * (params.K1 + 1)) / denom
	}
	return score
}

func averageDocLength(corpus []string) float64 {
	if len(corpus) == 0 {
		return 0
	}
	total := 0
	for _, doc := range corpus {
		total += len(tokenize(doc))
	}
	return float64(total) / float64(len(corpus))
}

func documentFrequency(term string, corpus []string) float64 {
	count := 0
	for _, doc := range corpus {
		for _, t := range tokenize(doc) {
			if t == term {
				count++
				break
			}
		}
	}
	return float64(count)
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// normalizeMinMax maps raw scores to [0,1] via min-max normalization. A
// constant input (min == max) maps every value to 0.5, per the documented
// BM25 normalization contract.
func normalizeMinMax(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	if max == min {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}

// bm25ScoresForCorpus scores query against every document in corpus and
// returns min-max-normalized scores in [0,1], aligned by index with corpus.
func bm25ScoresForCorpus(query string, corpus []string, params BM25Params) []float64 {
	raw := make([]float64, len(corpus))
	for i, doc := range corpus {
		raw[i] = bm25Score(query, doc, corpus, params)
	}
	return normalizeMinMax(raw)
}

// fuseScores computes the weighted-sum combined score used throughout
// retrieval: combined = dense_weight*dense + bm25_weight*bm25.
func fuseScores(dense, bm25, denseWeight, bm25Weight float64) float64 {
	return denseWeight*dense + bm25Weight*bm25
}

// dedupByMessageID deduplicates results by message id, keeping the entry
// with the highest combined score for each id.
func dedupByMessageID(results []HybridSearchResult) []HybridSearchResult {
	best := make(map[string]HybridSearchResult, len(results))
	order := make([]string, 0, len(results))
	for _, r := range results {
		existing, ok := best[r.MessageID]
		if !ok {
			order = append(order, r.MessageID)
			best[r.MessageID] = r
			continue
		}
		if r.CombinedScore > existing.CombinedScore {
			best[r.MessageID] = r
		}
	}
	out := make([]HybridSearchResult, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}
