package rag

// ConfidenceBreakdown is the per-term explanation returned by the
// "explain" variant of confidence calculation.
type ConfidenceBreakdown struct {
	Base            float64
	ValidatedCountBoost float64
	CitationRelevanceBoost float64
	EnhancementBoost float64
	DecompositionBoost float64
	RatioAdjustment float64
	Total           float64
}

// CalculateConfidence combines pipeline metadata into a single [0,1] score.
func CalculateConfidence(validatedCount, retrievedCount int, citationScores []float64, enhanced, decomposed bool) float64 {
	return calculateConfidenceBreakdown(validatedCount, retrievedCount, citationScores, enhanced, decomposed).Total
}

// CalculateConfidenceExplained returns the full per-term breakdown alongside the total.
func CalculateConfidenceExplained(validatedCount, retrievedCount int, citationScores []float64, enhanced, decomposed bool) ConfidenceBreakdown {
	return calculateConfidenceBreakdown(validatedCount, retrievedCount, citationScores, enhanced, decomposed)
}

func calculateConfidenceBreakdown(validatedCount, retrievedCount int, citationScores []float64, enhanced, decomposed bool) ConfidenceBreakdown {
	b := ConfidenceBreakdown{Base: 0.5}

	switch {
	case validatedCount >= 8:
		b.ValidatedCountBoost = 0.20
	case validatedCount >= 5:
		b.ValidatedCountBoost = 0.15
	case validatedCount >= 3:
		b.ValidatedCountBoost = 0.10
	case validatedCount >= 1:
		b.ValidatedCountBoost = 0.05
	}

	if len(citationScores) > 0 {
		var sum float64
		for _, s := range citationScores {
			sum += s
		}
		b.CitationRelevanceBoost = 0.20 * (sum / float64(len(citationScores)))
	}

	if enhanced {
		b.EnhancementBoost = 0.10
	}

	if decomposed && validatedCount >= 5 {
		b.DecompositionBoost = 0.05
	}

	if retrievedCount > 0 {
		ratio := float64(validatedCount) / float64(retrievedCount)
		switch {
		case ratio >= 0.5:
			b.RatioAdjustment = 0.05
		case ratio < 0.2:
			b.RatioAdjustment = -0.05
		}
	}

	total := b.Base + b.ValidatedCountBoost + b.CitationRelevanceBoost + b.EnhancementBoost + b.DecompositionBoost + b.RatioAdjustment
	b.Total = clampFloat(total, 0, 1)
	return b
}
