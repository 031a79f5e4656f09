package rag

import (
	"fmt"
	"strings"

	"github.com/k-moffett/ragpilot/internal/config"
)

const basePromptPreamble = "You are a helpful conversational assistant. Use the provided context when it is relevant; do not fabricate facts not supported by it or by general knowledge."

// intentInstructions maps each classification category to a per-intent
// instruction appended after the context section.
var intentInstructions = map[QueryCategory]string{
	CategoryConversational:    "Respond naturally and briefly; no citations are required for small talk.",
	CategoryFactual:           "Answer the factual question directly, citing the supporting context by number.",
	CategoryTemporal:          "Reconstruct what was previously discussed, citing the relevant prior turns by number.",
	CategorySemantic:          "Synthesize an answer from the context, citing sources by number where they support a claim.",
	CategoryComplex:           "Address each part of the request in turn, citing supporting context by number.",
	CategoryRetrievalRequired: "Use the retrieved context to ground the answer, citing sources by number.",
}

// PromptBuilder assembles the final prompt text with citation anchors.
type PromptBuilder struct {
	cfg *config.PromptBuilderConfig
}

// NewPromptBuilder constructs a PromptBuilder.
func NewPromptBuilder(cfg *config.PromptBuilderConfig) *PromptBuilder {
	return &PromptBuilder{cfg: cfg}
}

// buildCitations numbers fitted results 1..n, truncating content to
// maxCitationLength with a trailing "..." marker on overflow.
func (b *PromptBuilder) buildCitations(fitted []ValidationResult) []Citation {
	citations := make([]Citation, len(fitted))
	for i, r := range fitted {
		citations[i] = Citation{
			ID:             i + 1,
			Content:        truncateWithEllipsis(r.Result.Payload.Content, b.cfg.MaxCitationLength),
			MessageID:      r.Result.MessageID,
			RelevanceScore: r.ValidationScore,
			Timestamp:      r.Result.Payload.Timestamp,
		}
	}
	return citations
}

func truncateWithEllipsis(content string, max int) string {
	if max <= 0 || len(content) <= max {
		return content
	}
	return content[:max] + "..."
}

// Build assembles the final prompt from the base system prompt, a context
// section with citation anchors, an intent-instructions section, and the
// user query. instructionOverride, when non-empty, replaces the per-intent
// template lookup.
func (b *PromptBuilder) Build(query string, category QueryCategory, fitted []ValidationResult, instructionOverride string) BuiltPrompt {
	citations := b.buildCitations(fitted)

	var sections []string
	sections = append(sections, basePromptPreamble)

	if b.cfg.IncludeCitations && len(citations) > 0 {
		sections = append(sections, buildContextSection(citations))
	}

	instruction := instructionOverride
	if instruction == "" {
		instruction = intentInstructions[category]
	}
	if instruction != "" {
		sections = append(sections, instruction)
	}

	sections = append(sections, fmt.Sprintf("User query: %s", query))

	text := strings.Join(sections, "\n\n")

	return BuiltPrompt{
		Text:      text,
		Citations: citations,
		Metadata: PromptMetadata{
			CitationCount:    len(citations),
			ContextItemCount: len(fitted),
			EstimatedTokens:  estimateTokens(text, b.cfg.CharsPerToken),
			IncludeCitations: b.cfg.IncludeCitations,
		},
	}
}

func buildContextSection(citations []Citation) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, c := range citations {
		fmt.Fprintf(&b, "[%d] %s\n", c.ID, c.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
