package httpapi

import "github.com/k-moffett/ragpilot/internal/rag"

// orchestrateRequest is the JSON body for POST /v1/orchestrate.
type orchestrateRequest struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query" binding:"required"`
}

// citationDTO is the wire form of a rag.Citation.
type citationDTO struct {
	ID             int     `json:"id"`
	Content        string  `json:"content"`
	MessageID      string  `json:"messageId"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// orchestrateResponse is the JSON body returned by POST /v1/orchestrate.
type orchestrateResponse struct {
	SessionID  string        `json:"sessionId"`
	MessageID  string        `json:"messageId"`
	Answer     string        `json:"answer"`
	PathTaken  rag.Path      `json:"pathTaken"`
	Confidence float64       `json:"confidence"`
	Citations  []citationDTO `json:"citations"`
}

func toCitationDTOs(citations []rag.Citation) []citationDTO {
	out := make([]citationDTO, 0, len(citations))
	for _, c := range citations {
		out = append(out, citationDTO{
			ID:             c.ID,
			Content:        c.Content,
			MessageID:      c.MessageID,
			RelevanceScore: c.RelevanceScore,
		})
	}
	return out
}
