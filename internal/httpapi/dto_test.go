package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/k-moffett/ragpilot/internal/rag"
)

func TestToCitationDTOs(t *testing.T) {
	citations := []rag.Citation{
		{ID: 1, Content: "alpha", MessageID: "m1", RelevanceScore: 0.9},
		{ID: 2, Content: "beta", MessageID: "m2", RelevanceScore: 0.5},
	}

	dtos := toCitationDTOs(citations)
	assert.Len(t, dtos, 2)
	assert.Equal(t, 1, dtos[0].ID)
	assert.Equal(t, "alpha", dtos[0].Content)
	assert.Equal(t, "m2", dtos[1].MessageID)
}

func TestToCitationDTOsEmpty(t *testing.T) {
	assert.Empty(t, toCitationDTOs(nil))
}

func TestTruncateTitle(t *testing.T) {
	short := "what is the capital of France"
	assert.Equal(t, short, truncateTitle(short))

	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	truncated := truncateTitle(long)
	assert.Len(t, truncated, sessionTitleMaxLen)
}
