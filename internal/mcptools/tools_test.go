package mcptools

import (
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolNamesListsBothTools(t *testing.T) {
	assert.ElementsMatch(t, []string{VectorSearchToolName, VectorUpsertToolName}, ToolNames())
}

func TestExtractArgumentsParsesJSON(t *testing.T) {
	req := &mcp.CallToolRequest{}
	req.Params.Arguments = json.RawMessage(`{"userId":"u1","query":"hello"}`)

	args, err := extractArguments(req)
	require.NoError(t, err)
	assert.Equal(t, "u1", args["userId"])
	assert.Equal(t, "hello", args["query"])
}

func TestExtractArgumentsEmptyReturnsEmptyMap(t *testing.T) {
	req := &mcp.CallToolRequest{}
	args, err := extractArguments(req)
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestExtractArgumentsInvalidJSONErrors(t *testing.T) {
	req := &mcp.CallToolRequest{}
	req.Params.Arguments = json.RawMessage(`not json`)
	_, err := extractArguments(req)
	assert.Error(t, err)
}

func TestCreateErrorResultSetsIsError(t *testing.T) {
	result := createErrorResult("boom")
	assert.True(t, result.IsError)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "boom")
}
