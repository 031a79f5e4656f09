// Package mcptools exposes the orchestration engine's retrieval primitives
// as MCP tools, so an agent session can search or enrich the same vector
// index the Hybrid Retriever draws from.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/k-moffett/ragpilot/internal/rag"
	"github.com/k-moffett/ragpilot/internal/vectorstore"
)

// VectorSearchToolName and VectorUpsertToolName are the catalog entries the
// Tool Planner may choose among.
const (
	VectorSearchToolName = "vector_search"
	VectorUpsertToolName = "vector_upsert"
)

// ToolNames lists the tool catalog registered by Register, for wiring into
// rag.NewToolPlanner.
func ToolNames() []string {
	return []string{VectorSearchToolName, VectorUpsertToolName}
}

// Register adds the vector_search and vector_upsert tools to server.
func Register(server *mcp.Server, store *vectorstore.QdrantStore, embedder rag.EmbeddingProvider, embeddingModel string) error {
	if err := registerVectorSearch(server, store, embedder, embeddingModel); err != nil {
		return fmt.Errorf("failed to register %s: %w", VectorSearchToolName, err)
	}
	if err := registerVectorUpsert(server, store, embedder, embeddingModel); err != nil {
		return fmt.Errorf("failed to register %s: %w", VectorUpsertToolName, err)
	}
	return nil
}

func registerVectorSearch(server *mcp.Server, store *vectorstore.QdrantStore, embedder rag.EmbeddingProvider, embeddingModel string) error {
	tool := &mcp.Tool{
		Name:        VectorSearchToolName,
		Description: "Search the conversation vector index by semantic similarity. Returns top matches with scores and stored message content. Use to pull prior context for the current user.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"userId": {
					Type:        "string",
					Description: "User whose conversation history to search",
				},
				"query": {
					Type:        "string",
					Description: "Natural-language search query",
				},
				"limit": {
					Type:        "number",
					Description: "Maximum number of results (default 10)",
				},
			},
			Required: []string{"userId", "query"},
		},
	}

	server.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := extractArguments(req)
		if err != nil {
			return createErrorResult(fmt.Sprintf("failed to extract arguments: %s", err.Error())), nil
		}

		userID, _ := args["userId"].(string)
		query, _ := args["query"].(string)
		if userID == "" || query == "" {
			return createErrorResult("userId and query are required"), nil
		}

		limit := 10
		if l, ok := args["limit"].(float64); ok && l > 0 {
			limit = int(l)
		}

		vector, err := embedder.Embed(ctx, embeddingModel, query)
		if err != nil {
			return createErrorResult(fmt.Sprintf("failed to embed query: %s", err.Error())), nil
		}

		hits, err := store.Search(ctx, userID, vector, limit, query, rag.SearchFilters{})
		if err != nil {
			return createErrorResult(fmt.Sprintf("search failed: %s", err.Error())), nil
		}

		jsonData, err := json.Marshal(hits)
		if err != nil {
			return createErrorResult(fmt.Sprintf("failed to encode results: %s", err.Error())), nil
		}
		return createJSONResult(jsonData), nil
	})

	return nil
}

func registerVectorUpsert(server *mcp.Server, store *vectorstore.QdrantStore, embedder rag.EmbeddingProvider, embeddingModel string) error {
	tool := &mcp.Tool{
		Name:        VectorUpsertToolName,
		Description: "Embed and store one piece of content in the conversation vector index, so future retrieval can surface it.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"userId": {
					Type:        "string",
					Description: "User the content belongs to",
				},
				"sessionId": {
					Type:        "string",
					Description: "Session the content belongs to",
				},
				"content": {
					Type:        "string",
					Description: "Text content to embed and store",
				},
				"role": {
					Type:        "string",
					Description: "Speaker role: user or bot",
				},
			},
			Required: []string{"userId", "content"},
		},
	}

	server.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := extractArguments(req)
		if err != nil {
			return createErrorResult(fmt.Sprintf("failed to extract arguments: %s", err.Error())), nil
		}

		userID, _ := args["userId"].(string)
		content, _ := args["content"].(string)
		if userID == "" || content == "" {
			return createErrorResult("userId and content are required"), nil
		}
		sessionID, _ := args["sessionId"].(string)
		role, _ := args["role"].(string)
		if role == "" {
			role = string(rag.RoleUser)
		}

		vector, err := embedder.Embed(ctx, embeddingModel, content)
		if err != nil {
			return createErrorResult(fmt.Sprintf("failed to embed content: %s", err.Error())), nil
		}

		id := uuid.NewString()
		payload := rag.MessagePayload{
			Content:   content,
			SessionID: sessionID,
			UserID:    userID,
			Role:      rag.Role(role),
		}
		if err := store.Upsert(ctx, id, vector, payload); err != nil {
			return createErrorResult(fmt.Sprintf("upsert failed: %s", err.Error())), nil
		}

		jsonData, _ := json.Marshal(map[string]interface{}{"id": id, "status": "stored"})
		return createJSONResult(jsonData), nil
	})

	return nil
}

func extractArguments(req *mcp.CallToolRequest) (map[string]interface{}, error) {
	if len(req.Params.Arguments) == 0 {
		return make(map[string]interface{}), nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(req.Params.Arguments, &result); err != nil {
		return nil, fmt.Errorf("arguments must be a valid JSON object: %w", err)
	}
	return result, nil
}

func createErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error: %s", message)}},
		IsError: true,
	}
}

func createJSONResult(data []byte) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
