// Package vectorstore implements internal/rag's VectorStore interface
// against Qdrant's HTTP API.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/k-moffett/ragpilot/internal/rag"
)

// QdrantConfig configures a QdrantStore.
type QdrantConfig struct {
	BaseURL        string
	APIKey         string
	CollectionName string
	VectorSize     int
}

// QdrantStore implements rag.VectorStore and rag.EmbeddingProvider-adjacent
// upsert support against a single Qdrant collection, addressed over its
// plain HTTP API the way the teacher's knowledge store does.
type QdrantStore struct {
	baseURL        string
	apiKey         string
	collectionName string
	vectorSize     int
	httpClient     *http.Client
}

// NewQdrantStore constructs a QdrantStore.
func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	collection := cfg.CollectionName
	if collection == "" {
		collection = "ragpilot_messages"
	}
	return &QdrantStore{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		collectionName: collection,
		vectorSize:     cfg.VectorSize,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

type qdrantPoint struct {
	ID      string                 `json:"id"`
	Vector  []float64              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantFilterCondition struct {
	Key   string      `json:"key"`
	Match interface{} `json:"match"`
}

type qdrantFilter struct {
	Must []qdrantFilterCondition `json:"must,omitempty"`
}

type qdrantSearchRequest struct {
	Vector      []float64     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type qdrantSearchHit struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantSearchHit `json:"result"`
}

// EnsureCollection creates the collection if it does not already exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.createCollection(ctx)
}

// RecreateCollection deletes the collection if present and creates it
// fresh. This is destructive: every indexed vector is lost. Callers on an
// interactive terminal should confirm with the operator first, the way the
// teacher prompts before recreating its code index collection on a
// dimension mismatch.
func (s *QdrantStore) RecreateCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		deleteURL := fmt.Sprintf("%s/collections/%s", s.baseURL, s.collectionName)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
		if err != nil {
			return fmt.Errorf("qdrant: failed to build delete request: %w", err)
		}
		s.addAuthHeader(req)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant: failed to delete collection: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("qdrant: failed to delete collection: status %d, body: %s", resp.StatusCode, string(raw))
		}
	}
	return s.createCollection(ctx)
}

func (s *QdrantStore) collectionExists(ctx context.Context) (bool, error) {
	checkURL := fmt.Sprintf("%s/collections/%s", s.baseURL, s.collectionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return false, fmt.Errorf("qdrant: failed to build check request: %w", err)
	}
	s.addAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("qdrant: failed to check collection: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (s *QdrantStore) createCollection(ctx context.Context) error {
	payload := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.vectorSize,
			"distance": "Cosine",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("qdrant: failed to marshal create payload: %w", err)
	}

	createURL := fmt.Sprintf("%s/collections/%s", s.baseURL, s.collectionName)
	createReq, err := http.NewRequestWithContext(ctx, http.MethodPut, createURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("qdrant: failed to build create request: %w", err)
	}
	createReq.Header.Set("Content-Type", "application/json")
	s.addAuthHeader(createReq)

	createResp, err := s.httpClient.Do(createReq)
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection: %w", err)
	}
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusOK && createResp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(createResp.Body)
		return fmt.Errorf("qdrant: failed to create collection: status %d, body: %s", createResp.StatusCode, string(raw))
	}
	return nil
}

// Upsert stores one message vector and its payload, for the ingestion path
// that feeds the Hybrid Retriever's candidate pool.
func (s *QdrantStore) Upsert(ctx context.Context, id string, vector []float64, payload rag.MessagePayload) error {
	point := qdrantPoint{
		ID:     id,
		Vector: vector,
		Payload: map[string]interface{}{
			"content":          payload.Content,
			"timestamp":        payload.Timestamp.UTC().Format(time.RFC3339),
			"role":             string(payload.Role),
			"tags":             payload.Tags,
			"sessionId":        payload.SessionID,
			"userId":           payload.UserID,
			"userFeedback":     string(payload.UserFeedback),
			"intentCategory":   payload.IntentCategory,
			"processingTimeMs": payload.ProcessingTimeMs,
		},
	}

	body, err := json.Marshal(map[string]interface{}{"points": []qdrantPoint{point}})
	if err != nil {
		return fmt.Errorf("qdrant: failed to marshal upsert payload: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points", s.baseURL, s.collectionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("qdrant: failed to build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.addAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: upsert request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant: upsert failed: status %d, body: %s", resp.StatusCode, string(raw))
	}
	return nil
}

// Search implements rag.VectorStore. It honors SearchFilters.SessionID and
// SearchFilters.Tags server-side as Qdrant match filters on the sessionId
// and tags payload fields, and always scopes to the caller's userID; every
// other filter (temporal scope, role, quality) is applied client-side by
// the caller per rag.VectorStore's documented contract.
func (s *QdrantStore) Search(ctx context.Context, userID string, queryVector []float64, limit int, _ string, filters rag.SearchFilters) ([]rag.SearchHit, error) {
	filter := &qdrantFilter{
		Must: []qdrantFilterCondition{
			{Key: "userId", Match: map[string]string{"value": userID}},
		},
	}
	if filters.SessionID != "" {
		filter.Must = append(filter.Must, qdrantFilterCondition{Key: "sessionId", Match: map[string]string{"value": filters.SessionID}})
	}
	if len(filters.Tags) > 0 {
		filter.Must = append(filter.Must, qdrantFilterCondition{Key: "tags", Match: map[string][]string{"any": filters.Tags}})
	}

	searchReq := qdrantSearchRequest{
		Vector:      queryVector,
		Limit:       limit,
		WithPayload: true,
		Filter:      filter,
	}

	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, s.collectionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.addAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant: search failed: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var parsed qdrantSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("qdrant: failed to decode search response: %w", err)
	}

	hits := make([]rag.SearchHit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		hits = append(hits, rag.SearchHit{
			ID:      r.ID,
			Score:   r.Score,
			Payload: payloadFromQdrant(r.Payload),
		})
	}
	return hits, nil
}

func (s *QdrantStore) addAuthHeader(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func payloadFromQdrant(raw map[string]interface{}) rag.MessagePayload {
	payload := rag.MessagePayload{
		Content:        stringField(raw, "content"),
		Role:           rag.Role(stringField(raw, "role")),
		SessionID:      stringField(raw, "sessionId"),
		UserID:         stringField(raw, "userId"),
		UserFeedback:   rag.Feedback(stringField(raw, "userFeedback")),
		IntentCategory: stringField(raw, "intentCategory"),
	}
	if ts, ok := raw["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			payload.Timestamp = parsed
		}
	}
	if tags, ok := raw["tags"].([]interface{}); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				payload.Tags = append(payload.Tags, s)
			}
		}
	}
	if ms, ok := raw["processingTimeMs"].(float64); ok {
		payload.ProcessingTimeMs = int(ms)
	}
	return payload
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
