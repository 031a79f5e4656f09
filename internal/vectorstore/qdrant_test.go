package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/k-moffett/ragpilot/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsHitsWithDecodedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/test_collection/points/search", r.URL.Path)

		var req qdrantSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5, req.Limit)
		require.NotNil(t, req.Filter)
		assert.Equal(t, "userId", req.Filter.Must[0].Key)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(qdrantSearchResponse{
			Result: []qdrantSearchHit{
				{
					ID:    "m1",
					Score: 0.88,
					Payload: map[string]interface{}{
						"content":   "hello there",
						"role":      "user",
						"userId":    "u1",
						"sessionId": "s1",
						"timestamp": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
						"tags":      []interface{}{"greeting"},
					},
				},
			},
		})
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL, CollectionName: "test_collection"})
	hits, err := store.Search(context.Background(), "u1", []float64{0.1, 0.2}, 5, "hello", rag.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.Equal(t, "m1", hits[0].ID)
	assert.Equal(t, 0.88, hits[0].Score)
	assert.Equal(t, "hello there", hits[0].Payload.Content)
	assert.Equal(t, rag.Role("user"), hits[0].Payload.Role)
	assert.Equal(t, []string{"greeting"}, hits[0].Payload.Tags)
}

func TestSearchAppliesTagsFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req qdrantSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Filter)
		require.Len(t, req.Filter.Must, 3)
		assert.Equal(t, "sessionId", req.Filter.Must[1].Key)
		assert.Equal(t, "tags", req.Filter.Must[2].Key)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(qdrantSearchResponse{})
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL, CollectionName: "test_collection"})
	_, err := store.Search(context.Background(), "u1", []float64{0.1}, 5, "q", rag.SearchFilters{
		SessionID: "s1",
		Tags:      []string{"billing", "urgent"},
	})
	require.NoError(t, err)
}

func TestSearchAppliesTagsFilterWithoutSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req qdrantSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Filter)
		require.Len(t, req.Filter.Must, 2)
		assert.Equal(t, "tags", req.Filter.Must[1].Key)
		match, ok := req.Filter.Must[1].Match.(map[string]interface{})
		require.True(t, ok)
		assert.ElementsMatch(t, []interface{}{"billing", "urgent"}, match["any"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(qdrantSearchResponse{})
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL, CollectionName: "test_collection"})
	_, err := store.Search(context.Background(), "u1", []float64{0.1}, 5, "q", rag.SearchFilters{
		Tags: []string{"billing", "urgent"},
	})
	require.NoError(t, err)
}

func TestSearchPropagatesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL})
	_, err := store.Search(context.Background(), "u1", []float64{0.1}, 5, "q", rag.SearchFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestUpsertSendsPointWithPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/test_collection/points", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL, CollectionName: "test_collection"})
	err := store.Upsert(context.Background(), "m1", []float64{0.1, 0.2}, rag.MessagePayload{
		Content: "hi", UserID: "u1", SessionID: "s1", Role: rag.RoleUser, Timestamp: time.Now(),
	})
	require.NoError(t, err)
}

func TestRecreateCollectionDeletesThenCreates(t *testing.T) {
	var deleteCalled, createCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			deleteCalled = true
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			createCalled = true
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL, CollectionName: "test_collection", VectorSize: 768})
	require.NoError(t, store.RecreateCollection(context.Background()))
	assert.True(t, deleteCalled)
	assert.True(t, createCalled)
}

func TestRecreateCollectionSkipsDeleteWhenAbsent(t *testing.T) {
	var deleteCalled, createCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodDelete:
			deleteCalled = true
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			createCalled = true
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL, CollectionName: "test_collection", VectorSize: 768})
	require.NoError(t, store.RecreateCollection(context.Background()))
	assert.False(t, deleteCalled)
	assert.True(t, createCalled)
}

func TestEnsureCollectionSkipsCreateWhenExists(t *testing.T) {
	var createCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		createCalled = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := NewQdrantStore(QdrantConfig{BaseURL: server.URL, CollectionName: "test_collection", VectorSize: 768})
	require.NoError(t, store.EnsureCollection(context.Background()))
	assert.False(t, createCalled)
}
