package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHealthCheckDoesNotTouchService(t *testing.T) {
	t.Setenv("ENABLE_JWT", "false")
	svc := &Service{logger: zap.NewNop()}
	router := NewRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestOrchestrateRejectsInvalidBody(t *testing.T) {
	t.Setenv("ENABLE_JWT", "false")
	svc := &Service{logger: zap.NewNop()}
	router := NewRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/orchestrate", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestOrchestrateRejectsMissingQuery(t *testing.T) {
	t.Setenv("ENABLE_JWT", "false")
	svc := &Service{logger: zap.NewNop()}
	router := NewRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/orchestrate", strings.NewReader(`{"sessionId":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
