package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// extractUserID reads the userId set by middleware.OptionalJWTMiddleware.
func extractUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("userId")
	if !exists {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}

// HandleOrchestrate runs one full turn: orchestrate, complete, persist,
// grade.
// POST /v1/orchestrate
func (s *Service) HandleOrchestrate(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var req orchestrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := s.RunTurn(c.Request.Context(), userID, req.SessionID, req.Query)
	if err != nil {
		s.logger.Error("orchestrate turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, orchestrateResponse{
		SessionID:  result.SessionID,
		MessageID:  result.MessageID,
		Answer:     result.Answer,
		PathTaken:  result.PathTaken,
		Confidence: result.Confidence,
		Citations:  toCitationDTOs(result.Citations),
	})
}

// RegisterRoutes wires the orchestration routes onto a router group.
func (s *Service) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orchestrate", s.HandleOrchestrate)
	r.GET("/stream", s.HandleStream)
}
