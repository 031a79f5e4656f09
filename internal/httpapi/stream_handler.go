package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamMessage is one event sent over the WebSocket connection.
type streamMessage struct {
	Type     string               `json:"type"`
	Answer   *orchestrateResponse `json:"answer,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// incomingMessage is one turn submitted by the client.
type incomingMessage struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query"`
}

// HandleStream upgrades to a WebSocket and runs one orchestrated turn per
// incoming client message, pushing back the completed answer or an error.
// GET /v1/stream
func (s *Service) HandleStream(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				s.logger.Warn("websocket unexpected error", zap.Error(err))
			}
			close(done)
			return
		}

		var msg incomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendErrorEvent(conn, "invalid message format")
			continue
		}

		result, err := s.RunTurn(ctx, userID, msg.SessionID, msg.Query)
		if err != nil {
			s.logger.Error("streamed turn failed", zap.Error(err))
			s.sendErrorEvent(conn, err.Error())
			continue
		}

		answer := orchestrateResponse{
			SessionID:  result.SessionID,
			MessageID:  result.MessageID,
			Answer:     result.Answer,
			PathTaken:  result.PathTaken,
			Confidence: result.Confidence,
			Citations:  toCitationDTOs(result.Citations),
		}
		if err := conn.WriteJSON(streamMessage{Type: "answer", Answer: &answer}); err != nil {
			s.logger.Debug("failed to write answer, client likely disconnected", zap.Error(err))
			close(done)
			return
		}
	}
}

func (s *Service) sendErrorEvent(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(streamMessage{Type: "error", Error: message}); err != nil {
		s.logger.Warn("failed to send error event", zap.Error(err))
	}
}
