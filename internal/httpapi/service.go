// Package httpapi is the thin HTTP + WebSocket front end wired on top of the
// orchestration core: it turns one user turn into a session-scoped call to
// rag.Orchestrator, hands the built prompt to a rag.CompletionProvider for
// the actual answer, persists both sides of the turn, and schedules
// asynchronous quality grading. None of this logic belongs in internal/rag
// itself — the core never persists, never completes, per its Non-goals.
package httpapi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/k-moffett/ragpilot/internal/rag"
	"github.com/k-moffett/ragpilot/internal/store"
)

const sessionTitleMaxLen = 60

// Service wires the orchestration core, a completion provider, and session
// storage into the single turn used by both the REST and WebSocket handlers.
type Service struct {
	orchestrator          *rag.Orchestrator
	completion            rag.CompletionProvider
	store                 *store.Store
	llmModel              string
	completionTemperature float64
	completionMaxTokens   int
	logger                *zap.Logger
}

// NewService constructs a Service.
func NewService(
	orchestrator *rag.Orchestrator,
	completion rag.CompletionProvider,
	st *store.Store,
	llmModel string,
	completionTemperature float64,
	completionMaxTokens int,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orchestrator:          orchestrator,
		completion:            completion,
		store:                 st,
		llmModel:              llmModel,
		completionTemperature: completionTemperature,
		completionMaxTokens:   completionMaxTokens,
		logger:                logger,
	}
}

// turnResult is what one orchestrated-and-answered turn produces, shared by
// the REST and WebSocket entry points.
type turnResult struct {
	SessionID  string
	MessageID  string
	Answer     string
	PathTaken  rag.Path
	Confidence float64
	Citations  []rag.Citation
}

// RunTurn resolves sessionID (creating one from the query if empty), saves
// the user's message, orchestrates a prompt, asks the completion provider to
// answer it, saves the bot's message, and schedules grading in the
// background. It returns once the answer is ready; grading completes later.
func (s *Service) RunTurn(ctx context.Context, userID, sessionID, query string) (*turnResult, error) {
	if sessionID == "" {
		session, err := s.store.CreateSession(ctx, userID, truncateTitle(query))
		if err != nil {
			return nil, fmt.Errorf("httpapi: failed to create session: %w", err)
		}
		sessionID = session.ID
	}

	if _, err := s.store.SaveMessage(ctx, sessionID, userID, rag.RoleUser, query, nil, "", 0); err != nil {
		return nil, fmt.Errorf("httpapi: failed to save user message: %w", err)
	}

	start := time.Now()
	orchestrated, err := s.orchestrator.Orchestrate(ctx, rag.OrchestrateRequest{
		Query:     query,
		SessionID: sessionID,
		UserID:    userID,
	})
	if err != nil {
		return nil, fmt.Errorf("httpapi: orchestration failed: %w", err)
	}

	answer, err := s.completion.Complete(ctx, rag.CompletionRequest{
		Model:       s.llmModel,
		Prompt:      orchestrated.Prompt.Text,
		Temperature: s.completionTemperature,
		MaxTokens:   s.completionMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("httpapi: completion failed: %w", err)
	}

	botMsg, err := s.store.SaveMessage(ctx, sessionID, userID, rag.RoleBot, answer, nil, "", int(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("httpapi: failed to save bot message: %w", err)
	}

	s.orchestrator.GradeCompletion(context.Background(), query, answer, func(result rag.GradingResult) {
		if err := s.store.RecordGrading(context.Background(), botMsg.ID, result); err != nil {
			s.logger.Warn("failed to record grading", zap.String("messageId", botMsg.ID), zap.Error(err))
		}
	})

	return &turnResult{
		SessionID:  sessionID,
		MessageID:  botMsg.ID,
		Answer:     answer,
		PathTaken:  orchestrated.PathTaken,
		Confidence: orchestrated.Confidence,
		Citations:  orchestrated.Prompt.Citations,
	}, nil
}

func truncateTitle(query string) string {
	if len(query) <= sessionTitleMaxLen {
		return query
	}
	return query[:sessionTitleMaxLen]
}
