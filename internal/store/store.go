// Package store persists conversation sessions and messages in MongoDB.
// The orchestration core (internal/rag) never touches storage directly —
// Store sits above it, saving each turn's query/response/grading result so a
// session's history can seed future retrieval.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/k-moffett/ragpilot/internal/rag"
)

// Session is one conversation thread for a user.
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	Title     string    `bson:"title" json:"title"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Message is one stored turn, carrying enough of rag.MessagePayload to seed
// future retrieval plus the grading result produced asynchronously after
// the turn completed.
type Message struct {
	ID               string       `bson:"_id" json:"id"`
	SessionID        string       `bson:"sessionId" json:"sessionId"`
	UserID           string       `bson:"userId" json:"userId"`
	Role             rag.Role     `bson:"role" json:"role"`
	Content          string       `bson:"content" json:"content"`
	Tags             []string     `bson:"tags,omitempty" json:"tags,omitempty"`
	IntentCategory   string       `bson:"intentCategory,omitempty" json:"intentCategory,omitempty"`
	ProcessingTimeMs int          `bson:"processingTimeMs,omitempty" json:"processingTimeMs,omitempty"`
	UserFeedback     rag.Feedback `bson:"userFeedback,omitempty" json:"userFeedback,omitempty"`
	Grading          *Grading     `bson:"grading,omitempty" json:"grading,omitempty"`
	CreatedAt        time.Time    `bson:"createdAt" json:"createdAt"`
}

// Grading is the persisted form of a rag.GradingResult.
type Grading struct {
	Overall      float64  `bson:"overall" json:"overall"`
	Relevance    float64  `bson:"relevance" json:"relevance"`
	Completeness float64  `bson:"completeness" json:"completeness"`
	Clarity      float64  `bson:"clarity" json:"clarity"`
	Rationale    string   `bson:"rationale,omitempty" json:"rationale,omitempty"`
	Entities     []string `bson:"entities,omitempty" json:"entities,omitempty"`
	Concepts     []string `bson:"concepts,omitempty" json:"concepts,omitempty"`
	Keywords     []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
}

// MessagePage is one paginated slice of a session's message history.
type MessagePage struct {
	Messages []Message
	Total    int64
	HasMore  bool
}

// ErrNotFound is returned when a session or message does not exist, or the
// caller does not own it.
var ErrNotFound = fmt.Errorf("not found")

// Store persists sessions and messages in MongoDB, sanitizing user-supplied
// content before it is written.
type Store struct {
	sessions *mongo.Collection
	messages *mongo.Collection
	policy   *bluemonday.Policy
	logger   *zap.Logger
}

// New constructs a Store against the given database.
func New(db *mongo.Database, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: db.Collection("sessions"),
		messages: db.Collection("messages"),
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,
	}
}

// CreateSession starts a new conversation thread for userID.
func (s *Store) CreateSession(ctx context.Context, userID, title string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     s.policy.Sanitize(title),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("store: failed to create session: %w", err)
	}
	return session, nil
}

// GetSession fetches a session, scoped to userID.
func (s *Store) GetSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	var session Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID, "userId": userID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to get session: %w", err)
	}
	return &session, nil
}

// ListSessions returns userID's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := s.sessions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("store: failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session and its messages, scoped to userID.
func (s *Store) DeleteSession(ctx context.Context, sessionID, userID string) error {
	res, err := s.sessions.DeleteOne(ctx, bson.M{"_id": sessionID, "userId": userID})
	if err != nil {
		return fmt.Errorf("store: failed to delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	if _, err := s.messages.DeleteMany(ctx, bson.M{"sessionId": sessionID}); err != nil {
		s.logger.Error("failed to delete session messages", zap.String("sessionId", sessionID), zap.Error(err))
	}
	return nil
}

// SaveMessage records one turn, sanitizing content and bumping the parent
// session's updatedAt so ListSessions reflects recent activity.
func (s *Store) SaveMessage(ctx context.Context, sessionID, userID string, role rag.Role, content string, tags []string, intentCategory string, processingTimeMs int) (*Message, error) {
	msg := &Message{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		UserID:           userID,
		Role:             role,
		Content:          s.policy.Sanitize(content),
		Tags:             tags,
		IntentCategory:   intentCategory,
		ProcessingTimeMs: processingTimeMs,
		UserFeedback:     rag.FeedbackNeutral,
		CreatedAt:        time.Now().UTC(),
	}

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("store: failed to save message: %w", err)
	}

	_, err := s.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID, "userId": userID},
		bson.M{"$set": bson.M{"updatedAt": msg.CreatedAt}})
	if err != nil {
		s.logger.Error("failed to bump session updatedAt", zap.String("sessionId", sessionID), zap.Error(err))
	}

	return msg, nil
}

// GetMessages returns a page of a session's messages, oldest first.
func (s *Store) GetMessages(ctx context.Context, sessionID, userID string, limit, offset int) (*MessagePage, error) {
	filter := bson.M{"sessionId": sessionID, "userId": userID}

	total, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("store: failed to count messages: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("store: failed to decode messages: %w", err)
	}

	return &MessagePage{
		Messages: messages,
		Total:    total,
		HasMore:  int64(offset+len(messages)) < total,
	}, nil
}

// RecordFeedback updates the userFeedback field of a stored message in
// MongoDB. The vector-store payload that the Hybrid Retriever filters on is
// not updated.
func (s *Store) RecordFeedback(ctx context.Context, messageID, userID string, feedback rag.Feedback) error {
	res, err := s.messages.UpdateOne(ctx,
		bson.M{"_id": messageID, "userId": userID},
		bson.M{"$set": bson.M{"userFeedback": feedback}})
	if err != nil {
		return fmt.Errorf("store: failed to record feedback: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordGrading attaches an asynchronous quality-grading result to a message.
func (s *Store) RecordGrading(ctx context.Context, messageID string, grading rag.GradingResult) error {
	doc := Grading{
		Overall:      grading.Overall,
		Relevance:    grading.Relevance,
		Completeness: grading.Completeness,
		Clarity:      grading.Clarity,
		Rationale:    grading.Rationale,
		Entities:     grading.Entities,
		Concepts:     grading.Concepts,
		Keywords:     grading.Keywords,
	}
	res, err := s.messages.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"grading": doc}})
	if err != nil {
		return fmt.Errorf("store: failed to record grading: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
