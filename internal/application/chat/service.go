package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskhub/internal/domain"
)

// PlaceholderItemID is the sentinel a streaming surface emits for a
// message whose identity is only known at completion. The store replaces
// it with a freshly minted opaque id on write.
const PlaceholderItemID = "__fake_id__"

// messageTTL is the retention window for chat messages.
const messageTTL = 48 * time.Hour

// Service provides stateless conversation persistence: every operation
// loads from and writes to the repository, no in-memory thread state.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new chat service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetOrCreateConversation resumes an existing conversation or starts a
// fresh one. With an id, ownership is enforced: a conversation owned by
// another user returns ErrForbidden, a missing one ErrNotFound. Without
// an id a new conversation is created with a timestamped title.
// Resuming bumps updated_at.
func (s *Service) GetOrCreateConversation(ctx context.Context, userID string, conversationID *string) (*domain.Conversation, error) {
	now := s.now()

	if conversationID != nil {
		conversation, err := s.repo.FindConversationByID(ctx, *conversationID)
		if err != nil {
			return nil, err
		}
		if conversation.UserID != userID {
			return nil, domain.ErrForbidden
		}

		if err := s.repo.TouchConversation(ctx, conversation.ID, now); err != nil {
			return nil, fmt.Errorf("failed to touch conversation: %w", err)
		}
		conversation.UpdatedAt = now
		return conversation, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	conversation := &domain.Conversation{
		ID:        id.String(),
		UserID:    userID,
		Title:     "Conversation " + now.Format("2006-01-02 15:04"),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conversation, nil
}

// AddMessageParams contains the fields for a new message.
type AddMessageParams struct {
	ConversationID string
	Role           string
	Content        string
	ToolCalls      []byte

	// ExternalItemID is the identity streamed to the client. Empty or
	// the placeholder sentinel gets replaced with a fresh opaque id.
	ExternalItemID string
}

// AddMessage persists a chat turn. Role must be one of user, assistant,
// or system. expires_at is set to now plus the retention window and the
// owning conversation's updated_at is bumped.
func (s *Service) AddMessage(ctx context.Context, userID string, params AddMessageParams) (*domain.Message, error) {
	role, err := domain.NewMessageRole(params.Role)
	if err != nil {
		return nil, err
	}

	conversation, err := s.repo.FindConversationByID(ctx, params.ConversationID)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != userID {
		return nil, domain.ErrForbidden
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	externalID := params.ExternalItemID
	if externalID == "" || externalID == PlaceholderItemID {
		externalID = uuid.NewString()
	}

	now := s.now()
	message := &domain.Message{
		ID:             id.String(),
		ExternalItemID: externalID,
		ConversationID: conversation.ID,
		UserID:         userID,
		Role:           role,
		Content:        params.Content,
		ToolCalls:      params.ToolCalls,
		CreatedAt:      now,
		ExpiresAt:      now.Add(messageTTL),
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return message, nil
}

// HistoryEntry is a message in the agent-facing format.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LoadHistory returns a conversation's messages in chronological order,
// formatted for the agent. A limit of 0 returns everything.
func (s *Service) LoadHistory(ctx context.Context, userID, conversationID string, limit int) ([]HistoryEntry, error) {
	conversation, err := s.repo.FindConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != userID {
		return nil, domain.ErrForbidden
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	history := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		history = append(history, HistoryEntry{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return history, nil
}

// ListConversations returns a page of the user's conversations, most
// recently updated first.
func (s *Service) ListConversations(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, error) {
	if limit < 1 || limit > 100 {
		return nil, domain.ErrInvalidPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	conversations, err := s.repo.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// ListMessages returns a conversation's full messages, chronological,
// with the ownership rule applied.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	conversation, err := s.repo.FindConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != userID {
		return nil, domain.ErrForbidden
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// CleanupResult reports a retention sweep.
type CleanupResult struct {
	DeletedCount int       `json:"deleted_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// CleanupExpired deletes messages whose retention window has lapsed.
// Intended to run once a day, or on demand through the admin endpoint.
func (s *Service) CleanupExpired(ctx context.Context) (*CleanupResult, error) {
	now := s.now()
	deleted, err := s.repo.DeleteExpiredMessages(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired messages: %w", err)
	}

	return &CleanupResult{DeletedCount: deleted, Timestamp: now}, nil
}
