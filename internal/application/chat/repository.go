package chat

import (
	"context"
	"time"

	"github.com/rezkam/taskhub/internal/domain"
)

// Repository defines the persistence operations the chat service needs.
// Implementations must return domain.ErrNotFound for missing rows.
type Repository interface {
	// CreateConversation persists a new conversation.
	CreateConversation(ctx context.Context, conversation *domain.Conversation) error

	// FindConversationByID retrieves a conversation regardless of owner.
	FindConversationByID(ctx context.Context, id string) (*domain.Conversation, error)

	// TouchConversation bumps a conversation's updated_at.
	TouchConversation(ctx context.Context, id string, updatedAt time.Time) error

	// ListConversations returns the user's conversations ordered by
	// updated_at descending, with limit/offset pagination.
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, error)

	// CreateMessage persists a message and bumps the owning
	// conversation's updated_at in the same transaction.
	CreateMessage(ctx context.Context, message *domain.Message) error

	// ListMessages returns a conversation's messages ordered by
	// created_at ascending, id as tiebreak. A limit of 0 means all.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// DeleteExpiredMessages removes messages with expires_at before the
	// cutoff and reports how many rows were deleted.
	DeleteExpiredMessages(ctx context.Context, cutoff time.Time) (int, error)
}
