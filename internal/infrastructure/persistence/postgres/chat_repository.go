package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/taskhub/internal/domain"
)

const conversationColumns = `id::text, user_id::text, title, is_active,
	created_at, updated_at`

func scanConversation(row rowScanner) (domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID, &c.UserID, &c.Title, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Conversation{}, err
	}
	c.CreatedAt = utcTime(c.CreatedAt)
	c.UpdatedAt = utcTime(c.UpdatedAt)
	return c, nil
}

// CreateConversation persists a new conversation.
func (s *Store) CreateConversation(ctx context.Context, conversation *domain.Conversation) error {
	id, err := parseID(conversation.ID)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversations (
			id, user_id, title, is_active, created_at, updated_at
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)`,
		id, conversation.UserID, conversation.Title,
		conversation.IsActive, conversation.CreatedAt, conversation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// FindConversationByID retrieves a conversation regardless of owner.
func (s *Store) FindConversationByID(ctx context.Context, id string) (*domain.Conversation, error) {
	conversationID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1::uuid`, conversationID)

	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &c, nil
}

// TouchConversation bumps a conversation's updated_at.
func (s *Store) TouchConversation(ctx context.Context, id string, updatedAt time.Time) error {
	conversationID, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET updated_at = $2
		WHERE id = $1::uuid`, conversationID, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return checkRowsAffected(tag.RowsAffected(), "conversation", id)
}

// ListConversations returns the user's conversations ordered by
// updated_at descending with limit/offset pagination.
func (s *Store) ListConversations(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_id = $1::uuid
		ORDER BY updated_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	result := []domain.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}
	return result, nil
}

const messageColumns = `id::text, external_item_id, conversation_id::text,
	user_id::text, role, content, tool_calls, created_at, expires_at`

func scanMessage(row rowScanner) (domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.ExternalItemID, &m.ConversationID,
		&m.UserID, &m.Role, &m.Content, &m.ToolCalls,
		&m.CreatedAt, &m.ExpiresAt,
	)
	if err != nil {
		return domain.Message{}, err
	}
	m.CreatedAt = utcTime(m.CreatedAt)
	m.ExpiresAt = utcTime(m.ExpiresAt)
	return m, nil
}

// CreateMessage persists a message and bumps the owning conversation's
// updated_at in the same transaction.
func (s *Store) CreateMessage(ctx context.Context, message *domain.Message) error {
	id, err := parseID(message.ID)
	if err != nil {
		return err
	}
	conversationID, err := parseID(message.ConversationID)
	if err != nil {
		return err
	}

	return s.executeInTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO messages (
				id, external_item_id, conversation_id, user_id,
				role, content, tool_calls, created_at, expires_at
			) VALUES ($1::uuid, $2, $3::uuid, $4::uuid, $5, $6, $7, $8, $9)`,
			id, message.ExternalItemID, conversationID, message.UserID,
			string(message.Role), message.Content, message.ToolCalls,
			message.CreatedAt, message.ExpiresAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, message.ConversationID)
			}
			return fmt.Errorf("failed to insert message: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE conversations SET updated_at = $2
			WHERE id = $1::uuid`, conversationID, message.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return checkRowsAffected(tag.RowsAffected(), "conversation", message.ConversationID)
	})
}

// ListMessages returns a conversation's messages oldest first with id
// as the tiebreak. A limit of 0 means all.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	id, err := parseID(conversationID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, id ASC`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return result, nil
}

// DeleteExpiredMessages removes messages whose expiry is before the
// cutoff and reports how many rows were deleted.
func (s *Store) DeleteExpiredMessages(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM messages WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired messages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
