package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rezkam/taskhub/internal/domain"
)

// Agent is the opaque streaming LLM surface. Implementations bind the
// task tools to the calling user before streaming, so a conversation can
// never reach across user boundaries.
type Agent interface {
	// Stream starts a model turn over the prior history plus the new
	// prompt and returns an incremental text stream.
	Stream(ctx context.Context, userID string, history []HistoryEntry, prompt string) (Stream, error)
}

// Stream yields incremental chunks of an assistant response.
// Recv returns io.EOF when the response is complete.
type Stream interface {
	Recv() (Chunk, error)
	Close() error
}

// Chunk is one increment of streamed assistant output. ItemID carries
// the upstream message identity when the provider assigns one; it may be
// empty or the placeholder sentinel until the stream completes.
type Chunk struct {
	Text   string
	ItemID string
}

// ErrAgentTransient marks agent failures worth retrying: rate limits,
// connection drops, upstream timeouts. Anything else aborts the turn.
var ErrAgentTransient = errors.New("transient agent error")

const (
	agentInitialRetryDelay = 1 * time.Second
	agentMaxRetryDelay     = 10 * time.Second
	agentMaxRetries        = 3
)

// Turner orchestrates a full chat turn: resolve the conversation,
// persist the user message, drive the agent, stream text to the caller,
// and persist the assistant message at stream end.
type Turner struct {
	service *Service
	agent   Agent
}

// NewTurner creates a turn orchestrator over a chat service and agent.
func NewTurner(service *Service, agent Agent) *Turner {
	return &Turner{service: service, agent: agent}
}

// TurnParams describes one incoming chat request.
type TurnParams struct {
	// ConversationID resumes an existing thread when set.
	ConversationID *string
	Content        string
}

// TurnResult reports a completed turn.
type TurnResult struct {
	Conversation     *domain.Conversation
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
}

// Run executes a chat turn, calling emit for every streamed text chunk.
// The user message is persisted before the agent runs, so a failed turn
// still leaves the prompt in history. The assistant message is persisted
// once the stream ends, reusing the streamed item id so the client's
// optimistic view stays consistent.
func (t *Turner) Run(ctx context.Context, userID string, params TurnParams, emit func(string) error) (*TurnResult, error) {
	if strings.TrimSpace(params.Content) == "" {
		return nil, domain.ErrMessageRequired
	}

	conversation, err := t.service.GetOrCreateConversation(ctx, userID, params.ConversationID)
	if err != nil {
		return nil, err
	}

	// History is loaded before the new prompt is appended so the agent
	// sees prior turns and receives the prompt separately.
	history, err := t.service.LoadHistory(ctx, userID, conversation.ID, 0)
	if err != nil {
		return nil, err
	}

	userMessage, err := t.service.AddMessage(ctx, userID, AddMessageParams{
		ConversationID: conversation.ID,
		Role:           string(domain.MessageRoleUser),
		Content:        params.Content,
	})
	if err != nil {
		return nil, err
	}

	stream, err := t.openStream(ctx, userID, history, params.Content)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var (
		text   strings.Builder
		itemID string
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("agent stream failed: %w", err)
		}

		if chunk.ItemID != "" {
			itemID = chunk.ItemID
		}
		if chunk.Text == "" {
			continue
		}

		text.WriteString(chunk.Text)
		if err := emit(chunk.Text); err != nil {
			return nil, fmt.Errorf("failed to emit chunk: %w", err)
		}
	}

	assistantMessage, err := t.service.AddMessage(ctx, userID, AddMessageParams{
		ConversationID: conversation.ID,
		Role:           string(domain.MessageRoleAssistant),
		Content:        text.String(),
		ExternalItemID: itemID,
	})
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Conversation:     conversation,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

// openStream starts the agent with capped exponential backoff. Only
// failures wrapping ErrAgentTransient are retried; everything else is
// permanent and fails the turn immediately.
func (t *Turner) openStream(ctx context.Context, userID string, history []HistoryEntry, prompt string) (Stream, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = agentInitialRetryDelay
	policy.MaxInterval = agentMaxRetryDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	var stream Stream
	operation := func() error {
		var err error
		stream, err = t.agent.Stream(ctx, userID, history, prompt)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrAgentTransient) {
			slog.WarnContext(ctx, "agent call failed, retrying", "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, agentMaxRetries), ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to start agent stream: %w", err)
	}
	return stream, nil
}
