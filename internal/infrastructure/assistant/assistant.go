// Package assistant provides the built-in chat agent. It understands a
// small command vocabulary backed by the task service, with the task
// tools bound to the calling user. It stands in wherever an external
// model endpoint is not configured.
package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rezkam/taskhub/internal/application/chat"
	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/domain"
)

// TaskTools is the slice of the task service the assistant may call.
// Every call is scoped to the user the stream was opened for.
type TaskTools interface {
	Create(ctx context.Context, userID string, params task.CreateParams) (*domain.Task, error)
	ListAll(ctx context.Context, userID string) ([]domain.Task, error)
}

// Assistant implements chat.Agent with rule-based command handling.
type Assistant struct {
	tools TaskTools
}

// New creates the built-in assistant over the given task tools.
func New(tools TaskTools) *Assistant {
	return &Assistant{tools: tools}
}

// Stream resolves the prompt to a reply and returns it as a chunked
// stream. Tool failures surface as stream errors so the turn fails
// cleanly instead of answering with a half-truth.
func (a *Assistant) Stream(ctx context.Context, userID string, _ []chat.HistoryEntry, prompt string) (chat.Stream, error) {
	reply, err := a.reply(ctx, userID, prompt)
	if err != nil {
		return nil, err
	}
	return newChunkStream(reply), nil
}

func (a *Assistant) reply(ctx context.Context, userID, prompt string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "add "), strings.HasPrefix(lower, "create "):
		_, rest, _ := strings.Cut(trimmed, " ")
		title := strings.TrimSpace(rest)
		created, err := a.tools.Create(ctx, userID, task.CreateParams{Title: title})
		if err != nil {
			return "", fmt.Errorf("failed to create task: %w", err)
		}
		return fmt.Sprintf("I've added %q to your tasks with %s priority.",
			created.Title, created.Priority), nil

	case strings.Contains(lower, "list"), strings.Contains(lower, "my tasks"),
		strings.Contains(lower, "what do i have"):
		return a.summarize(ctx, userID)

	default:
		return "I can help you manage your tasks. Try \"add <title>\" to " +
			"create a task or \"list my tasks\" to see what's open.", nil
	}
}

func (a *Assistant) summarize(ctx context.Context, userID string) (string, error) {
	tasks, err := a.tools.ListAll(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to list tasks: %w", err)
	}

	var open []domain.Task
	for _, t := range tasks {
		if !t.IsCompleted {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return "You have no open tasks. Nicely done.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d open task(s):\n", len(open))
	for _, t := range open {
		fmt.Fprintf(&b, "- %s (%s", t.Title, t.Priority)
		if t.DueDate != nil {
			fmt.Fprintf(&b, ", due %s", t.DueDate.Format("2006-01-02 15:04"))
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// chunkStream replays a reply in word-sized increments so clients see
// the same incremental rendering a model stream would produce.
type chunkStream struct {
	words []string
	pos   int
}

func newChunkStream(text string) *chunkStream {
	return &chunkStream{words: strings.SplitAfter(text, " ")}
}

func (s *chunkStream) Recv() (chat.Chunk, error) {
	if s.pos >= len(s.words) {
		return chat.Chunk{}, io.EOF
	}
	word := s.words[s.pos]
	s.pos++
	return chat.Chunk{Text: word}, nil
}

func (s *chunkStream) Close() error { return nil }
