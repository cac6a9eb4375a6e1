package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskhub/internal/application/chat"
	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

type chatRequest struct {
	ConversationID *string `json:"conversation_id"`
	Content        string  `json:"content"`
}

// chatStream runs one chat turn, streaming the assistant reply as
// server-sent events: one "data: <chunk>" event per text chunk, then
// "data: [DONE]". A failure mid-stream emits "data: Error: <msg>"
// instead of the DONE marker, since the status line is already sent.
func (h *Handler) chatStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, r, fmt.Errorf("response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(chunk string) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	_, err := h.turner.Run(r.Context(), userID, chat.TurnParams{
		ConversationID: req.ConversationID,
		Content:        req.Content,
	}, emit)
	if err != nil {
		slog.ErrorContext(r.Context(), "chat turn failed", "error", err)
		fmt.Fprintf(w, "data: Error: %s\n\n", err)
		flusher.Flush()
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	limit := 20
	offset := 0
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}
	if raw := q.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, "invalid offset")
			return
		}
		offset = parsed
	}

	conversations, err := h.chats.ListConversations(r.Context(), userID, limit, offset)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	result := make([]conversationJSON, 0, len(conversations))
	for i := range conversations {
		result = append(result, toConversationJSON(&conversations[i]))
	}
	response.OK(w, result)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	messages, err := h.chats.ListMessages(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	result := make([]messageJSON, 0, len(messages))
	for i := range messages {
		result = append(result, toMessageJSON(&messages[i]))
	}
	response.OK(w, result)
}

func (h *Handler) cleanupMessages(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	result, err := h.chats.CleanupExpired(r.Context())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, result)
}

// pathUser verifies the {userID} path segment matches the token's
// subject. Users can only read their own conversations.
func (h *Handler) pathUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return "", false
	}
	if chi.URLParam(r, "userID") != userID {
		response.Error(w, http.StatusForbidden, "access denied")
		return "", false
	}
	return userID, true
}
