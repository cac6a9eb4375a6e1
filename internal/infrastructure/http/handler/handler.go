// Package handler implements the HTTP API: authentication, tasks,
// history, stats, notifications, recurring series, and chat.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskhub/internal/application/auth"
	"github.com/rezkam/taskhub/internal/application/chat"
	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

// Handler carries the application services behind the HTTP API.
type Handler struct {
	tasks  *task.Service
	chats  *chat.Service
	turner *chat.Turner
	auth   *auth.Service

	cookieTTL     time.Duration
	secureCookies bool
}

// Config holds handler construction options.
type Config struct {
	CookieTTL     time.Duration // Auth cookie lifetime; defaults to 30 days
	SecureCookies bool          // Set the Secure flag (prod behind TLS)
}

// New creates the API handler.
func New(tasks *task.Service, chats *chat.Service, turner *chat.Turner, authService *auth.Service, cfg Config) *Handler {
	cookieTTL := cfg.CookieTTL
	if cookieTTL <= 0 {
		cookieTTL = auth.DefaultTokenTTL
	}
	return &Handler{
		tasks:         tasks,
		chats:         chats,
		turner:        turner,
		auth:          authService,
		cookieTTL:     cookieTTL,
		secureCookies: cfg.SecureCookies,
	}
}

// PublicRoutes registers the routes that must work without a verified
// identity.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/auth/signup", h.signup)
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
}

// Routes registers the authenticated API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/auth/me", h.me)

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.createTask)
		r.Get("/", h.listTasks)
		r.Get("/{id}", h.getTask)
		r.Put("/{id}", h.updateTask)
		r.Delete("/{id}", h.deleteTask)
		r.Patch("/{id}/complete", h.completeTask)
		r.Patch("/{id}/incomplete", h.incompleteTask)
	})

	r.Get("/history", h.listHistory)
	r.Delete("/history/{id}", h.deleteHistory)
	r.Get("/stats/weekly", h.weeklyStats)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.listNotifications)
		r.Patch("/{id}/read", h.markNotificationRead)
		r.Patch("/mark-all-read", h.markAllNotificationsRead)
		r.Get("/unread/count", h.unreadCount)
	})

	r.Route("/recurring-tasks", func(r chi.Router) {
		r.Post("/", h.createSeries)
		r.Get("/", h.listSeries)
		r.Get("/{id}", h.getSeries)
		r.Get("/{id}/tasks", h.listSeriesTasks)
		r.Put("/{id}", h.updateSeries)
		r.Delete("/{id}", h.deleteSeries)
	})

	r.Post("/chat", h.chatStream)
	r.Get("/{userID}/conversations", h.listConversations)
	r.Get("/{userID}/conversations/{id}/messages", h.listMessages)
	r.Post("/admin/cleanup/messages", h.cleanupMessages)
}

// currentUser reads the authenticated user id placed by the auth
// middleware. A missing id means a wiring bug, answered with 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "missing credentials")
		return "", false
	}
	return userID, true
}

// decodeJSON parses the request body into v, answering 400 on garbage.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
