package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.tasks.ListNotifications(r.Context(), userID, unreadOnly)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	result := make([]notificationJSON, 0, len(notifications))
	for i := range notifications {
		result = append(result, toNotificationJSON(&notifications[i]))
	}
	response.OK(w, result)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	notification, err := h.tasks.MarkNotificationRead(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toNotificationJSON(notification))
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	updated, err := h.tasks.MarkAllNotificationsRead(r.Context(), userID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, map[string]int{"updated_count": updated})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	count, err := h.tasks.CountUnreadNotifications(r.Context(), userID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, map[string]int{"unread_count": count})
}
