package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	params := domain.ListHistoryParams{Page: 1, Limit: 20}
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			response.BadRequest(w, "invalid page")
			return
		}
		params.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "invalid limit")
			return
		}
		params.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			response.BadRequest(w, "invalid offset")
			return
		}
		params.Offset = &offset
	}
	if raw := q.Get("task_id"); raw != "" {
		params.TaskID = &raw
	}
	if raw := q.Get("action_type"); raw != "" {
		action, err := domain.NewHistoryAction(raw)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		params.Action = &action
	}

	page, err := h.tasks.ListHistory(r.Context(), userID, params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toHistoryPageJSON(page))
}

func (h *Handler) deleteHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.tasks.DeleteHistory(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"message": "history entry deleted"})
}

func (h *Handler) weeklyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.tasks.WeeklyStats(r.Context(), userID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toStatsJSON(stats))
}
