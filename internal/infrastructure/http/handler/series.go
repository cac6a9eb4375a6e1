package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

type seriesTemplateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    *string  `json:"priority"`
	Tags        []string `json:"tags"`
}

func (t seriesTemplateRequest) toDomain() (domain.SeriesTemplate, error) {
	template := domain.SeriesTemplate{
		Title:       t.Title,
		Description: t.Description,
		Tags:        t.Tags,
	}
	if t.Priority != nil {
		priority, err := domain.NewTaskPriority(*t.Priority)
		if err != nil {
			return domain.SeriesTemplate{}, err
		}
		template.Priority = &priority
	}
	return template, nil
}

type createSeriesRequest struct {
	Template          seriesTemplateRequest `json:"template"`
	RecurrencePattern string                `json:"recurrence_pattern"`
}

type createSeriesResponse struct {
	Series    seriesJSON `json:"series"`
	FirstTask taskJSON   `json:"first_task"`
}

func (h *Handler) createSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createSeriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	template, err := req.Template.toDomain()
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	series, firstTask, err := h.tasks.CreateSeries(r.Context(), userID, task.CreateSeriesParams{
		Template:          template,
		RecurrencePattern: req.RecurrencePattern,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, createSeriesResponse{
		Series:    toSeriesJSON(series),
		FirstTask: toTaskJSON(firstTask),
	}, response.PopupTaskCreated)
}

func (h *Handler) listSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	series, err := h.tasks.ListSeries(r.Context(), userID, includeInactive)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	result := make([]seriesJSON, 0, len(series))
	for i := range series {
		result = append(result, toSeriesJSON(&series[i]))
	}
	response.OK(w, result)
}

func (h *Handler) getSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	series, err := h.tasks.GetSeries(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toSeriesJSON(series))
}

func (h *Handler) listSeriesTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListSeriesTasks(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toTaskListJSON(tasks))
}

type updateSeriesRequest struct {
	Template          *seriesTemplateRequest `json:"template"`
	RecurrencePattern *string                `json:"recurrence_pattern"`
	IsActive          *bool                  `json:"is_active"`
}

func (h *Handler) updateSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateSeriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := domain.UpdateSeriesParams{
		RecurrencePattern: req.RecurrencePattern,
		IsActive:          req.IsActive,
	}
	if req.Template != nil {
		template, err := req.Template.toDomain()
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		params.Template = &template
	}

	series, err := h.tasks.UpdateSeries(r.Context(), userID, chi.URLParam(r, "id"), params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OKPopup(w, toSeriesJSON(series), response.PopupTaskUpdated)
}

// deleteSeries deactivates a series. Existing task instances stay.
func (h *Handler) deleteSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.tasks.DeleteSeries(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"message": "recurring task series deactivated"})
}
