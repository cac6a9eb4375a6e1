package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.tasks.Create(r.Context(), userID, task.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, toTaskJSON(created), response.PopupTaskCreated)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListAll(r.Context(), userID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toTaskListJSON(tasks))
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	found, err := h.tasks.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toTaskJSON(found))
}

// updateTaskRequest distinguishes "field absent" from "field null" for
// due_date by deferring its decode until presence is known.
type updateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Tags        *[]string        `json:"tags"`
	Status      *string          `json:"status"`
	DueDate     *json.RawMessage `json:"due_date"`
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := domain.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}

	if req.Status != nil {
		status, err := domain.NewTaskStatus(*req.Status)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		params.Status = &status
	}

	if req.DueDate != nil {
		params.DueDateSet = true
		if string(*req.DueDate) != "null" {
			var due time.Time
			if err := json.Unmarshal(*req.DueDate, &due); err != nil {
				response.BadRequest(w, "invalid due_date")
				return
			}
			params.DueDate = &due
		}
	}

	updated, err := h.tasks.Update(r.Context(), userID, chi.URLParam(r, "id"), params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OKPopup(w, toTaskJSON(updated), response.PopupTaskUpdated)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OKPopup(w, map[string]string{"message": "task deleted"}, response.PopupTaskDeleted)
}

func (h *Handler) completeTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	completed, err := h.tasks.MarkComplete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OKPopup(w, toTaskJSON(completed), response.PopupTaskCompleted)
}

func (h *Handler) incompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	reopened, err := h.tasks.MarkIncomplete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OKPopup(w, toTaskJSON(reopened), response.PopupTaskIncomplete)
}
