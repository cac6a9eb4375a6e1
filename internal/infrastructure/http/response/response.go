// Package response renders the API's uniform JSON envelope and maps
// domain errors onto the HTTP status taxonomy.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/taskhub/internal/domain"
)

// Envelope is the body shape for every JSON response. Popup carries a
// UI hint token ("TASK_CREATED", ...) and is null when no hint applies.
type Envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data,omitempty"`
	Popup   *string `json:"popup"`
	Error   string  `json:"error,omitempty"`
}

// Popup hint tokens for task mutations.
const (
	PopupTaskCreated    = "TASK_CREATED"
	PopupTaskUpdated    = "TASK_UPDATED"
	PopupTaskDeleted    = "TASK_DELETED"
	PopupTaskCompleted  = "TASK_COMPLETED"
	PopupTaskIncomplete = "TASK_INCOMPLETE"
)

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// OK sends a 200 with data and no popup.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// OKPopup sends a 200 with data and a popup hint.
func OKPopup(w http.ResponseWriter, data any, popup string) {
	write(w, http.StatusOK, Envelope{Success: true, Data: data, Popup: &popup})
}

// Created sends a 201 with data and an optional popup hint; an empty
// popup renders as null.
func Created(w http.ResponseWriter, data any, popup string) {
	env := Envelope{Success: true, Data: data}
	if popup != "" {
		env.Popup = &popup
	}
	write(w, http.StatusCreated, env)
}

// Error sends a failure envelope with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: false, Error: message})
}

// BadRequest sends a 400 failure envelope.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 failure envelope.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// InternalError logs the error server-side and returns a generic
// message so internals never leak to the client.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		"path", r.URL.Path, "error", err)
	Error(w, http.StatusInternalServerError, "an internal error occurred, please try again")
}

// FromDomainError maps a domain error onto the HTTP taxonomy:
// validation 400, unauthenticated 401, ownership 403, missing 404,
// duplicates 409, everything else a logged 500.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTaskStatus),
		errors.Is(err, domain.ErrInvalidTaskPriority),
		errors.Is(err, domain.ErrInvalidMessageRole),
		errors.Is(err, domain.ErrMessageRequired),
		errors.Is(err, domain.ErrInvalidTags),
		errors.Is(err, domain.ErrInvalidRecurrenceRule),
		errors.Is(err, domain.ErrEmptyUpdate),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrInvalidPageLimit):
		Error(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, domain.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, "invalid or missing credentials")

	case errors.Is(err, domain.ErrForbidden):
		Error(w, http.StatusForbidden, "access denied")

	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, "resource not found")

	case errors.Is(err, domain.ErrConflict):
		Error(w, http.StatusConflict, err.Error())

	default:
		InternalError(w, r, err)
	}
}
