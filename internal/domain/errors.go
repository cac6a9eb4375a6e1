package domain

import "errors"

// Domain errors returned by services and repository implementations.

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden indicates the resource exists but belongs to another user.
	// Returned instead of ErrNotFound so ownership checks never degrade into
	// existence probes, and mapped to 403 at the HTTP edge.
	ErrForbidden = errors.New("access to resource denied")

	// ErrUnauthorized indicates the caller's credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a uniqueness violation (duplicate email,
	// duplicate series instance).
	ErrConflict = errors.New("resource already exists")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")

	// Validation errors.
	ErrTitleRequired         = errors.New("title is required")
	ErrTitleTooLong          = errors.New("title must be 255 characters or less")
	ErrDescriptionTooLong    = errors.New("description must be 5000 characters or less")
	ErrInvalidTaskStatus     = errors.New("invalid task status")
	ErrInvalidTaskPriority   = errors.New("invalid task priority")
	ErrInvalidMessageRole    = errors.New("invalid message role")
	ErrMessageRequired       = errors.New("message content is required")
	ErrInvalidTags           = errors.New("invalid tags")
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")
	ErrEmptyUpdate           = errors.New("at least one field must be provided")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
	ErrInvalidPageLimit      = errors.New("limit must be between 1 and 100")
)
