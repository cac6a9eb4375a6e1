package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rezkam/taskhub/internal/domain"
)

// parseID validates a string id as a UUID before it reaches SQL, so a
// malformed id surfaces as domain.ErrInvalidID instead of a cryptic
// database error.
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidID, err)
	}
	return parsed.String(), nil
}

// checkRowsAffected validates that an UPDATE/DELETE affected exactly one
// row. Returns domain.ErrNotFound when nothing matched.
func checkRowsAffected(rowsAffected int64, entityType, entityID string) error {
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, entityType, entityID)
	}
	return nil
}

// isUniqueViolation checks for a PostgreSQL unique violation (23505),
// optionally scoped to a constraint name fragment.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	if constraint == "" {
		return true
	}
	return pgErr.ConstraintName == constraint
}

// isForeignKeyViolation checks for a PostgreSQL FK violation (23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// utcTime normalizes a scanned timestamp to UTC.
func utcTime(t time.Time) time.Time {
	return t.UTC()
}

// utcTimePtr normalizes an optional scanned timestamp to UTC.
func utcTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// tagsToJSON encodes a tag slice for the jsonb column. Nil encodes as
// the empty array so reads never see SQL NULL.
func tagsToJSON(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return data, nil
}

// tagsFromJSON decodes the jsonb tags column.
func tagsFromJSON(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("invalid tags JSON: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// templateToJSON encodes a series template for the jsonb column.
func templateToJSON(template domain.SeriesTemplate) ([]byte, error) {
	data, err := json.Marshal(template)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal series template: %w", err)
	}
	return data, nil
}

// templateFromJSON decodes the jsonb template column.
func templateFromJSON(data []byte) (domain.SeriesTemplate, error) {
	var template domain.SeriesTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return domain.SeriesTemplate{}, fmt.Errorf("invalid series template JSON: %w", err)
	}
	return template, nil
}
