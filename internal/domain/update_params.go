package domain

import "time"

// UpdateTaskParams is a partial update with explicit present-vs-absent
// semantics: nil pointer means "not supplied, keep current value".
//
// DueDate is special-cased with a presence flag so a caller can clear
// the due date (DueDateSet=true, DueDate=nil) while plain absence
// (DueDateSet=false) never clears the current value.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Tags        *[]string
	Status      *TaskStatus

	DueDate    *time.Time
	DueDateSet bool
}

// IsEmpty reports whether no field was supplied.
func (p UpdateTaskParams) IsEmpty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Tags == nil &&
		p.Status == nil &&
		!p.DueDateSet
}

// UpdateSeriesParams is a partial update for a recurring series.
type UpdateSeriesParams struct {
	Template          *SeriesTemplate
	RecurrencePattern *string
	IsActive          *bool
}

// IsEmpty reports whether no field was supplied.
func (p UpdateSeriesParams) IsEmpty() bool {
	return p.Template == nil && p.RecurrencePattern == nil && p.IsActive == nil
}
