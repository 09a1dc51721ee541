package models

import "time"

// DeadlineKind distinguishes explicit deadlines from assignment due dates.
type DeadlineKind string

const (
	DeadlineKindDeadline   DeadlineKind = "deadline"
	DeadlineKindAssignment DeadlineKind = "assignment"
)

// Deadline is an explicit course date (exam, registration cut-off, ...).
type Deadline struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UpcomingDeadline is a merged row of the caller's deadline feed.
type UpcomingDeadline struct {
	Kind        DeadlineKind `db:"kind" json:"kind"`
	RefID       string       `db:"ref_id" json:"ref_id"`
	CourseID    string       `db:"course_id" json:"course_id"`
	CourseCode  string       `db:"course_code" json:"course_code"`
	Title       string       `db:"title" json:"title"`
	DueDate     time.Time    `db:"due_date" json:"due_date"`
	IsSubmitted bool         `db:"is_submitted" json:"is_submitted"`
}

// CreateDeadlineRequest payload for new deadlines.
type CreateDeadlineRequest struct {
	CourseID    string    `json:"course_id" validate:"required,uuid4"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}
