package models

import "time"

// SubmissionStatus tracks grading progress.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusGraded    SubmissionStatus = "graded"
)

// Assignment is coursework with a due date.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	MaxPoints   int       `db:"max_points" json:"max_points"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentSubmission is a student's uploaded work for an assignment.
type AssignmentSubmission struct {
	ID           string           `db:"id" json:"id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	UserID       string           `db:"user_id" json:"user_id"`
	FileURL      string           `db:"file_url" json:"file_url"`
	FileKey      string           `db:"file_key" json:"-"`
	FileName     string           `db:"file_name" json:"file_name"`
	MimeType     string           `db:"mime_type" json:"mime_type"`
	SizeBytes    int64            `db:"size_bytes" json:"size_bytes"`
	Comment      *string          `db:"comment" json:"comment,omitempty"`
	Status       SubmissionStatus `db:"status" json:"status"`
	Grade        *float64         `db:"grade" json:"grade,omitempty"`
	Feedback     *string          `db:"feedback" json:"feedback,omitempty"`
	GradedBy     *string          `db:"graded_by" json:"graded_by,omitempty"`
	SubmittedAt  time.Time        `db:"submitted_at" json:"submitted_at"`
	GradedAt     *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
}

// SubmissionDetail adds the student's name for grading views.
type SubmissionDetail struct {
	AssignmentSubmission
	StudentName string  `db:"student_name" json:"student_name"`
	StudentNo   *string `db:"student_no" json:"student_no,omitempty"`
}

// CreateAssignmentRequest payload for new assignments.
type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxPoints   int       `json:"max_points" validate:"required,min=1,max=1000"`
}

// UpdateAssignmentRequest patches assignment fields.
type UpdateAssignmentRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	MaxPoints   *int       `json:"max_points" validate:"omitempty,min=1,max=1000"`
}

// GradeSubmissionRequest records a grade; the submission moves to graded.
type GradeSubmissionRequest struct {
	Grade    float64 `json:"grade" validate:"min=0"`
	Feedback *string `json:"feedback" validate:"omitempty,max=2000"`
}

// GradeEntry is one graded submission in a student's grade book.
type GradeEntry struct {
	AssignmentID    string    `db:"assignment_id" json:"assignment_id"`
	AssignmentTitle string    `db:"assignment_title" json:"assignment_title"`
	CourseID        string    `db:"course_id" json:"course_id"`
	CourseCode      string    `db:"course_code" json:"course_code"`
	CourseTitle     string    `db:"course_title" json:"course_title"`
	MaxPoints       int       `db:"max_points" json:"max_points"`
	Grade           float64   `db:"grade" json:"grade"`
	Feedback        *string   `db:"feedback" json:"feedback,omitempty"`
	GradedAt        time.Time `db:"graded_at" json:"graded_at"`
}

// CourseGrades groups graded work for one course.
type CourseGrades struct {
	CourseID    string       `json:"course_id"`
	CourseCode  string       `json:"course_code"`
	CourseTitle string       `json:"course_title"`
	Entries     []GradeEntry `json:"entries"`
	Percentage  float64      `json:"percentage"`
}
