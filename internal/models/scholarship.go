package models

import "time"

// ApplicationStatus is the lifecycle of a scholarship application.
type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending:     {ApplicationStatusUnderReview, ApplicationStatusApproved, ApplicationStatusRejected},
	ApplicationStatusUnderReview: {ApplicationStatusApproved, ApplicationStatusRejected},
}

// CanTransitionTo reports whether an admin may move an application to next.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Scholarship is a funding offer students may apply to.
type Scholarship struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Amount       float64   `db:"amount" json:"amount"`
	Requirements *string   `db:"requirements" json:"requirements,omitempty"`
	Deadline     time.Time `db:"deadline" json:"deadline"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ScholarshipApplication is one student's application.
type ScholarshipApplication struct {
	ID            string            `db:"id" json:"id"`
	ScholarshipID string            `db:"scholarship_id" json:"scholarship_id"`
	UserID        string            `db:"user_id" json:"user_id"`
	Statement     string            `db:"statement" json:"statement"`
	GPA           *float64          `db:"gpa" json:"gpa,omitempty"`
	Status        ApplicationStatus `db:"status" json:"status"`
	ReviewNotes   *string           `db:"review_notes" json:"review_notes,omitempty"`
	ReviewedBy    *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ScholarshipApplicationDetail adds display fields.
type ScholarshipApplicationDetail struct {
	ScholarshipApplication
	ScholarshipName string `db:"scholarship_name" json:"scholarship_name"`
	StudentName     string `db:"student_name" json:"student_name"`
}

// ScholarshipApplicationFilter narrows application listings.
type ScholarshipApplicationFilter struct {
	UserID        string
	ScholarshipID string
	Status        ApplicationStatus
	Page          int
	PageSize      int
}

// CreateScholarshipRequest payload for admin scholarship creation.
type CreateScholarshipRequest struct {
	Name         string    `json:"name" validate:"required,max=200"`
	Description  *string   `json:"description"`
	Amount       float64   `json:"amount" validate:"gt=0"`
	Requirements *string   `json:"requirements"`
	Deadline     time.Time `json:"deadline" validate:"required"`
}

// UpdateScholarshipRequest patches a scholarship.
type UpdateScholarshipRequest struct {
	Name         *string    `json:"name" validate:"omitempty,max=200"`
	Description  *string    `json:"description"`
	Amount       *float64   `json:"amount" validate:"omitempty,gt=0"`
	Requirements *string    `json:"requirements"`
	Deadline     *time.Time `json:"deadline"`
	Active       *bool      `json:"active"`
}

// ApplyScholarshipRequest payload for a student application.
type ApplyScholarshipRequest struct {
	Statement string   `json:"statement" validate:"required,min=20,max=5000"`
	GPA       *float64 `json:"gpa" validate:"omitempty,min=0,max=4"`
}

// UpdateApplicationStatusRequest payload for admin review decisions.
type UpdateApplicationStatusRequest struct {
	Status      ApplicationStatus `json:"status" validate:"required,application_status"`
	ReviewNotes *string           `json:"review_notes" validate:"omitempty,max=5000"`
}
