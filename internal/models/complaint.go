package models

import "time"

// ComplaintStatus is the lifecycle of a complaint.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "pending"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
	ComplaintStatusRejected   ComplaintStatus = "rejected"
)

var complaintTransitions = map[ComplaintStatus][]ComplaintStatus{
	ComplaintStatusPending:    {ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusRejected},
	ComplaintStatusInProgress: {ComplaintStatusResolved, ComplaintStatusRejected},
}

// CanTransitionTo reports whether an admin may move a complaint to next.
func (s ComplaintStatus) CanTransitionTo(next ComplaintStatus) bool {
	for _, allowed := range complaintTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Complaint is a student-filed issue handled by admins.
type Complaint struct {
	ID         string          `db:"id" json:"id"`
	UserID     string          `db:"user_id" json:"user_id"`
	Category   string          `db:"category" json:"category"`
	Subject    string          `db:"subject" json:"subject"`
	Body       string          `db:"body" json:"body"`
	Status     ComplaintStatus `db:"status" json:"status"`
	Response   *string         `db:"response" json:"response,omitempty"`
	HandledBy  *string         `db:"handled_by" json:"handled_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ComplaintDetail adds the filer's name for admin views.
type ComplaintDetail struct {
	Complaint
	StudentName string `db:"student_name" json:"student_name"`
}

// ComplaintFilter narrows complaint listings.
type ComplaintFilter struct {
	UserID   string
	Status   ComplaintStatus
	Category string
	Page     int
	PageSize int
}

// CreateComplaintRequest payload for filing a complaint.
type CreateComplaintRequest struct {
	Category string `json:"category" validate:"required,oneof=academic facilities administrative other"`
	Subject  string `json:"subject" validate:"required,max=200"`
	Body     string `json:"body" validate:"required,max=5000"`
}

// UpdateComplaintStatusRequest payload for admin status changes.
type UpdateComplaintStatusRequest struct {
	Status   ComplaintStatus `json:"status" validate:"required,complaint_status"`
	Response *string         `json:"response" validate:"omitempty,max=5000"`
}
