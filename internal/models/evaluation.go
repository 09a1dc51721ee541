package models

import "time"

// CourseEvaluation is an anonymous rating row. It deliberately carries no
// submitter identity and no submission timestamp.
type CourseEvaluation struct {
	ID                 string  `db:"id" json:"id"`
	CourseID           string  `db:"course_id" json:"course_id"`
	Semester           string  `db:"semester" json:"semester"`
	ContentRating      int     `db:"content_rating" json:"content_rating"`
	InstructorRating   int     `db:"instructor_rating" json:"instructor_rating"`
	MaterialsRating    int     `db:"materials_rating" json:"materials_rating"`
	WorkloadRating     int     `db:"workload_rating" json:"workload_rating"`
	OrganizationRating int     `db:"organization_rating" json:"organization_rating"`
	OverallRating      int     `db:"overall_rating" json:"overall_rating"`
	Strengths          *string `db:"strengths" json:"strengths,omitempty"`
	Improvements       *string `db:"improvements" json:"improvements,omitempty"`
	AdditionalComments *string `db:"additional_comments" json:"additional_comments,omitempty"`
}

// EvaluationSubmission is the marker proving a student already submitted for
// a course and semester. It is never joined to CourseEvaluation.
type EvaluationSubmission struct {
	UserID      string    `db:"user_id" json:"user_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Semester    string    `db:"semester" json:"semester"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// SubmitEvaluationRequest carries six 1-5 ratings and optional comments.
type SubmitEvaluationRequest struct {
	ContentRating      int     `json:"content_rating" validate:"required,rating"`
	InstructorRating   int     `json:"instructor_rating" validate:"required,rating"`
	MaterialsRating    int     `json:"materials_rating" validate:"required,rating"`
	WorkloadRating     int     `json:"workload_rating" validate:"required,rating"`
	OrganizationRating int     `json:"organization_rating" validate:"required,rating"`
	OverallRating      int     `json:"overall_rating" validate:"required,rating"`
	Strengths          *string `json:"strengths" validate:"omitempty,max=2000"`
	Improvements       *string `json:"improvements" validate:"omitempty,max=2000"`
	AdditionalComments *string `json:"additional_comments" validate:"omitempty,max=2000"`
}

// EvaluationStatus tells a student whether the form should be shown.
type EvaluationStatus struct {
	CourseID  string `json:"course_id"`
	Semester  string `json:"semester"`
	Enrolled  bool   `json:"enrolled"`
	Submitted bool   `json:"submitted"`
}

// PendingEvaluation is one enrolled course in the student's evaluation list.
type PendingEvaluation struct {
	CourseID    string `db:"course_id" json:"course_id"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Submitted   bool   `db:"submitted" json:"submitted"`
}

// EvaluationSummary aggregates responses per course and semester.
type EvaluationSummary struct {
	CourseID        string   `db:"course_id" json:"course_id"`
	Semester        string   `db:"semester" json:"semester"`
	Responses       int      `db:"responses" json:"responses"`
	ContentAvg      float64  `db:"content_avg" json:"content_avg"`
	InstructorAvg   float64  `db:"instructor_avg" json:"instructor_avg"`
	MaterialsAvg    float64  `db:"materials_avg" json:"materials_avg"`
	WorkloadAvg     float64  `db:"workload_avg" json:"workload_avg"`
	OrganizationAvg float64  `db:"organization_avg" json:"organization_avg"`
	OverallAvg      float64  `db:"overall_avg" json:"overall_avg"`
	Comments        []string `db:"-" json:"comments"`
}
