package models

import "time"

// TeachingAssignment grants a faculty member management rights over a course.
type TeachingAssignment struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeachingAssignmentDetail enriches assignments with descriptive fields.
type TeachingAssignmentDetail struct {
	TeachingAssignment
	FacultyName  string `db:"faculty_name" json:"faculty_name"`
	FacultyEmail string `db:"faculty_email" json:"faculty_email"`
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseTitle  string `db:"course_title" json:"course_title"`
}

// Tutor summarises a faculty member for the admin tutors page.
type Tutor struct {
	UserID      string  `db:"user_id" json:"user_id"`
	FullName    string  `db:"full_name" json:"full_name"`
	Email       string  `db:"email" json:"email"`
	Department  *string `db:"department" json:"department,omitempty"`
	CourseCount int     `db:"course_count" json:"course_count"`
}

// CreateTeachingAssignmentRequest assigns faculty to a course.
type CreateTeachingAssignmentRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid4"`
	CourseID string `json:"course_id" validate:"required,uuid4"`
}
