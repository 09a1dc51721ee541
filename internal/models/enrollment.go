package models

import "time"

// Enrollment captures a student's registration to a course.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	StudentNo    *string `db:"student_no" json:"student_no,omitempty"`
	CourseCode   string  `db:"course_code" json:"course_code"`
	CourseTitle  string  `db:"course_title" json:"course_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID    string
	CourseID  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// EnrollRequest enrolls a student into a course. Students may omit UserID to
// enroll themselves.
type EnrollRequest struct {
	UserID   string `json:"user_id" validate:"omitempty,uuid4"`
	CourseID string `json:"course_id" validate:"required,uuid4"`
}
