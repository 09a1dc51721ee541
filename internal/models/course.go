package models

import "time"

// Course is a catalog entry students enroll in.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Credits     int       `db:"credits" json:"credits"`
	Schedule    *string   `db:"schedule" json:"schedule,omitempty"`
	Room        *string   `db:"room" json:"room,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseSummary adds roster counts for list views.
type CourseSummary struct {
	Course
	EnrollmentCount int `db:"enrollment_count" json:"enrollment_count"`
}

// CourseFilter controls catalog listing.
type CourseFilter struct {
	Search    string
	UserID    string
	Role      UserRole
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateCourseRequest payload for admin course creation.
type CreateCourseRequest struct {
	Code        string  `json:"code" validate:"required,max=20"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
	Credits     int     `json:"credits" validate:"required,min=1,max=12"`
	Schedule    *string `json:"schedule"`
	Room        *string `json:"room"`
}

// UpdateCourseRequest payload for course updates. Code and credits are
// rejected once the course has enrollments.
type UpdateCourseRequest struct {
	Code        *string `json:"code" validate:"omitempty,max=20"`
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Credits     *int    `json:"credits" validate:"omitempty,min=1,max=12"`
	Schedule    *string `json:"schedule"`
	Room        *string `json:"room"`
}
