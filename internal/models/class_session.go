package models

import "time"

// ClassSession is a single scheduled meeting of a course.
type ClassSession struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	SessionDate time.Time `db:"session_date" json:"session_date"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Topic       *string   `db:"topic" json:"topic,omitempty"`
	Location    *string   `db:"location" json:"location,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateClassSessionRequest schedules a session. Times use HH:MM.
type CreateClassSessionRequest struct {
	SessionDate string  `json:"session_date" validate:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string  `json:"end_time" validate:"required,datetime=15:04"`
	Topic       *string `json:"topic" validate:"omitempty,max=200"`
	Location    *string `json:"location" validate:"omitempty,max=100"`
}
