package models

import "time"

// Attendance is a persisted presence record for one student in one session.
type Attendance struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	IsPresent bool      `db:"is_present" json:"is_present"`
	MarkedBy  *string   `db:"marked_by" json:"marked_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceEntry is one line of an attendance sheet. Placeholder entries have
// no ID and exist only until their first toggle.
type AttendanceEntry struct {
	ID            *string `json:"id,omitempty"`
	UserID        string  `json:"user_id"`
	StudentName   string  `json:"student_name"`
	StudentNo     *string `json:"student_no,omitempty"`
	IsPresent     bool    `json:"is_present"`
	IsPlaceholder bool    `json:"is_placeholder"`
}

// AttendanceStats aggregates a sheet.
type AttendanceStats struct {
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// AttendanceSheet is the merged view of a session's roster.
type AttendanceSheet struct {
	Session ClassSession      `json:"session"`
	Entries []AttendanceEntry `json:"entries"`
	Stats   AttendanceStats   `json:"stats"`
}

// StudentAttendanceRecord is a student's own view of one session.
type StudentAttendanceRecord struct {
	SessionID   string    `db:"session_id" json:"session_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	SessionDate time.Time `db:"session_date" json:"session_date"`
	Topic       *string   `db:"topic" json:"topic,omitempty"`
	IsPresent   *bool     `db:"is_present" json:"is_present"`
}

// StudentAttendanceSummary groups a student's records with stats.
type StudentAttendanceSummary struct {
	Records []StudentAttendanceRecord `json:"records"`
	Stats   AttendanceStats           `json:"stats"`
}
