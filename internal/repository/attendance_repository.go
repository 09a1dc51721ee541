package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// AttendanceRepository reads and toggles per-session presence rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListBySession returns the persisted rows of a session. Students without a
// row are not included.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	const query = `SELECT id, session_id, user_id, is_present, marked_by, updated_at FROM attendance WHERE session_id = $1`
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session attendance: %w", err)
	}
	return rows, nil
}

// Toggle flips the presence of a student in one statement. A missing row is
// inserted as present; an existing row has is_present negated.
func (r *AttendanceRepository) Toggle(ctx context.Context, sessionID, userID, markedBy string) (*models.Attendance, error) {
	const query = `INSERT INTO attendance (id, session_id, user_id, is_present, marked_by, updated_at)
VALUES ($1, $2, $3, TRUE, $4, $5)
ON CONFLICT (session_id, user_id)
DO UPDATE SET is_present = NOT attendance.is_present, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
RETURNING id, session_id, user_id, is_present, marked_by, updated_at`
	var row models.Attendance
	if err := r.db.GetContext(ctx, &row, query, uuid.NewString(), sessionID, userID, markedBy, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("toggle attendance: %w", err)
	}
	return &row, nil
}

// ListForStudent returns every session of the student's courses with the
// student's presence, nil where never marked.
func (r *AttendanceRepository) ListForStudent(ctx context.Context, userID, courseID string) ([]models.StudentAttendanceRecord, error) {
	query := `SELECT s.id AS session_id, s.course_id, c.code AS course_code, s.session_date, s.topic, a.is_present
FROM class_sessions s
JOIN enrollments e ON e.course_id = s.course_id AND e.user_id = $1
JOIN courses c ON c.id = s.course_id
LEFT JOIN attendance a ON a.session_id = s.id AND a.user_id = $1`
	args := []interface{}{userID}
	if courseID != "" {
		query += ` WHERE s.course_id = $2`
		args = append(args, courseID)
	}
	query += ` ORDER BY s.session_date DESC, s.start_time DESC`

	var records []models.StudentAttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}
