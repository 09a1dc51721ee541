package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

const classSessionColumns = `id, course_id, session_date, start_time, end_time, topic, location, created_by, created_at`

// ClassSessionRepository persists scheduled course meetings.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs the repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

// ListByCourse returns a course's sessions in chronological order.
func (r *ClassSessionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.ClassSession, error) {
	query := `SELECT ` + classSessionColumns + ` FROM class_sessions WHERE course_id = $1 ORDER BY session_date ASC, start_time ASC`
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, courseID); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	return sessions, nil
}

// FindByID fetches a session.
func (r *ClassSessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := `SELECT ` + classSessionColumns + ` FROM class_sessions WHERE id = $1`
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class session: %w", err)
	}
	return &session, nil
}

// Create inserts a session.
func (r *ClassSessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO class_sessions (id, course_id, session_date, start_time, end_time, topic, location, created_by, created_at)
VALUES (:id, :course_id, :session_date, :start_time, :end_time, :topic, :location, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create class session: %w", err)
	}
	return nil
}

// Delete hard-deletes a session; its attendance rows cascade.
func (r *ClassSessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
