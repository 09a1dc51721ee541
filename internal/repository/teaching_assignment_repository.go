package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// TeachingAssignmentRepository links faculty to the courses they manage.
type TeachingAssignmentRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewTeachingAssignmentRepository constructs the repository.
func NewTeachingAssignmentRepository(db *sqlx.DB) *TeachingAssignmentRepository {
	return &TeachingAssignmentRepository{db: db, sb: psql}
}

// List returns assignments, optionally narrowed to a course or faculty member.
func (r *TeachingAssignmentRepository) List(ctx context.Context, courseID, userID string) ([]models.TeachingAssignmentDetail, error) {
	builder := r.sb.Select(
		"ta.id", "ta.user_id", "ta.course_id", "ta.created_at",
		"u.full_name AS faculty_name", "u.email AS faculty_email",
		"c.code AS course_code", "c.title AS course_title",
	).From("teaching_assignments ta").
		Join("users u ON u.id = ta.user_id").
		Join("courses c ON c.id = ta.course_id").
		OrderBy("c.code ASC", "u.full_name ASC")
	if courseID != "" {
		builder = builder.Where(squirrel.Eq{"ta.course_id": courseID})
	}
	if userID != "" {
		builder = builder.Where(squirrel.Eq{"ta.user_id": userID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list teaching assignments: %w", err)
	}
	var items []models.TeachingAssignmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list teaching assignments: %w", err)
	}
	return items, nil
}

// ListTutors returns active faculty members with the number of courses they teach.
func (r *TeachingAssignmentRepository) ListTutors(ctx context.Context) ([]models.Tutor, error) {
	const query = `SELECT u.id AS user_id, u.full_name, u.email, u.department, COUNT(ta.id) AS course_count
FROM users u
LEFT JOIN teaching_assignments ta ON ta.user_id = u.id
WHERE u.role = 'faculty' AND u.active = TRUE
GROUP BY u.id, u.full_name, u.email, u.department
ORDER BY u.full_name ASC`
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query); err != nil {
		return nil, fmt.Errorf("list tutors: %w", err)
	}
	return tutors, nil
}

// FindByID fetches one assignment.
func (r *TeachingAssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeachingAssignment, error) {
	var item models.TeachingAssignment
	if err := r.db.GetContext(ctx, &item, `SELECT id, user_id, course_id, created_at FROM teaching_assignments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teaching assignment: %w", err)
	}
	return &item, nil
}

// Exists reports whether the faculty member teaches the course.
func (r *TeachingAssignmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM teaching_assignments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, fmt.Errorf("check teaching assignment: %w", err)
	}
	return exists, nil
}

// CourseIDsByUser lists the courses a faculty member teaches.
func (r *TeachingAssignmentRepository) CourseIDsByUser(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT course_id FROM teaching_assignments WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("list taught course ids: %w", err)
	}
	return ids, nil
}

// Create inserts an assignment.
func (r *TeachingAssignmentRepository) Create(ctx context.Context, item *models.TeachingAssignment) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO teaching_assignments (id, user_id, course_id, created_at) VALUES (:id, :user_id, :course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create teaching assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *TeachingAssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teaching_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teaching assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
