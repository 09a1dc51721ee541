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

var enrollmentSortColumns = map[string]string{
	"enrolled_at":  "e.enrolled_at",
	"student_name": "u.full_name",
	"course_code":  "c.code",
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, sb: psql}
}

func (r *EnrollmentRepository) filtered(builder squirrel.SelectBuilder, filter models.EnrollmentFilter) squirrel.SelectBuilder {
	builder = builder.From("enrollments e").
		Join("users u ON u.id = e.user_id").
		Join("courses c ON c.id = e.course_id")
	if filter.UserID != "" {
		builder = builder.Where(squirrel.Eq{"e.user_id": filter.UserID})
	}
	if filter.CourseID != "" {
		builder = builder.Where(squirrel.Eq{"e.course_id": filter.CourseID})
	}
	return builder
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query, args, err := r.filtered(r.sb.Select(
		"e.id", "e.user_id", "e.course_id", "e.enrolled_at",
		"u.full_name AS student_name", "u.email AS student_email", "u.student_no",
		"c.code AS course_code", "c.title AS course_title",
	), filter).
		OrderBy(orderClause(enrollmentSortColumns, filter.SortBy, filter.SortOrder, "enrolled_at")).
		Limit(uint64(size)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list enrollments: %w", err)
	}
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery, countArgs, err := r.filtered(r.sb.Select("COUNT(*)"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count enrollments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return items, total, nil
}

// Roster returns every enrolled student of a course ordered by name.
func (r *EnrollmentRepository) Roster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.enrolled_at, u.full_name AS student_name, u.email AS student_email,
u.student_no, c.code AS course_code, c.title AS course_title
FROM enrollments e
JOIN users u ON u.id = e.user_id
JOIN courses c ON c.id = e.course_id
WHERE e.course_id = $1
ORDER BY u.full_name ASC`
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return items, nil
}

// FindByID fetches a single enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, enrolled_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// Exists reports whether the user is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// CountByCourse returns the number of enrollments referencing a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// CourseIDsByUser lists the courses a student is enrolled in.
func (r *EnrollmentRepository) CourseIDsByUser(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT course_id FROM enrollments WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("list enrolled course ids: %w", err)
	}
	return ids, nil
}

// Create inserts a new enrollment row.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, user_id, course_id, enrolled_at) VALUES (:id, :user_id, :course_id, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
