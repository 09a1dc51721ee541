package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

var courseSortColumns = map[string]string{
	"code":       "c.code",
	"title":      "c.title",
	"credits":    "c.credits",
	"created_at": "c.created_at",
}

// CourseRepository persists the course catalog.
type CourseRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db, sb: psql}
}

func (r *CourseRepository) scoped(builder squirrel.SelectBuilder, filter models.CourseFilter) squirrel.SelectBuilder {
	switch filter.Role {
	case models.RoleStudent:
		builder = builder.Where("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.user_id = ?)", filter.UserID)
	case models.RoleFaculty:
		builder = builder.Where("EXISTS (SELECT 1 FROM teaching_assignments ta WHERE ta.course_id = c.id AND ta.user_id = ?)", filter.UserID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		builder = builder.Where(squirrel.Or{
			squirrel.Like{"LOWER(c.code)": like},
			squirrel.Like{"LOWER(c.title)": like},
		})
	}
	return builder
}

// List returns courses visible under the filter's role scope. An empty Role
// lists the whole catalog.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error) {
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query, args, err := r.scoped(r.sb.Select(
		"c.id", "c.code", "c.title", "c.description", "c.credits", "c.schedule", "c.room", "c.created_at", "c.updated_at",
		"(SELECT COUNT(*) FROM enrollments e2 WHERE e2.course_id = c.id) AS enrollment_count",
	).From("courses c"), filter).
		OrderBy(orderClause(courseSortColumns, filter.SortBy, filter.SortOrder, "code")).
		Limit(uint64(size)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list courses: %w", err)
	}
	var courses []models.CourseSummary
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery, countArgs, err := r.scoped(r.sb.Select("COUNT(*)").From("courses c"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, description, credits, schedule, room, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// ExistsByCode reports whether another course already uses code.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1)`
	args := []interface{}{code}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check course code: %w", err)
	}
	return exists, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, title, description, credits, schedule, room, created_at, updated_at)
VALUES (:id, :code, :title, :description, :credits, :schedule, :room, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists all mutable course columns.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, title = :title, description = :description, credits = :credits,
schedule = :schedule, room = :room, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course. The enrollments foreign key restricts deletion of
// referenced courses.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
