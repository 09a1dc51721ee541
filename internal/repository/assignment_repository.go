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

const (
	assignmentColumns = `id, course_id, title, description, due_date, max_points, created_by, created_at, updated_at`
	submissionColumns = `id, assignment_id, user_id, file_url, file_key, file_name, mime_type, size_bytes, comment, status, grade, feedback, graded_by, submitted_at, graded_at`
)

// AssignmentRepository persists assignments, submissions and grades.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListByCourse returns assignments ordered by due date.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE course_id = $1 ORDER BY due_date ASC`
	var items []models.Assignment
	if err := r.db.SelectContext(ctx, &items, query, courseID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return items, nil
}

// FindByID fetches an assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var item models.Assignment
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &item, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, item *models.Assignment) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO assignments (id, course_id, title, description, due_date, max_points, created_by, created_at, updated_at)
VALUES (:id, :course_id, :title, :description, :due_date, :max_points, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update persists mutable assignment columns.
func (r *AssignmentRepository) Update(ctx context.Context, item *models.Assignment) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, description = :description, due_date = :due_date, max_points = :max_points,
updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment and, by cascade, its submissions.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertSubmission stores a submission, overwriting an earlier one that is not
// yet graded. It returns sql.ErrNoRows when the existing submission is graded.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, sub *models.AssignmentSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.Status = models.SubmissionStatusSubmitted
	sub.SubmittedAt = time.Now().UTC()
	query := `INSERT INTO assignment_submissions (id, assignment_id, user_id, file_url, file_key, file_name, mime_type, size_bytes, comment, status, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (assignment_id, user_id) DO UPDATE SET
file_url = EXCLUDED.file_url, file_key = EXCLUDED.file_key, file_name = EXCLUDED.file_name, mime_type = EXCLUDED.mime_type,
size_bytes = EXCLUDED.size_bytes, comment = EXCLUDED.comment, submitted_at = EXCLUDED.submitted_at
WHERE assignment_submissions.status = 'submitted'
RETURNING ` + submissionColumns
	err := r.db.GetContext(ctx, sub, query,
		sub.ID, sub.AssignmentID, sub.UserID, sub.FileURL, sub.FileKey, sub.FileName, sub.MimeType, sub.SizeBytes, sub.Comment, sub.Status, sub.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// FindSubmission fetches a submission by id.
func (r *AssignmentRepository) FindSubmission(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM assignment_submissions WHERE id = $1`
	var sub models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &sub, nil
}

// FindSubmissionByUser fetches the caller's submission for an assignment.
func (r *AssignmentRepository) FindSubmissionByUser(ctx context.Context, assignmentID, userID string) (*models.AssignmentSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM assignment_submissions WHERE assignment_id = $1 AND user_id = $2`
	var sub models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &sub, query, assignmentID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user submission: %w", err)
	}
	return &sub, nil
}

// ListSubmissions returns all submissions of an assignment with student names.
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	const query = `SELECT s.id, s.assignment_id, s.user_id, s.file_url, s.file_key, s.file_name, s.mime_type, s.size_bytes, s.comment,
s.status, s.grade, s.feedback, s.graded_by, s.submitted_at, s.graded_at, u.full_name AS student_name, u.student_no
FROM assignment_submissions s
JOIN users u ON u.id = s.user_id
WHERE s.assignment_id = $1
ORDER BY u.full_name ASC`
	var items []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &items, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return items, nil
}

// Grade records a grade and marks the submission graded.
func (r *AssignmentRepository) Grade(ctx context.Context, id string, grade float64, feedback *string, gradedBy string) (*models.AssignmentSubmission, error) {
	query := `UPDATE assignment_submissions SET grade = $2, feedback = $3, graded_by = $4, graded_at = $5, status = 'graded'
WHERE id = $1 RETURNING ` + submissionColumns
	var sub models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &sub, query, id, grade, feedback, gradedBy, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("grade submission: %w", err)
	}
	return &sub, nil
}

// ListGradesByUser returns the student's graded submissions across courses.
func (r *AssignmentRepository) ListGradesByUser(ctx context.Context, userID string) ([]models.GradeEntry, error) {
	const query = `SELECT a.id AS assignment_id, a.title AS assignment_title, c.id AS course_id, c.code AS course_code, c.title AS course_title,
a.max_points, s.grade, s.feedback, s.graded_at
FROM assignment_submissions s
JOIN assignments a ON a.id = s.assignment_id
JOIN courses c ON c.id = a.course_id
WHERE s.user_id = $1 AND s.status = 'graded'
ORDER BY c.code ASC, s.graded_at DESC`
	var items []models.GradeEntry
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return items, nil
}

// CountUngraded returns submitted-but-ungraded work across the given courses.
func (r *AssignmentRepository) CountUngraded(ctx context.Context, courseIDs []string) (int, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM assignment_submissions s JOIN assignments a ON a.id = s.assignment_id
WHERE s.status = 'submitted' AND a.course_id IN (?)`, courseIDs)
	if err != nil {
		return 0, fmt.Errorf("build count ungraded: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count ungraded submissions: %w", err)
	}
	return count, nil
}
