package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/database"
)

// EvaluationRepository stores anonymous course evaluations and the separate
// per-student submission markers.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Submit records the marker and the anonymous evaluation atomically. The
// marker goes first so a duplicate submission fails on its primary key before
// any evaluation row is written.
func (r *EvaluationRepository) Submit(ctx context.Context, marker *models.EvaluationSubmission, evaluation *models.CourseEvaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	if marker.SubmittedAt.IsZero() {
		marker.SubmittedAt = time.Now().UTC()
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const markerQuery = `INSERT INTO evaluation_submissions (user_id, course_id, semester, submitted_at)
VALUES (:user_id, :course_id, :semester, :submitted_at)`
		if _, err := tx.NamedExecContext(ctx, markerQuery, marker); err != nil {
			return fmt.Errorf("insert evaluation marker: %w", err)
		}
		const evaluationQuery = `INSERT INTO course_evaluations (id, course_id, semester, content_rating, instructor_rating, materials_rating,
workload_rating, organization_rating, overall_rating, strengths, improvements, additional_comments)
VALUES (:id, :course_id, :semester, :content_rating, :instructor_rating, :materials_rating,
:workload_rating, :organization_rating, :overall_rating, :strengths, :improvements, :additional_comments)`
		if _, err := tx.NamedExecContext(ctx, evaluationQuery, evaluation); err != nil {
			return fmt.Errorf("insert course evaluation: %w", err)
		}
		return nil
	})
}

// HasSubmitted reports whether the marker exists for the tuple.
func (r *EvaluationRepository) HasSubmitted(ctx context.Context, userID, courseID, semester string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM evaluation_submissions WHERE user_id = $1 AND course_id = $2 AND semester = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID, semester); err != nil {
		return false, fmt.Errorf("check evaluation marker: %w", err)
	}
	return exists, nil
}

// ListForStudent returns the student's enrolled courses with their submitted
// flag for the semester.
func (r *EvaluationRepository) ListForStudent(ctx context.Context, userID, semester string) ([]models.PendingEvaluation, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.title AS course_title,
EXISTS(SELECT 1 FROM evaluation_submissions es WHERE es.user_id = e.user_id AND es.course_id = c.id AND es.semester = $2) AS submitted
FROM enrollments e
JOIN courses c ON c.id = e.course_id
WHERE e.user_id = $1
ORDER BY c.code ASC`
	var items []models.PendingEvaluation
	if err := r.db.SelectContext(ctx, &items, query, userID, semester); err != nil {
		return nil, fmt.Errorf("list student evaluations: %w", err)
	}
	return items, nil
}

// CountPending returns enrolled courses without a marker for the semester.
func (r *EvaluationRepository) CountPending(ctx context.Context, userID, semester string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments e
WHERE e.user_id = $1 AND NOT EXISTS(
	SELECT 1 FROM evaluation_submissions es WHERE es.user_id = e.user_id AND es.course_id = e.course_id AND es.semester = $2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, semester); err != nil {
		return 0, fmt.Errorf("count pending evaluations: %w", err)
	}
	return count, nil
}

// Summaries aggregates ratings per semester for a course, most recent term
// first. Labels read "<Term> <Year>", so rows sort by year and then by the
// term's position within the year.
func (r *EvaluationRepository) Summaries(ctx context.Context, courseID string) ([]models.EvaluationSummary, error) {
	const query = `SELECT course_id, semester, COUNT(*) AS responses,
ROUND(AVG(content_rating)::numeric, 2) AS content_avg,
ROUND(AVG(instructor_rating)::numeric, 2) AS instructor_avg,
ROUND(AVG(materials_rating)::numeric, 2) AS materials_avg,
ROUND(AVG(workload_rating)::numeric, 2) AS workload_avg,
ROUND(AVG(organization_rating)::numeric, 2) AS organization_avg,
ROUND(AVG(overall_rating)::numeric, 2) AS overall_avg
FROM course_evaluations
WHERE course_id = $1
GROUP BY course_id, semester
ORDER BY split_part(semester, ' ', 2) DESC,
CASE split_part(semester, ' ', 1)
	WHEN 'Fall' THEN 4
	WHEN 'Summer' THEN 3
	WHEN 'Spring' THEN 2
	WHEN 'Winter' THEN 1
	ELSE 0
END DESC`
	var items []models.EvaluationSummary
	if err := r.db.SelectContext(ctx, &items, query, courseID); err != nil {
		return nil, fmt.Errorf("summarise evaluations: %w", err)
	}
	return items, nil
}

// Comments returns the free-text answers of a course and semester sorted by
// text, so their order carries no link to submission order.
func (r *EvaluationRepository) Comments(ctx context.Context, courseID, semester string) ([]string, error) {
	const query = `SELECT txt FROM (
	SELECT strengths AS txt FROM course_evaluations WHERE course_id = $1 AND semester = $2
	UNION ALL
	SELECT improvements FROM course_evaluations WHERE course_id = $1 AND semester = $2
	UNION ALL
	SELECT additional_comments FROM course_evaluations WHERE course_id = $1 AND semester = $2
) answers
WHERE txt IS NOT NULL AND BTRIM(txt) <> ''
ORDER BY txt ASC`
	comments := []string{}
	if err := r.db.SelectContext(ctx, &comments, query, courseID, semester); err != nil {
		return nil, fmt.Errorf("list evaluation comments: %w", err)
	}
	return comments, nil
}
