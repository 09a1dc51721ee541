package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// DeadlineRepository persists explicit course deadlines and builds the
// merged upcoming feed.
type DeadlineRepository struct {
	db *sqlx.DB
}

// NewDeadlineRepository constructs the repository.
func NewDeadlineRepository(db *sqlx.DB) *DeadlineRepository {
	return &DeadlineRepository{db: db}
}

// Upcoming merges explicit deadlines and assignment due dates of the given
// courses that fall after since, earliest first. IsSubmitted reflects userID's
// submission for assignment rows.
func (r *DeadlineRepository) Upcoming(ctx context.Context, userID string, courseIDs []string, since time.Time, limit int) ([]models.UpcomingDeadline, error) {
	if len(courseIDs) == 0 {
		return []models.UpcomingDeadline{}, nil
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	const query = `SELECT kind, ref_id, course_id, course_code, title, due_date, is_submitted FROM (
	SELECT 'deadline' AS kind, d.id AS ref_id, d.course_id, c.code AS course_code, d.title, d.due_date, FALSE AS is_submitted
	FROM deadlines d JOIN courses c ON c.id = d.course_id
	WHERE d.course_id = ANY($1) AND d.due_date >= $2
	UNION ALL
	SELECT 'assignment' AS kind, a.id AS ref_id, a.course_id, c.code AS course_code, a.title, a.due_date,
		EXISTS(SELECT 1 FROM assignment_submissions s WHERE s.assignment_id = a.id AND s.user_id = $3) AS is_submitted
	FROM assignments a JOIN courses c ON c.id = a.course_id
	WHERE a.course_id = ANY($1) AND a.due_date >= $2
) feed
ORDER BY due_date ASC
LIMIT $4`
	var items []models.UpcomingDeadline
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(courseIDs), since, userID, limit); err != nil {
		return nil, fmt.Errorf("list upcoming deadlines: %w", err)
	}
	return items, nil
}

// FindByID fetches a deadline.
func (r *DeadlineRepository) FindByID(ctx context.Context, id string) (*models.Deadline, error) {
	const query = `SELECT id, course_id, title, description, due_date, created_by, created_at FROM deadlines WHERE id = $1`
	var item models.Deadline
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find deadline: %w", err)
	}
	return &item, nil
}

// Create inserts a deadline.
func (r *DeadlineRepository) Create(ctx context.Context, item *models.Deadline) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO deadlines (id, course_id, title, description, due_date, created_by, created_at)
VALUES (:id, :course_id, :title, :description, :due_date, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create deadline: %w", err)
	}
	return nil
}

// Delete removes a deadline.
func (r *DeadlineRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deadlines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
