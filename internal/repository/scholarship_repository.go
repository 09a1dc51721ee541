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

const (
	scholarshipColumns = `id, name, description, amount, requirements, deadline, active, created_at, updated_at`
	applicationColumns = `id, scholarship_id, user_id, statement, gpa, status, review_notes, reviewed_by, created_at, updated_at`
)

// ScholarshipRepository persists scholarships and their applications.
type ScholarshipRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewScholarshipRepository constructs the repository.
func NewScholarshipRepository(db *sqlx.DB) *ScholarshipRepository {
	return &ScholarshipRepository{db: db, sb: psql}
}

// List returns scholarships ordered by deadline. activeOnly hides inactive rows.
func (r *ScholarshipRepository) List(ctx context.Context, activeOnly bool) ([]models.Scholarship, error) {
	builder := r.sb.Select(scholarshipColumns).From("scholarships").OrderBy("deadline ASC")
	if activeOnly {
		builder = builder.Where(squirrel.Eq{"active": true})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list scholarships: %w", err)
	}
	var items []models.Scholarship
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list scholarships: %w", err)
	}
	return items, nil
}

// FindByID fetches a scholarship.
func (r *ScholarshipRepository) FindByID(ctx context.Context, id string) (*models.Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + ` FROM scholarships WHERE id = $1`
	var item models.Scholarship
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find scholarship: %w", err)
	}
	return &item, nil
}

// Create inserts a scholarship.
func (r *ScholarshipRepository) Create(ctx context.Context, item *models.Scholarship) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO scholarships (id, name, description, amount, requirements, deadline, active, created_at, updated_at)
VALUES (:id, :name, :description, :amount, :requirements, :deadline, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create scholarship: %w", err)
	}
	return nil
}

// Update persists scholarship changes.
func (r *ScholarshipRepository) Update(ctx context.Context, item *models.Scholarship) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scholarships SET name = :name, description = :description, amount = :amount, requirements = :requirements,
deadline = :deadline, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update scholarship: %w", err)
	}
	return nil
}

// Delete removes a scholarship without applications.
func (r *ScholarshipRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scholarships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scholarship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateApplication inserts a pending application.
func (r *ScholarshipRepository) CreateApplication(ctx context.Context, app *models.ScholarshipApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.Status = models.ApplicationStatusPending
	app.CreatedAt = now
	app.UpdatedAt = now
	const query = `INSERT INTO scholarship_applications (id, scholarship_id, user_id, statement, gpa, status, created_at, updated_at)
VALUES (:id, :scholarship_id, :user_id, :statement, :gpa, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create scholarship application: %w", err)
	}
	return nil
}

func (r *ScholarshipRepository) filteredApplications(builder squirrel.SelectBuilder, filter models.ScholarshipApplicationFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		builder = builder.Where(squirrel.Eq{"sa.user_id": filter.UserID})
	}
	if filter.ScholarshipID != "" {
		builder = builder.Where(squirrel.Eq{"sa.scholarship_id": filter.ScholarshipID})
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"sa.status": filter.Status})
	}
	return builder
}

// ListApplications returns applications newest first.
func (r *ScholarshipRepository) ListApplications(ctx context.Context, filter models.ScholarshipApplicationFilter) ([]models.ScholarshipApplicationDetail, int, error) {
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query, args, err := r.filteredApplications(r.sb.Select(
		"sa.id", "sa.scholarship_id", "sa.user_id", "sa.statement", "sa.gpa", "sa.status", "sa.review_notes", "sa.reviewed_by",
		"sa.created_at", "sa.updated_at", "s.name AS scholarship_name", "u.full_name AS student_name",
	).From("scholarship_applications sa").
		Join("scholarships s ON s.id = sa.scholarship_id").
		Join("users u ON u.id = sa.user_id"), filter).
		OrderBy("sa.created_at DESC").
		Limit(uint64(size)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list applications: %w", err)
	}
	var items []models.ScholarshipApplicationDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery, countArgs, err := r.filteredApplications(r.sb.Select("COUNT(*)").From("scholarship_applications sa"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count applications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return items, total, nil
}

// CountPendingApplications returns applications awaiting a decision.
func (r *ScholarshipRepository) CountPendingApplications(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM scholarship_applications WHERE status IN ('pending', 'under_review')`); err != nil {
		return 0, fmt.Errorf("count pending applications: %w", err)
	}
	return count, nil
}

// FindApplication fetches an application.
func (r *ScholarshipRepository) FindApplication(ctx context.Context, id string) (*models.ScholarshipApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM scholarship_applications WHERE id = $1`
	var app models.ScholarshipApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// UpdateApplicationStatus moves an application between statuses guarded by
// the expected current status.
func (r *ScholarshipRepository) UpdateApplicationStatus(ctx context.Context, app *models.ScholarshipApplication, from models.ApplicationStatus) error {
	app.UpdatedAt = time.Now().UTC()
	query := `UPDATE scholarship_applications SET status = $3, review_notes = $4, reviewed_by = $5, updated_at = $6
WHERE id = $1 AND status = $2 RETURNING ` + applicationColumns
	if err := r.db.GetContext(ctx, app, query, app.ID, from, app.Status, app.ReviewNotes, app.ReviewedBy, app.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}
