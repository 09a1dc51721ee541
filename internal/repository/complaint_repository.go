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

const complaintColumns = `id, user_id, category, subject, body, status, response, handled_by, created_at, updated_at, resolved_at`

// ComplaintRepository persists student complaints.
type ComplaintRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewComplaintRepository constructs the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db, sb: psql}
}

func (r *ComplaintRepository) filtered(builder squirrel.SelectBuilder, filter models.ComplaintFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		builder = builder.Where(squirrel.Eq{"cp.user_id": filter.UserID})
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"cp.status": filter.Status})
	}
	if filter.Category != "" {
		builder = builder.Where(squirrel.Eq{"cp.category": filter.Category})
	}
	return builder
}

// List returns complaints newest first.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error) {
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query, args, err := r.filtered(r.sb.Select(
		"cp.id", "cp.user_id", "cp.category", "cp.subject", "cp.body", "cp.status", "cp.response", "cp.handled_by",
		"cp.created_at", "cp.updated_at", "cp.resolved_at", "u.full_name AS student_name",
	).From("complaints cp").Join("users u ON u.id = cp.user_id"), filter).
		OrderBy("cp.created_at DESC").
		Limit(uint64(size)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list complaints: %w", err)
	}
	var items []models.ComplaintDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	countQuery, countArgs, err := r.filtered(r.sb.Select("COUNT(*)").From("complaints cp"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count complaints: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}
	return items, total, nil
}

// CountOpen returns complaints that are pending or in progress.
func (r *ComplaintRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM complaints WHERE status IN ('pending', 'in_progress')`); err != nil {
		return 0, fmt.Errorf("count open complaints: %w", err)
	}
	return count, nil
}

// FindByID fetches a complaint.
func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	var item models.Complaint
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint: %w", err)
	}
	return &item, nil
}

// Create inserts a complaint in the pending state.
func (r *ComplaintRepository) Create(ctx context.Context, item *models.Complaint) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.Status = models.ComplaintStatusPending
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO complaints (id, user_id, category, subject, body, status, created_at, updated_at)
VALUES (:id, :user_id, :category, :subject, :body, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// UpdateStatus moves a complaint from one status to another. It returns
// sql.ErrNoRows when the row no longer has the expected current status.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, item *models.Complaint, from models.ComplaintStatus) error {
	item.UpdatedAt = time.Now().UTC()
	query := `UPDATE complaints SET status = $3, response = $4, handled_by = $5, updated_at = $6, resolved_at = $7
WHERE id = $1 AND status = $2 RETURNING ` + complaintColumns
	err := r.db.GetContext(ctx, item, query, item.ID, from, item.Status, item.Response, item.HandledBy, item.UpdatedAt, item.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update complaint status: %w", err)
	}
	return nil
}
