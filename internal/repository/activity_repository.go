package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// ActivityRepository stores the activity_logs trail.
type ActivityRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db, sb: psql}
}

// Create inserts an activity log entry.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, user_id, action, resource, resource_id, metadata, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :metadata, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

func (r *ActivityRepository) filtered(builder squirrel.SelectBuilder, filter models.ActivityLogFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		builder = builder.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.Resource != "" {
		builder = builder.Where(squirrel.Eq{"resource": filter.Resource})
	}
	if filter.Action != "" {
		builder = builder.Where(squirrel.Eq{"action": filter.Action})
	}
	if filter.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		builder = builder.Where(squirrel.Lt{"created_at": rangeEnd(*filter.To)})
	}
	return builder
}

// List returns the newest activity entries first with a total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error) {
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query, args, err := r.filtered(r.sb.Select("id", "user_id", "action", "resource", "resource_id", "metadata", "ip_address", "user_agent", "created_at").From("activity_logs"), filter).
		OrderBy("created_at DESC").
		Limit(uint64(size)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list activity logs: %w", err)
	}
	var entries []models.ActivityLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}

	countQuery, countArgs, err := r.filtered(r.sb.Select("COUNT(*)").From("activity_logs"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count activity logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	return entries, total, nil
}
