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
	"github.com/lib/pq"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

const announcementColumns = `id, title, content, audience, course_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at`

const announcementOrder = `is_pinned DESC, CASE priority WHEN 'high' THEN 3 WHEN 'normal' THEN 2 ELSE 1 END DESC, published_at DESC`

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db, sb: psql}
}

// visible applies audience and course scoping. Course announcements are only
// visible to members of that course; the other audiences match by role.
func (r *AnnouncementRepository) visible(builder squirrel.SelectBuilder, filter models.AnnouncementFilter) squirrel.SelectBuilder {
	if filter.All {
		return builder
	}
	audiences := make([]string, 0, len(filter.Audiences))
	for _, a := range filter.Audiences {
		if a != models.AnnouncementAudienceCourse {
			audiences = append(audiences, string(a))
		}
	}
	builder = builder.
		Where("published_at <= NOW()").
		Where("(expires_at IS NULL OR expires_at > NOW())").
		Where(squirrel.Or{
			squirrel.Expr("audience = ANY(?)", pq.Array(audiences)),
			squirrel.Expr("(audience = 'course' AND course_id = ANY(?))", pq.Array(filter.CourseIDs)),
		})
	if filter.Since != nil {
		builder = builder.Where(squirrel.Gt{"published_at": *filter.Since})
	}
	return builder
}

// List returns announcements visible under the filter.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query, args, err := r.visible(r.sb.Select(announcementColumns).From("announcements"), filter).
		OrderBy(announcementOrder).
		Limit(uint64(size)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list announcements: %w", err)
	}
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return announcements, total, nil
}

// Count returns the number of announcements visible under the filter.
func (r *AnnouncementRepository) Count(ctx context.Context, filter models.AnnouncementFilter) (int, error) {
	query, args, err := r.visible(r.sb.Select("COUNT(*)").From("announcements"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count announcements: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count announcements: %w", err)
	}
	return total, nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	if announcement.PublishedAt.IsZero() {
		announcement.PublishedAt = now
	}
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (id, title, content, audience, course_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at)
VALUES (:id, :title, :content, :audience, :course_id, :priority, :is_pinned, :published_at, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update modifies an existing announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE announcements SET title = :title, content = :content, priority = :priority, is_pinned = :is_pinned,
expires_at = :expires_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
