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
	"github.com/noah-isme/campus-lms-api/pkg/database"
)

const discussionSummarySelect = `SELECT d.id, d.course_id, d.user_id, d.title, d.body, d.created_at, d.updated_at,
u.full_name AS author_name, u.role AS author_role,
(SELECT COUNT(*) FROM discussion_comments dc WHERE dc.discussion_id = d.id) AS comment_count,
(SELECT COUNT(*) FROM discussion_upvotes v WHERE v.discussion_id = d.id) AS upvote_count,
EXISTS(SELECT 1 FROM discussion_upvotes v WHERE v.discussion_id = d.id AND v.user_id = $1) AS upvoted
FROM discussions d
JOIN users u ON u.id = d.user_id`

// DiscussionRepository persists course forum threads, comments and upvotes.
type DiscussionRepository struct {
	db *sqlx.DB
}

// NewDiscussionRepository constructs the repository.
func NewDiscussionRepository(db *sqlx.DB) *DiscussionRepository {
	return &DiscussionRepository{db: db}
}

// ListByCourse returns every discussion of a course, newest first, with
// counters computed for viewerID.
func (r *DiscussionRepository) ListByCourse(ctx context.Context, courseID, viewerID string) ([]models.DiscussionSummary, error) {
	query := discussionSummarySelect + ` WHERE d.course_id = $2 ORDER BY d.created_at DESC`
	var items []models.DiscussionSummary
	if err := r.db.SelectContext(ctx, &items, query, viewerID, courseID); err != nil {
		return nil, fmt.Errorf("list discussions: %w", err)
	}
	return items, nil
}

// FindSummary fetches one discussion with counters for viewerID.
func (r *DiscussionRepository) FindSummary(ctx context.Context, id, viewerID string) (*models.DiscussionSummary, error) {
	query := discussionSummarySelect + ` WHERE d.id = $2`
	var item models.DiscussionSummary
	if err := r.db.GetContext(ctx, &item, query, viewerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find discussion: %w", err)
	}
	return &item, nil
}

// ListComments returns a discussion's comments oldest first.
func (r *DiscussionRepository) ListComments(ctx context.Context, discussionID, viewerID string) ([]models.CommentDetail, error) {
	const query = `SELECT c.id, c.discussion_id, c.user_id, c.body, c.created_at, u.full_name AS author_name,
(SELECT COUNT(*) FROM discussion_upvotes v WHERE v.comment_id = c.id) AS upvote_count,
EXISTS(SELECT 1 FROM discussion_upvotes v WHERE v.comment_id = c.id AND v.user_id = $1) AS upvoted
FROM discussion_comments c
JOIN users u ON u.id = c.user_id
WHERE c.discussion_id = $2
ORDER BY c.created_at ASC`
	var items []models.CommentDetail
	if err := r.db.SelectContext(ctx, &items, query, viewerID, discussionID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return items, nil
}

// CourseIDForComment resolves the course a comment belongs to.
func (r *DiscussionRepository) CourseIDForComment(ctx context.Context, commentID string) (string, error) {
	const query = `SELECT d.course_id FROM discussion_comments c JOIN discussions d ON d.id = c.discussion_id WHERE c.id = $1`
	var courseID string
	if err := r.db.GetContext(ctx, &courseID, query, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("resolve comment course: %w", err)
	}
	return courseID, nil
}

// Create inserts a discussion.
func (r *DiscussionRepository) Create(ctx context.Context, item *models.Discussion) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO discussions (id, course_id, user_id, title, body, created_at, updated_at)
VALUES (:id, :course_id, :user_id, :title, :body, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create discussion: %w", err)
	}
	return nil
}

// CreateComment inserts a comment.
func (r *DiscussionRepository) CreateComment(ctx context.Context, item *models.DiscussionComment) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO discussion_comments (id, discussion_id, user_id, body, created_at)
VALUES (:id, :discussion_id, :user_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// Delete removes a discussion with its comments and upvotes.
func (r *DiscussionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM discussions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discussion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ToggleUpvote removes the caller's upvote if present, otherwise adds one, and
// returns the resulting state and count in the same transaction.
func (r *DiscussionRepository) ToggleUpvote(ctx context.Context, target models.UpvoteTarget, targetID, userID string) (*models.UpvoteResult, error) {
	column := "discussion_id"
	if target == models.UpvoteTargetComment {
		column = "comment_id"
	}
	result := &models.UpvoteResult{}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM discussion_upvotes WHERE user_id = $1 AND `+column+` = $2`, userID, targetID)
		if err != nil {
			return fmt.Errorf("remove upvote: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("remove upvote: %w", err)
		}
		if removed == 0 {
			// A racing toggle may already hold the row; either way the vote exists.
			if _, err := tx.ExecContext(ctx, `INSERT INTO discussion_upvotes (id, user_id, `+column+`, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
				uuid.NewString(), userID, targetID, time.Now().UTC()); err != nil {
				return fmt.Errorf("add upvote: %w", err)
			}
			result.Upvoted = true
		}
		if err := tx.GetContext(ctx, &result.Count, `SELECT COUNT(*) FROM discussion_upvotes WHERE `+column+` = $1`, targetID); err != nil {
			return fmt.Errorf("count upvotes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
