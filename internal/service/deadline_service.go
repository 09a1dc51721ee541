package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

const defaultDeadlineLimit = 50

type deadlineRepository interface {
	Upcoming(ctx context.Context, userID string, courseIDs []string, since time.Time, limit int) ([]models.UpcomingDeadline, error)
	FindByID(ctx context.Context, id string) (*models.Deadline, error)
	Create(ctx context.Context, item *models.Deadline) error
	Delete(ctx context.Context, id string) error
}

// DeadlineService merges explicit deadlines with assignment due dates.
type DeadlineService struct {
	repo      deadlineRepository
	access    *CourseAccess
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDeadlineService constructs DeadlineService.
func NewDeadlineService(repo deadlineRepository, access *CourseAccess, validate *validator.Validate, logger *zap.Logger) *DeadlineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{repo: repo, access: access, validator: validate, logger: logger, now: time.Now}
}

// Upcoming returns the actor's future deadlines sorted by due date.
func (s *DeadlineService) Upcoming(ctx context.Context, actorID string, role models.UserRole, limit int) ([]models.UpcomingDeadline, error) {
	courseIDs, all, err := s.access.CourseIDs(ctx, actorID, role)
	if err != nil {
		return nil, err
	}
	if all {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "deadline feed is for students and faculty")
	}
	if len(courseIDs) == 0 {
		return []models.UpcomingDeadline{}, nil
	}
	if limit <= 0 || limit > defaultDeadlineLimit {
		limit = defaultDeadlineLimit
	}
	items, err := s.repo.Upcoming(ctx, actorID, courseIDs, s.now().UTC(), limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deadlines")
	}
	return items, nil
}

// Create adds an explicit deadline to a course the actor manages.
func (s *DeadlineService) Create(ctx context.Context, req models.CreateDeadlineRequest, actorID string, role models.UserRole) (*models.Deadline, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deadline payload")
	}
	if err := s.access.RequireManager(ctx, actorID, role, req.CourseID); err != nil {
		return nil, err
	}
	item := &models.Deadline{
		CourseID:    req.CourseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create deadline")
	}
	return item, nil
}

// Delete removes a deadline.
func (s *DeadlineService) Delete(ctx context.Context, id, actorID string, role models.UserRole) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "deadline not found", "failed to load deadline")
	}
	if err := s.access.RequireManager(ctx, actorID, role, item.CourseID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "deadline not found", "failed to delete deadline")
	}
	return nil
}
