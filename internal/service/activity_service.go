package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type activityRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error)
}

// ActivityService exposes the activity trail to admins.
type ActivityService struct {
	repo   activityRepository
	logger *zap.Logger
}

// NewActivityService constructs ActivityService.
func NewActivityService(repo activityRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// List returns a page of activity logs, newest first.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, *models.Pagination, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	if items == nil {
		items = []models.ActivityLog{}
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// Record stores an entry, logging instead of failing on error.
func (s *ActivityService) Record(ctx context.Context, entry *models.ActivityLog) {
	recordActivity(ctx, s.repo, s.logger, entry)
}
