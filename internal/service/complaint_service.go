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

type complaintRepository interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error)
	CountOpen(ctx context.Context) (int, error)
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	Create(ctx context.Context, item *models.Complaint) error
	UpdateStatus(ctx context.Context, item *models.Complaint, from models.ComplaintStatus) error
}

// ComplaintService handles student complaints and their review.
type ComplaintService struct {
	repo      complaintRepository
	charts    chartInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComplaintService constructs ComplaintService.
func NewComplaintService(repo complaintRepository, charts chartInvalidator, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ComplaintService{repo: repo, charts: charts, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("complaint_status", func(fl validator.FieldLevel) bool {
		switch models.ComplaintStatus(fl.Field().String()) {
		case models.ComplaintStatusPending, models.ComplaintStatusInProgress, models.ComplaintStatusResolved, models.ComplaintStatusRejected:
			return true
		}
		return false
	})
	return svc
}

// List returns complaints. Students only see their own.
func (s *ComplaintService) List(ctx context.Context, filter models.ComplaintFilter, actorID string, role models.UserRole) ([]models.ComplaintDetail, *models.Pagination, error) {
	if role != models.RoleAdmin {
		filter.UserID = actorID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// CountOpen counts complaints awaiting an admin.
func (s *ComplaintService) CountOpen(ctx context.Context) (int, error) {
	count, err := s.repo.CountOpen(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count complaints")
	}
	return count, nil
}

// Create files a complaint for the actor.
func (s *ComplaintService) Create(ctx context.Context, req models.CreateComplaintRequest, actorID string) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}
	item := &models.Complaint{
		UserID:   actorID,
		Category: req.Category,
		Subject:  strings.TrimSpace(req.Subject),
		Body:     req.Body,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.FromPQ(err, "failed to file complaint")
	}
	invalidateCharts(ctx, s.charts)
	return item, nil
}

// UpdateStatus moves a complaint along its lifecycle. Resolved and rejected
// complaints are final.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id string, req models.UpdateComplaintStatusRequest, actorID string) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "complaint not found", "failed to load complaint")
	}
	from := item.Status
	if !from.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move complaint from "+string(from)+" to "+string(req.Status))
	}

	item.Status = req.Status
	if req.Response != nil {
		item.Response = req.Response
	}
	item.HandledBy = &actorID
	if req.Status == models.ComplaintStatusResolved || req.Status == models.ComplaintStatusRejected {
		now := time.Now().UTC()
		item.ResolvedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, item, from); err != nil {
		return nil, staleOr(err, "complaint changed concurrently", "failed to update complaint")
	}
	invalidateCharts(ctx, s.charts)
	return item, nil
}
