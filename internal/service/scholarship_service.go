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

type scholarshipRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Scholarship, error)
	FindByID(ctx context.Context, id string) (*models.Scholarship, error)
	Create(ctx context.Context, item *models.Scholarship) error
	Update(ctx context.Context, item *models.Scholarship) error
	Delete(ctx context.Context, id string) error
	CreateApplication(ctx context.Context, app *models.ScholarshipApplication) error
	ListApplications(ctx context.Context, filter models.ScholarshipApplicationFilter) ([]models.ScholarshipApplicationDetail, int, error)
	CountPendingApplications(ctx context.Context) (int, error)
	FindApplication(ctx context.Context, id string) (*models.ScholarshipApplication, error)
	UpdateApplicationStatus(ctx context.Context, app *models.ScholarshipApplication, from models.ApplicationStatus) error
}

// ScholarshipService manages scholarships and student applications.
type ScholarshipService struct {
	repo      scholarshipRepository
	charts    chartInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScholarshipService constructs ScholarshipService.
func NewScholarshipService(repo scholarshipRepository, charts chartInvalidator, validate *validator.Validate, logger *zap.Logger) *ScholarshipService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ScholarshipService{repo: repo, charts: charts, validator: validate, logger: logger, now: time.Now}
	_ = svc.validator.RegisterValidation("application_status", func(fl validator.FieldLevel) bool {
		switch models.ApplicationStatus(fl.Field().String()) {
		case models.ApplicationStatusPending, models.ApplicationStatusUnderReview, models.ApplicationStatusApproved, models.ApplicationStatusRejected:
			return true
		}
		return false
	})
	return svc
}

// List returns scholarships. Non-admins only see active ones.
func (s *ScholarshipService) List(ctx context.Context, role models.UserRole) ([]models.Scholarship, error) {
	items, err := s.repo.List(ctx, role != models.RoleAdmin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scholarships")
	}
	return items, nil
}

// Get returns one scholarship. Inactive scholarships are hidden from non-admins.
func (s *ScholarshipService) Get(ctx context.Context, id string, role models.UserRole) (*models.Scholarship, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "scholarship not found", "failed to load scholarship")
	}
	if !item.Active && role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scholarship not found")
	}
	return item, nil
}

// Create adds a scholarship.
func (s *ScholarshipService) Create(ctx context.Context, req models.CreateScholarshipRequest) (*models.Scholarship, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scholarship payload")
	}
	item := &models.Scholarship{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Amount:       req.Amount,
		Requirements: req.Requirements,
		Deadline:     req.Deadline.UTC(),
		Active:       true,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create scholarship")
	}
	return item, nil
}

// Update patches a scholarship.
func (s *ScholarshipService) Update(ctx context.Context, id string, req models.UpdateScholarshipRequest) (*models.Scholarship, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scholarship payload")
	}
	item, err := s.Get(ctx, id, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.Amount != nil {
		item.Amount = *req.Amount
	}
	if req.Requirements != nil {
		item.Requirements = req.Requirements
	}
	if req.Deadline != nil {
		item.Deadline = req.Deadline.UTC()
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update scholarship")
	}
	return item, nil
}

// Delete removes a scholarship without applications.
func (s *ScholarshipService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if appErrors.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "scholarship has applications; deactivate it instead")
		}
		return notFoundOr(err, "scholarship not found", "failed to delete scholarship")
	}
	return nil
}

// Apply files the actor's application. Each student may apply once, and only
// while the scholarship is active and before its deadline.
func (s *ScholarshipService) Apply(ctx context.Context, scholarshipID string, req models.ApplyScholarshipRequest, actorID string) (*models.ScholarshipApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	scholarship, err := s.Get(ctx, scholarshipID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	if s.now().After(scholarship.Deadline) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application deadline has passed")
	}

	app := &models.ScholarshipApplication{
		ScholarshipID: scholarshipID,
		UserID:        actorID,
		Statement:     strings.TrimSpace(req.Statement),
		GPA:           req.GPA,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "you have already applied to this scholarship")
		}
		return nil, appErrors.FromPQ(err, "failed to submit application")
	}
	invalidateCharts(ctx, s.charts)
	return app, nil
}

// Applications lists applications. Students only see their own.
func (s *ScholarshipService) Applications(ctx context.Context, filter models.ScholarshipApplicationFilter, actorID string, role models.UserRole) ([]models.ScholarshipApplicationDetail, *models.Pagination, error) {
	if role != models.RoleAdmin {
		filter.UserID = actorID
	}
	items, total, err := s.repo.ListApplications(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// CountPending counts applications that still need a decision.
func (s *ScholarshipService) CountPending(ctx context.Context) (int, error) {
	count, err := s.repo.CountPendingApplications(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count applications")
	}
	return count, nil
}

// UpdateApplicationStatus records a review decision.
func (s *ScholarshipService) UpdateApplicationStatus(ctx context.Context, id string, req models.UpdateApplicationStatusRequest, actorID string) (*models.ScholarshipApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	app, err := s.repo.FindApplication(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}
	from := app.Status
	if !from.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move application from "+string(from)+" to "+string(req.Status))
	}
	app.Status = req.Status
	if req.ReviewNotes != nil {
		app.ReviewNotes = req.ReviewNotes
	}
	app.ReviewedBy = &actorID
	if err := s.repo.UpdateApplicationStatus(ctx, app, from); err != nil {
		return nil, staleOr(err, "application changed concurrently", "failed to update application")
	}
	invalidateCharts(ctx, s.charts)
	return app, nil
}
