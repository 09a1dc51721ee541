package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type teachingRepository interface {
	List(ctx context.Context, courseID, userID string) ([]models.TeachingAssignmentDetail, error)
	ListTutors(ctx context.Context) ([]models.Tutor, error)
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	Create(ctx context.Context, item *models.TeachingAssignment) error
	Delete(ctx context.Context, id string) error
}

// TeachingService manages which faculty members teach which courses.
type TeachingService struct {
	repo      teachingRepository
	courses   courseReader
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeachingService constructs TeachingService.
func NewTeachingService(repo teachingRepository, courses courseReader, users userReader, validate *validator.Validate, logger *zap.Logger) *TeachingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeachingService{repo: repo, courses: courses, users: users, validator: validate, logger: logger}
}

// Tutors lists faculty members with their course counts.
func (s *TeachingService) Tutors(ctx context.Context) ([]models.Tutor, error) {
	items, err := s.repo.ListTutors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}
	return items, nil
}

// List returns teaching assignments, optionally for one course or faculty member.
func (s *TeachingService) List(ctx context.Context, courseID, userID string) ([]models.TeachingAssignmentDetail, error) {
	items, err := s.repo.List(ctx, courseID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching assignments")
	}
	return items, nil
}

// Assign grants a faculty member management rights over a course.
func (s *TeachingService) Assign(ctx context.Context, req models.CreateTeachingAssignmentRequest) (*models.TeachingAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teaching assignment payload")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty member")
	}
	if user.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only faculty members can teach courses")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.repo.Exists(ctx, req.UserID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teaching assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "faculty member already teaches this course")
	}

	item := &models.TeachingAssignment{UserID: req.UserID, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create teaching assignment")
	}
	return item, nil
}

// Unassign removes a teaching assignment.
func (s *TeachingService) Unassign(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teaching assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teaching assignment")
	}
	return nil
}
