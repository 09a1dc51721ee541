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

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	users     userReader
	access    *CourseAccess
	charts    chartInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, users userReader, access *CourseAccess, charts chartInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, users: users, access: access, charts: charts, validator: validate, logger: logger}
}

// List returns enrollments. Faculty must scope the query to a course they
// teach and students only ever see their own rows.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter, actorID string, role models.UserRole) ([]models.EnrollmentDetail, *models.Pagination, error) {
	switch role {
	case models.RoleFaculty:
		if filter.CourseID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
		}
		if err := s.access.RequireManager(ctx, actorID, role, filter.CourseID); err != nil {
			return nil, nil, err
		}
	case models.RoleStudent:
		filter.UserID = actorID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// Enroll registers a student to a course. Students can only enroll
// themselves; admins may enroll anyone holding the student role.
func (s *EnrollmentService) Enroll(ctx context.Context, req models.EnrollRequest, actorID string, role models.UserRole) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	userID := req.UserID
	switch role {
	case models.RoleStudent:
		if userID != "" && userID != actorID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only enroll themselves")
		}
		userID = actorID
	case models.RoleAdmin:
		if userID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "user_id is required")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot create enrollments")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if user.Role != models.RoleStudent || !user.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only active students can be enrolled")
	}

	exists, err := s.repo.Exists(ctx, userID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")
	}

	enrollment := &models.Enrollment{UserID: userID, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")
		}
		return nil, appErrors.FromPQ(err, "failed to create enrollment")
	}

	invalidateCharts(ctx, s.charts)
	return enrollment, nil
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.FromPQ(err, "failed to delete enrollment")
	}
	invalidateCharts(ctx, s.charts)
	return nil
}
