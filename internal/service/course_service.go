package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type enrollmentCounter interface {
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

// CourseService manages the course catalog.
type CourseService struct {
	repo        courseRepository
	enrollments enrollmentCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, enrollments enrollmentCounter, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns the courses visible to the actor. Students may pass catalog to
// browse every course instead of only their enrolled ones.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter, actorID string, role models.UserRole, catalog bool) ([]models.CourseSummary, *models.Pagination, error) {
	filter.UserID = ""
	filter.Role = ""
	if role != models.RoleAdmin && !(role == models.RoleStudent && catalog) {
		filter.Role = role
		filter.UserID = actorID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureUniqueCode(ctx, code, ""); err != nil {
		return nil, err
	}

	course := &models.Course{
		Code:        code,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Credits:     req.Credits,
		Schedule:    req.Schedule,
		Room:        req.Room,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create course")
	}
	return course, nil
}

// Update patches a course. Code and credits are frozen once any student is
// enrolled.
func (s *CourseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var code string
	if req.Code != nil {
		code = strings.ToUpper(strings.TrimSpace(*req.Code))
	}
	codeChanged := req.Code != nil && code != course.Code
	creditsChanged := req.Credits != nil && *req.Credits != course.Credits
	if codeChanged || creditsChanged {
		count, err := s.enrollments.CountByCourse(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "code and credits cannot change once students are enrolled")
		}
	}
	if codeChanged {
		if err := s.ensureUniqueCode(ctx, code, id); err != nil {
			return nil, err
		}
		course.Code = code
	}
	if creditsChanged {
		course.Credits = *req.Credits
	}
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Schedule != nil {
		course.Schedule = req.Schedule
	}
	if req.Room != nil {
		course.Room = req.Room
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.FromPQ(err, "failed to update course")
	}
	return course, nil
}

// Delete removes a course that has no enrollments.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	count, err := s.enrollments.CountByCourse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "course has enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.FromPQ(err, "failed to delete course")
	}
	return nil
}

func (s *CourseService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}
	return nil
}
