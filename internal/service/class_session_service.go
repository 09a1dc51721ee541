package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type classSessionRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.ClassSession, error)
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	Create(ctx context.Context, session *models.ClassSession) error
	Delete(ctx context.Context, id string) error
}

// ClassSessionService schedules course meetings.
type ClassSessionService struct {
	repo      classSessionRepository
	access    *CourseAccess
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassSessionService constructs ClassSessionService.
func NewClassSessionService(repo classSessionRepository, access *CourseAccess, validate *validator.Validate, logger *zap.Logger) *ClassSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassSessionService{repo: repo, access: access, validator: validate, logger: logger}
}

// List returns the sessions of a course the actor belongs to.
func (s *ClassSessionService) List(ctx context.Context, courseID, actorID string, role models.UserRole) ([]models.ClassSession, error) {
	if err := s.access.RequireMember(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return items, nil
}

// Get loads a session.
func (s *ClassSessionService) Get(ctx context.Context, id string) (*models.ClassSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Create schedules a session for a course the actor manages.
func (s *ClassSessionService) Create(ctx context.Context, courseID string, req models.CreateClassSessionRequest, actorID string, role models.UserRole) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid session date")
	}
	start, _ := time.Parse("15:04", req.StartTime)
	end, _ := time.Parse("15:04", req.EndTime)
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if err := s.access.RequireManager(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}

	session := &models.ClassSession{
		CourseID:    courseID,
		SessionDate: date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Topic:       req.Topic,
		Location:    req.Location,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create session")
	}
	return session, nil
}

// Delete removes a session together with its attendance.
func (s *ClassSessionService) Delete(ctx context.Context, id, actorID string, role models.UserRole) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.RequireManager(ctx, actorID, role, session.CourseID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "session not found", "failed to delete session")
	}
	return nil
}
