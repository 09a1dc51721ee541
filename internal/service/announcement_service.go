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

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	Count(ctx context.Context, filter models.AnnouncementFilter) (int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	access    *CourseAccess
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, access *CourseAccess, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, access: access, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("announcement_audience", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementAudience(fl.Field().String()) {
		case models.AnnouncementAudienceAll, models.AnnouncementAudienceStudents, models.AnnouncementAudienceFaculty, models.AnnouncementAudienceCourse:
			return true
		}
		return false
	})
	_ = svc.validator.RegisterValidation("announcement_priority", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementPriority(fl.Field().String()) {
		case models.AnnouncementPriorityLow, models.AnnouncementPriorityNormal, models.AnnouncementPriorityHigh:
			return true
		}
		return false
	})
	return svc
}

// List returns the announcements visible to the actor.
func (s *AnnouncementService) List(ctx context.Context, actorID string, role models.UserRole, page, pageSize int) ([]models.Announcement, *models.Pagination, error) {
	filter, err := s.visibility(ctx, actorID, role)
	if err != nil {
		return nil, nil, err
	}
	filter.Page = page
	filter.PageSize = pageSize
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return items, newPagination(page, pageSize, total), nil
}

// CountSince counts visible announcements published after since.
func (s *AnnouncementService) CountSince(ctx context.Context, actorID string, role models.UserRole, since time.Time) (int, error) {
	filter, err := s.visibility(ctx, actorID, role)
	if err != nil {
		return 0, err
	}
	// The navigation badge is about live announcements, admins included.
	filter.All = false
	filter.Since = &since
	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count announcements")
	}
	return count, nil
}

// Create publishes an announcement. Faculty may only post to courses they teach.
func (s *AnnouncementService) Create(ctx context.Context, req models.CreateAnnouncementRequest, actorID string, role models.UserRole) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if req.Audience == models.AnnouncementAudienceCourse {
		if req.CourseID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required for course announcements")
		}
	} else {
		req.CourseID = nil
	}
	if role != models.RoleAdmin {
		if req.Audience != models.AnnouncementAudienceCourse {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty can only post course announcements")
		}
		if err := s.access.RequireManager(ctx, actorID, role, *req.CourseID); err != nil {
			return nil, err
		}
	}

	publishedAt := time.Now().UTC()
	if req.PublishedAt != nil {
		publishedAt = req.PublishedAt.UTC()
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(publishedAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expires_at must be after published_at")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.AnnouncementPriorityNormal
	}

	announcement := &models.Announcement{
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		Audience:    req.Audience,
		CourseID:    req.CourseID,
		Priority:    priority,
		IsPinned:    req.IsPinned,
		PublishedAt: publishedAt,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create announcement")
	}
	return announcement, nil
}

// Update patches an announcement the actor owns.
func (s *AnnouncementService) Update(ctx context.Context, id string, req models.UpdateAnnouncementRequest, actorID string, role models.UserRole) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	announcement, err := s.owned(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		announcement.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		announcement.Content = *req.Content
	}
	if req.Priority != nil {
		announcement.Priority = *req.Priority
	}
	if req.IsPinned != nil {
		announcement.IsPinned = *req.IsPinned
	}
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(announcement.PublishedAt) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "expires_at must be after published_at")
		}
		announcement.ExpiresAt = req.ExpiresAt
	}
	if err := s.repo.Update(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return announcement, nil
}

// Delete removes an announcement the actor owns.
func (s *AnnouncementService) Delete(ctx context.Context, id, actorID string, role models.UserRole) error {
	if _, err := s.owned(ctx, id, actorID, role); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "announcement not found", "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) owned(ctx context.Context, id, actorID string, role models.UserRole) (*models.Announcement, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "announcement not found", "failed to load announcement")
	}
	if role == models.RoleAdmin {
		return announcement, nil
	}
	if announcement.CreatedBy != actorID || announcement.CourseID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only manage your own course announcements")
	}
	if err := s.access.RequireManager(ctx, actorID, role, *announcement.CourseID); err != nil {
		return nil, err
	}
	return announcement, nil
}

func (s *AnnouncementService) visibility(ctx context.Context, actorID string, role models.UserRole) (models.AnnouncementFilter, error) {
	courseIDs, all, err := s.access.CourseIDs(ctx, actorID, role)
	if err != nil {
		return models.AnnouncementFilter{}, err
	}
	filter := models.AnnouncementFilter{All: all, CourseIDs: courseIDs}
	switch role {
	case models.RoleAdmin:
		filter.Audiences = []models.AnnouncementAudience{models.AnnouncementAudienceAll, models.AnnouncementAudienceStudents, models.AnnouncementAudienceFaculty}
	case models.RoleFaculty:
		filter.Audiences = []models.AnnouncementAudience{models.AnnouncementAudienceAll, models.AnnouncementAudienceFaculty}
	default:
		filter.Audiences = []models.AnnouncementAudience{models.AnnouncementAudienceAll, models.AnnouncementAudienceStudents}
	}
	if filter.CourseIDs == nil {
		filter.CourseIDs = []string{}
	}
	return filter, nil
}
