package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

// DiscussionEventRefresh tells subscribers to refetch the course's threads.
const DiscussionEventRefresh = "refresh"

type discussionRepository interface {
	ListByCourse(ctx context.Context, courseID, viewerID string) ([]models.DiscussionSummary, error)
	FindSummary(ctx context.Context, id, viewerID string) (*models.DiscussionSummary, error)
	ListComments(ctx context.Context, discussionID, viewerID string) ([]models.CommentDetail, error)
	CourseIDForComment(ctx context.Context, commentID string) (string, error)
	Create(ctx context.Context, item *models.Discussion) error
	CreateComment(ctx context.Context, item *models.DiscussionComment) error
	Delete(ctx context.Context, id string) error
	ToggleUpvote(ctx context.Context, target models.UpvoteTarget, targetID, userID string) (*models.UpvoteResult, error)
}

type eventPublisher interface {
	Publish(topic string, payload []byte)
}

// DiscussionService runs the course forums.
type DiscussionService struct {
	repo      discussionRepository
	access    *CourseAccess
	events    eventPublisher
	local     bool
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDiscussionService constructs DiscussionService. When localEvents is set
// the service publishes refresh events itself after each write; otherwise
// they arrive through Relay from the database listener.
func NewDiscussionService(repo discussionRepository, access *CourseAccess, events eventPublisher, localEvents bool, validate *validator.Validate, logger *zap.Logger) *DiscussionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscussionService{repo: repo, access: access, events: events, local: localEvents, validator: validate, logger: logger}
}

// List returns every thread of a course with counters for the actor.
func (s *DiscussionService) List(ctx context.Context, courseID, actorID string, role models.UserRole) ([]models.DiscussionSummary, error) {
	if err := s.access.RequireMember(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discussions")
	}
	return items, nil
}

// Authorize checks that the actor may follow a course's forum.
func (s *DiscussionService) Authorize(ctx context.Context, courseID, actorID string, role models.UserRole) error {
	if courseID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	return s.access.RequireMember(ctx, actorID, role, courseID)
}

// Get returns a thread with its comments.
func (s *DiscussionService) Get(ctx context.Context, id, actorID string, role models.UserRole) (*models.DiscussionThread, error) {
	summary, err := s.visibleDiscussion(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, id, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
	}
	if comments == nil {
		comments = []models.CommentDetail{}
	}
	return &models.DiscussionThread{DiscussionSummary: *summary, Comments: comments}, nil
}

// Create opens a thread in a course the actor belongs to.
func (s *DiscussionService) Create(ctx context.Context, courseID string, req models.CreateDiscussionRequest, actorID string, role models.UserRole) (*models.Discussion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discussion payload")
	}
	if err := s.access.RequireMember(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}
	item := &models.Discussion{
		CourseID: courseID,
		UserID:   actorID,
		Title:    strings.TrimSpace(req.Title),
		Body:     req.Body,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create discussion")
	}
	s.publish(courseID, "discussion", item.ID, "insert")
	return item, nil
}

// Comment replies to a thread.
func (s *DiscussionService) Comment(ctx context.Context, discussionID string, req models.CreateCommentRequest, actorID string, role models.UserRole) (*models.DiscussionComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	summary, err := s.visibleDiscussion(ctx, discussionID, actorID, role)
	if err != nil {
		return nil, err
	}
	item := &models.DiscussionComment{DiscussionID: discussionID, UserID: actorID, Body: req.Body}
	if err := s.repo.CreateComment(ctx, item); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create comment")
	}
	s.publish(summary.CourseID, "comment", item.ID, "insert")
	return item, nil
}

// ToggleUpvote adds or removes the actor's upvote on a thread or comment.
func (s *DiscussionService) ToggleUpvote(ctx context.Context, target models.UpvoteTarget, targetID, actorID string, role models.UserRole) (*models.UpvoteResult, error) {
	var courseID string
	switch target {
	case models.UpvoteTargetDiscussion:
		summary, err := s.visibleDiscussion(ctx, targetID, actorID, role)
		if err != nil {
			return nil, err
		}
		courseID = summary.CourseID
	case models.UpvoteTargetComment:
		id, err := s.repo.CourseIDForComment(ctx, targetID)
		if err != nil {
			return nil, notFoundOr(err, "comment not found", "failed to load comment")
		}
		if err := s.access.RequireMember(ctx, actorID, role, id); err != nil {
			return nil, err
		}
		courseID = id
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown upvote target")
	}

	result, err := s.repo.ToggleUpvote(ctx, target, targetID, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle upvote")
	}
	s.publish(courseID, "upvote", targetID, "toggle")
	return result, nil
}

// Delete removes a thread. Only its author and admins may delete.
func (s *DiscussionService) Delete(ctx context.Context, id, actorID string, role models.UserRole) error {
	summary, err := s.repo.FindSummary(ctx, id, actorID)
	if err != nil {
		return notFoundOr(err, "discussion not found", "failed to load discussion")
	}
	if role != models.RoleAdmin && summary.UserID != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can delete this discussion")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "discussion not found", "failed to delete discussion")
	}
	s.publish(summary.CourseID, "discussion", id, "delete")
	return nil
}

// Relay forwards a database change notification to the course's subscribers.
// An empty payload means notifications may have been lost, so every
// subscriber is told to refresh.
func (s *DiscussionService) Relay(payload string) {
	if s.events == nil {
		return
	}
	if payload == "" {
		data, _ := json.Marshal(models.DiscussionEvent{Type: DiscussionEventRefresh})
		s.events.Publish("", data)
		return
	}
	var event models.DiscussionEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil || event.CourseID == "" {
		s.logger.Warn("discarding malformed discussion notification", zap.String("payload", payload), zap.Error(err))
		return
	}
	event.Type = DiscussionEventRefresh
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.events.Publish(event.CourseID, data)
}

func (s *DiscussionService) publish(courseID, entity, entityID, op string) {
	if !s.local || s.events == nil {
		return
	}
	data, err := json.Marshal(models.DiscussionEvent{
		Type:     DiscussionEventRefresh,
		CourseID: courseID,
		Entity:   entity,
		EntityID: entityID,
		Op:       op,
	})
	if err != nil {
		s.logger.Warn("failed to encode discussion event", zap.Error(err))
		return
	}
	s.events.Publish(courseID, data)
}

func (s *DiscussionService) visibleDiscussion(ctx context.Context, id, actorID string, role models.UserRole) (*models.DiscussionSummary, error) {
	summary, err := s.repo.FindSummary(ctx, id, actorID)
	if err != nil {
		return nil, notFoundOr(err, "discussion not found", "failed to load discussion")
	}
	if err := s.access.RequireMember(ctx, actorID, role, summary.CourseID); err != nil {
		return nil, err
	}
	return summary, nil
}
