package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

type discussionService interface {
	Authorize(ctx context.Context, courseID, actorID string, role models.UserRole) error
	List(ctx context.Context, courseID, actorID string, role models.UserRole) ([]models.DiscussionSummary, error)
	Get(ctx context.Context, id, actorID string, role models.UserRole) (*models.DiscussionThread, error)
	Create(ctx context.Context, courseID string, req models.CreateDiscussionRequest, actorID string, role models.UserRole) (*models.Discussion, error)
	Comment(ctx context.Context, discussionID string, req models.CreateCommentRequest, actorID string, role models.UserRole) (*models.DiscussionComment, error)
	ToggleUpvote(ctx context.Context, target models.UpvoteTarget, targetID, actorID string, role models.UserRole) (*models.UpvoteResult, error)
	Delete(ctx context.Context, id, actorID string, role models.UserRole) error
}

type subscriptionServer interface {
	Serve(conn *websocket.Conn, topic, userID string)
}

// DiscussionHandler serves course forums and their live refresh channel.
type DiscussionHandler struct {
	discussions discussionService
	hub         subscriptionServer
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewDiscussionHandler constructs DiscussionHandler.
func NewDiscussionHandler(discussions discussionService, hub subscriptionServer, upgrader websocket.Upgrader, logger *zap.Logger) *DiscussionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscussionHandler{discussions: discussions, hub: hub, upgrader: upgrader, logger: logger}
}

// List godoc
// @Summary List course discussions
// @Tags Discussions
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/discussions [get]
func (h *DiscussionHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.discussions.List(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Create godoc
// @Summary Open discussion
// @Tags Discussions
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateDiscussionRequest true "Discussion payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/discussions [post]
func (h *DiscussionHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateDiscussionRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.discussions.Create(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Get godoc
// @Summary Get discussion with comments
// @Tags Discussions
// @Produce json
// @Param id path string true "Discussion ID"
// @Success 200 {object} response.Envelope
// @Router /discussions/{id} [get]
func (h *DiscussionHandler) Get(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	thread, err := h.discussions.Get(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thread, nil)
}

// Comment godoc
// @Summary Reply to discussion
// @Tags Discussions
// @Accept json
// @Produce json
// @Param id path string true "Discussion ID"
// @Param payload body models.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /discussions/{id}/comments [post]
func (h *DiscussionHandler) Comment(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.discussions.Comment(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpvoteDiscussion godoc
// @Summary Toggle discussion upvote
// @Tags Discussions
// @Produce json
// @Param id path string true "Discussion ID"
// @Success 200 {object} response.Envelope
// @Router /discussions/{id}/upvote [post]
func (h *DiscussionHandler) UpvoteDiscussion(c *gin.Context) {
	h.toggle(c, models.UpvoteTargetDiscussion)
}

// UpvoteComment godoc
// @Summary Toggle comment upvote
// @Tags Discussions
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Router /comments/{id}/upvote [post]
func (h *DiscussionHandler) UpvoteComment(c *gin.Context) {
	h.toggle(c, models.UpvoteTargetComment)
}

func (h *DiscussionHandler) toggle(c *gin.Context, target models.UpvoteTarget) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	result, err := h.discussions.ToggleUpvote(c.Request.Context(), target, c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete discussion
// @Tags Discussions
// @Param id path string true "Discussion ID"
// @Success 204
// @Router /discussions/{id} [delete]
func (h *DiscussionHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.discussions.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Discussion refresh channel
// @Description Websocket. Each message is {type:"refresh", course_id, entity, entity_id}; clients refetch the list.
// @Tags Discussions
// @Param courseId query string true "Course ID"
// @Param token query string true "Access token"
// @Router /ws/discussions [get]
func (h *DiscussionHandler) Stream(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	courseID := c.Query("courseId")
	if err := h.discussions.Authorize(c.Request.Context(), courseID, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("course_id", courseID), zap.Error(err))
		return
	}
	h.hub.Serve(conn, courseID, claims.UserID)
}
