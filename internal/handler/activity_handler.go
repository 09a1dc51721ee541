package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

type activityLister interface {
	List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, *models.Pagination, error)
}

// ActivityHandler serves the admin audit trail.
type ActivityHandler struct {
	activity activityLister
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activity activityLister) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List godoc
// @Summary List activity logs
// @Tags Activity
// @Produce json
// @Param userId query string false "Actor"
// @Param resource query string false "Resource"
// @Param action query string false "Action"
// @Param from query string false "From"
// @Param to query string false "To"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activity-logs [get]
func (h *ActivityHandler) List(c *gin.Context) {
	from, err := timeQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := pageQuery(c)
	items, pagination, err := h.activity.List(c.Request.Context(), models.ActivityLogFilter{
		UserID:   c.Query("userId"),
		Resource: c.Query("resource"),
		Action:   c.Query("action"),
		From:     from,
		To:       to,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}
