package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// DeadlineHandler serves the deadline feed.
type DeadlineHandler struct {
	deadlines *service.DeadlineService
}

// NewDeadlineHandler constructs DeadlineHandler.
func NewDeadlineHandler(deadlines *service.DeadlineService) *DeadlineHandler {
	return &DeadlineHandler{deadlines: deadlines}
}

// Mine godoc
// @Summary Upcoming deadlines
// @Description Explicit deadlines and assignment due dates of the caller's courses, soonest first.
// @Tags Deadlines
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /deadlines/me [get]
func (h *DeadlineHandler) Mine(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.deadlines.Upcoming(c.Request.Context(), claims.UserID, claims.Role, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Create godoc
// @Summary Create deadline
// @Tags Deadlines
// @Accept json
// @Produce json
// @Param payload body models.CreateDeadlineRequest true "Deadline payload"
// @Success 201 {object} response.Envelope
// @Router /deadlines [post]
func (h *DeadlineHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateDeadlineRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.deadlines.Create(c.Request.Context(), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Delete deadline
// @Tags Deadlines
// @Param id path string true "Deadline ID"
// @Success 204
// @Router /deadlines/{id} [delete]
func (h *DeadlineHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.deadlines.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
