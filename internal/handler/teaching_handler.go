package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// TeachingHandler manages tutors and their course assignments.
type TeachingHandler struct {
	teaching *service.TeachingService
}

// NewTeachingHandler constructs TeachingHandler.
func NewTeachingHandler(teaching *service.TeachingService) *TeachingHandler {
	return &TeachingHandler{teaching: teaching}
}

// Tutors godoc
// @Summary List tutors
// @Tags Teaching
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TeachingHandler) Tutors(c *gin.Context) {
	items, err := h.teaching.Tutors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// List godoc
// @Summary List teaching assignments
// @Tags Teaching
// @Produce json
// @Param courseId query string false "Course ID"
// @Param userId query string false "Faculty user ID"
// @Success 200 {object} response.Envelope
// @Router /teaching-assignments [get]
func (h *TeachingHandler) List(c *gin.Context) {
	items, err := h.teaching.List(c.Request.Context(), c.Query("courseId"), c.Query("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Create godoc
// @Summary Assign faculty to course
// @Tags Teaching
// @Accept json
// @Produce json
// @Param payload body models.CreateTeachingAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /teaching-assignments [post]
func (h *TeachingHandler) Create(c *gin.Context) {
	var req models.CreateTeachingAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.teaching.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Remove teaching assignment
// @Tags Teaching
// @Param id path string true "Teaching assignment ID"
// @Success 204
// @Router /teaching-assignments/{id} [delete]
func (h *TeachingHandler) Delete(c *gin.Context) {
	if err := h.teaching.Unassign(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
