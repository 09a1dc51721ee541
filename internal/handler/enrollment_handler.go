package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param userId query string false "Filter by student"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	filter := models.EnrollmentFilter{
		CourseID:  c.Query("courseId"),
		UserID:    c.Query("userId"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, enrollments, pagination)
}

// Create godoc
// @Summary Enroll student
// @Description Admins may enroll anyone; students enroll themselves.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Remove enrollment
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
