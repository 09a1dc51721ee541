package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// ComplaintHandler exposes complaint filing and review.
type ComplaintHandler struct {
	complaints *service.ComplaintService
}

// NewComplaintHandler constructs ComplaintHandler.
func NewComplaintHandler(complaints *service.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints}
}

// List godoc
// @Summary List complaints
// @Description Admins see every complaint, students their own.
// @Tags Complaints
// @Produce json
// @Param status query string false "Status"
// @Param category query string false "Category"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	filter := models.ComplaintFilter{
		Status:   models.ComplaintStatus(c.Query("status")),
		Category: c.Query("category"),
	}
	filter.Page, filter.PageSize = pageQuery(c)
	items, pagination, err := h.complaints.List(c.Request.Context(), filter, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// Create godoc
// @Summary File complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body models.CreateComplaintRequest true "Complaint payload"
// @Success 201 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateComplaintRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.complaints.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateStatus godoc
// @Summary Update complaint status
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body models.UpdateComplaintStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /complaints/{id}/status [patch]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateComplaintStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.complaints.UpdateStatus(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
