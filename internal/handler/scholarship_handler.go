package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// ScholarshipHandler exposes scholarships and applications.
type ScholarshipHandler struct {
	scholarships *service.ScholarshipService
}

// NewScholarshipHandler constructs ScholarshipHandler.
func NewScholarshipHandler(scholarships *service.ScholarshipService) *ScholarshipHandler {
	return &ScholarshipHandler{scholarships: scholarships}
}

// List godoc
// @Summary List scholarships
// @Tags Scholarships
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scholarships [get]
func (h *ScholarshipHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.scholarships.List(c.Request.Context(), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Get godoc
// @Summary Get scholarship
// @Tags Scholarships
// @Produce json
// @Param id path string true "Scholarship ID"
// @Success 200 {object} response.Envelope
// @Router /scholarships/{id} [get]
func (h *ScholarshipHandler) Get(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	item, err := h.scholarships.Get(c.Request.Context(), c.Param("id"), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create scholarship
// @Tags Scholarships
// @Accept json
// @Produce json
// @Param payload body models.CreateScholarshipRequest true "Scholarship payload"
// @Success 201 {object} response.Envelope
// @Router /scholarships [post]
func (h *ScholarshipHandler) Create(c *gin.Context) {
	var req models.CreateScholarshipRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.scholarships.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update scholarship
// @Tags Scholarships
// @Accept json
// @Produce json
// @Param id path string true "Scholarship ID"
// @Param payload body models.UpdateScholarshipRequest true "Scholarship payload"
// @Success 200 {object} response.Envelope
// @Router /scholarships/{id} [put]
func (h *ScholarshipHandler) Update(c *gin.Context) {
	var req models.UpdateScholarshipRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.scholarships.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete scholarship
// @Tags Scholarships
// @Param id path string true "Scholarship ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /scholarships/{id} [delete]
func (h *ScholarshipHandler) Delete(c *gin.Context) {
	if err := h.scholarships.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Apply godoc
// @Summary Apply for scholarship
// @Tags Scholarships
// @Accept json
// @Produce json
// @Param id path string true "Scholarship ID"
// @Param payload body models.ApplyScholarshipRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /scholarships/{id}/applications [post]
func (h *ScholarshipHandler) Apply(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.ApplyScholarshipRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.scholarships.Apply(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// Applications godoc
// @Summary List applications
// @Description Admins see every application, students their own.
// @Tags Scholarships
// @Produce json
// @Param scholarshipId query string false "Scholarship ID"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scholarship-applications [get]
func (h *ScholarshipHandler) Applications(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	filter := models.ScholarshipApplicationFilter{
		ScholarshipID: c.Query("scholarshipId"),
		Status:        models.ApplicationStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageQuery(c)
	items, pagination, err := h.scholarships.Applications(c.Request.Context(), filter, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// UpdateApplicationStatus godoc
// @Summary Review application
// @Tags Scholarships
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.UpdateApplicationStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /scholarship-applications/{id}/status [patch]
func (h *ScholarshipHandler) UpdateApplicationStatus(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateApplicationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.scholarships.UpdateApplicationStatus(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}
