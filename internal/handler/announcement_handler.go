package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// AnnouncementHandler exposes announcements.
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
}

// NewAnnouncementHandler constructs AnnouncementHandler.
func NewAnnouncementHandler(announcements *service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// List godoc
// @Summary List announcements
// @Description Filtered by the caller's role and courses.
// @Tags Announcements
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	page, size := pageQuery(c)
	items, pagination, err := h.announcements.List(c.Request.Context(), claims.UserID, claims.Role, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// Create godoc
// @Summary Publish announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body models.CreateAnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateAnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.announcements.Create(c.Request.Context(), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body models.UpdateAnnouncementRequest true "Announcement payload"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateAnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.announcements.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.announcements.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
