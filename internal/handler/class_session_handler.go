package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// ClassSessionHandler schedules course meetings.
type ClassSessionHandler struct {
	sessions *service.ClassSessionService
}

// NewClassSessionHandler constructs ClassSessionHandler.
func NewClassSessionHandler(sessions *service.ClassSessionService) *ClassSessionHandler {
	return &ClassSessionHandler{sessions: sessions}
}

// List godoc
// @Summary List course sessions
// @Tags Sessions
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions [get]
func (h *ClassSessionHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.sessions.List(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Create godoc
// @Summary Schedule session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateClassSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/sessions [post]
func (h *ClassSessionHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateClassSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Delete godoc
// @Summary Delete session
// @Description Attendance rows are removed with the session.
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *ClassSessionHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
