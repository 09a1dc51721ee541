package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

type attendanceService interface {
	Sheet(ctx context.Context, sessionID, actorID string, role models.UserRole) (*models.AttendanceSheet, error)
	Toggle(ctx context.Context, sessionID, userID, actorID string, role models.UserRole) (*models.AttendanceSheet, error)
	ForStudent(ctx context.Context, actorID, courseID string) (*models.StudentAttendanceSummary, error)
}

// AttendanceHandler serves session attendance sheets.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Sheet godoc
// @Summary Attendance sheet
// @Description Every enrolled student appears, with a placeholder when no row exists yet.
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	sheet, err := h.attendance.Sheet(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Toggle godoc
// @Summary Toggle presence
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Param userId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance/{userId}/toggle [post]
func (h *AttendanceHandler) Toggle(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	sheet, err := h.attendance.Toggle(c.Request.Context(), c.Param("id"), c.Param("userId"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Mine godoc
// @Summary My attendance
// @Tags Attendance
// @Produce json
// @Param courseId query string false "Course ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/me [get]
func (h *AttendanceHandler) Mine(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	summary, err := h.attendance.ForStudent(c.Request.Context(), claims.UserID, c.Query("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
