package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type attendanceServiceMock struct {
	toggled   [2]string
	toggleErr error
	course    string
}

func (m *attendanceServiceMock) Sheet(ctx context.Context, sessionID, actorID string, role models.UserRole) (*models.AttendanceSheet, error) {
	return &models.AttendanceSheet{Session: models.ClassSession{ID: sessionID}}, nil
}

func (m *attendanceServiceMock) Toggle(ctx context.Context, sessionID, userID, actorID string, role models.UserRole) (*models.AttendanceSheet, error) {
	m.toggled = [2]string{sessionID, userID}
	if m.toggleErr != nil {
		return nil, m.toggleErr
	}
	return &models.AttendanceSheet{Stats: models.AttendanceStats{Present: 1, Total: 1, Percentage: 100}}, nil
}

func (m *attendanceServiceMock) ForStudent(ctx context.Context, actorID, courseID string) (*models.StudentAttendanceSummary, error) {
	m.course = courseID
	return &models.StudentAttendanceSummary{Records: []models.StudentAttendanceRecord{}}, nil
}

func TestAttendanceHandlerToggle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)

	c, w := studentContext(http.MethodPost, "/sessions/s1/attendance/u1/toggle", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}, {Key: "userId", Value: "u1"}}
	handler.Toggle(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"s1", "u1"}, svc.toggled)
	assert.Contains(t, w.Body.String(), `"percentage":100`)
}

func TestAttendanceHandlerToggleNotEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{toggleErr: appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this course")})

	c, w := studentContext(http.MethodPost, "/sessions/s1/attendance/u9/toggle", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}, {Key: "userId", Value: "u9"}}
	handler.Toggle(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttendanceHandlerMinePassesCourseFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)

	c, w := studentContext(http.MethodGet, "/attendance/me?courseId=c7", nil)
	handler.Mine(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c7", svc.course)
}

func TestAttendanceHandlerSheetRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{})

	c, w := newGinContext(http.MethodGet, "/sessions/s1/attendance", nil)
	handler.Sheet(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
