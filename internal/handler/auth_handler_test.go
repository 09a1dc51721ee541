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

type sessionServiceMock struct {
	meta     models.RequestMeta
	logout   models.LogoutRequest
	userID   string
	loginErr error
}

func (m *sessionServiceMock) Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.Session, error) {
	m.meta = meta
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.Session{
		TokenPair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", ExpiresIn: 900},
		User:      models.UserInfo{ID: "u1", Email: req.Email, Role: models.RoleStudent},
	}, nil
}

func (m *sessionServiceMock) Refresh(ctx context.Context, req models.RefreshRequest, meta models.RequestMeta) (*models.TokenPair, error) {
	return &models.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2", TokenType: "Bearer"}, nil
}

func (m *sessionServiceMock) Logout(ctx context.Context, userID string, req models.LogoutRequest, meta models.RequestMeta) error {
	m.userID, m.logout = userID, req
	return nil
}

func (m *sessionServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	m.userID = userID
	return nil
}

func (m *sessionServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleStudent}, nil
}

func TestAuthHandlerLoginPassesClientMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &sessionServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"ana@campus.edu","password":"pw"}`))
	c.Request.Header.Set("User-Agent", "lms-test")
	c.Request.RemoteAddr = "10.1.2.3:5555"
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "lms-test", svc.meta.UserAgent)
	assert.Equal(t, "10.1.2.3", svc.meta.IP)
	assert.Contains(t, w.Body.String(), `"refresh_token":"refresh"`)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&sessionServiceMock{loginErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "")})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"ana@campus.edu","password":"bad"}`))
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthHandlerLoginMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&sessionServiceMock{})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":`))
	handler.Login(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLogoutUsesCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &sessionServiceMock{}
	handler := NewAuthHandler(svc)

	c, _ := studentContext(http.MethodPost, "/auth/logout", []byte(`{"all_devices":true}`))
	handler.Logout(c)

	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "student-1", svc.userID)
	assert.True(t, svc.logout.AllDevices)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&sessionServiceMock{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
