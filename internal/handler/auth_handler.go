package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

type sessionService interface {
	Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.Session, error)
	Refresh(ctx context.Context, req models.RefreshRequest, meta models.RequestMeta) (*models.TokenPair, error)
	Logout(ctx context.Context, userID string, req models.LogoutRequest, meta models.RequestMeta) error
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
}

// AuthHandler exposes sign-in and session endpoints.
type AuthHandler struct {
	sessions sessionService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(sessions sessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login godoc
// @Summary Sign in
// @Description Returns an access token, a rotating refresh token and the caller's profile.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.JSON(c, http.StatusOK, session, nil)
}

// Refresh godoc
// @Summary Rotate refresh token
// @Description The presented token is revoked. Presenting it again revokes every session of the account.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.sessions.Refresh(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.JSON(c, http.StatusOK, pair, nil)
}

// Logout godoc
// @Summary Sign out
// @Description Revokes the given refresh token, or every session with all_devices.
// @Tags Authentication
// @Accept json
// @Param payload body models.LogoutRequest true "Session"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.LogoutRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), claims.UserID, req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change password
// @Description Signs the account out everywhere on success.
// @Tags Authentication
// @Accept json
// @Param payload body models.ChangePasswordRequest true "Passwords"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.sessions.ChangePassword(c.Request.Context(), claims.UserID, req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	info, err := h.sessions.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}
