package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

type navigationBuilder interface {
	Build(ctx context.Context, actorID string, role models.UserRole) (*models.Navigation, error)
}

// NavigationHandler returns the role-specific sidebar.
type NavigationHandler struct {
	nav navigationBuilder
}

// NewNavigationHandler constructs handler.
func NewNavigationHandler(nav navigationBuilder) *NavigationHandler {
	return &NavigationHandler{nav: nav}
}

// Get godoc
// @Summary Navigation for the current user
// @Description Links and badge counts. Badge lookups that fail surface as errors.
// @Tags Navigation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /navigation [get]
func (h *NavigationHandler) Get(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	nav, err := h.nav.Build(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nav, nil)
}
