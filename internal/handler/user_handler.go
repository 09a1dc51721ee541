package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// UserHandler serves the admin account directory.
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description Filter by role, active flag or a search over email, name and student number.
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "student, faculty or admin"
// @Param active query bool false "Active filter"
// @Param search query string false "Search term"
// @Param sort_by query string false "email, full_name, created_at or last_login"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter, err := userFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, users, pagination)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Provision account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.CreateUserRequest true "Account"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update account
// @Description Admins cannot change their own role or deactivate themselves.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.UpdateUserRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Deactivate account
// @Description Accounts are kept for their submissions and grades; sessions are revoked.
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func userFilter(c *gin.Context) (models.UserFilter, error) {
	filter := models.UserFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageQuery(c)
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		filter.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "active must be true or false")
		}
		filter.Active = &active
	}
	return filter, nil
}
