package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// AssignmentHandler serves coursework, submissions and grades.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// List godoc
// @Summary List course assignments
// @Tags Assignments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.assignments.List(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.assignments.Create(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.UpdateAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.assignments.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit work
// @Description Multipart upload. Resubmitting before grading replaces the previous file.
// @Tags Assignments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assignment ID"
// @Param file formData file true "Submission file"
// @Param comment formData string false "Comment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	upload, closeFile, err := formUpload(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	sub, err := h.assignments.Submit(c.Request.Context(), c.Param("id"), upload, formString(c, "comment"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// Submissions godoc
// @Summary List submissions
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submissions [get]
func (h *AssignmentHandler) Submissions(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.assignments.Submissions(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Grade godoc
// @Summary Grade submission
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.GradeSubmissionRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/grade [put]
func (h *AssignmentHandler) Grade(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.GradeSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.assignments.Grade(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// MyGrades godoc
// @Summary My grades
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades/me [get]
func (h *AssignmentHandler) MyGrades(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	grades, err := h.assignments.Grades(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, grades, nil)
}
