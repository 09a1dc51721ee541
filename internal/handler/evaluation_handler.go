package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

type evaluationService interface {
	CurrentSemester() string
	Pending(ctx context.Context, actorID string) ([]models.PendingEvaluation, error)
	Status(ctx context.Context, courseID, actorID string) (*models.EvaluationStatus, error)
	Submit(ctx context.Context, courseID string, req models.SubmitEvaluationRequest, actorID string) (*models.EvaluationStatus, error)
	Summary(ctx context.Context, courseID, actorID string, role models.UserRole) ([]models.EvaluationSummary, error)
}

// EvaluationHandler serves anonymous course evaluations.
type EvaluationHandler struct {
	evaluations evaluationService
}

// NewEvaluationHandler constructs EvaluationHandler.
func NewEvaluationHandler(evaluations evaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations}
}

// Pending godoc
// @Summary Courses to evaluate
// @Tags Evaluations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluations/pending [get]
func (h *EvaluationHandler) Pending(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.evaluations.Pending(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil, map[string]interface{}{"semester": h.evaluations.CurrentSemester()})
}

// Status godoc
// @Summary Evaluation status
// @Tags Evaluations
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/evaluation [get]
func (h *EvaluationHandler) Status(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	status, err := h.evaluations.Status(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Submit godoc
// @Summary Submit evaluation
// @Description Six ratings from 1 to 5. One submission per course and semester.
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.SubmitEvaluationRequest true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/evaluation [post]
func (h *EvaluationHandler) Submit(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.SubmitEvaluationRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := h.evaluations.Submit(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, status)
}

// Summary godoc
// @Summary Evaluation results
// @Tags Evaluations
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/evaluations/summary [get]
func (h *EvaluationHandler) Summary(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.evaluations.Summary(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}
