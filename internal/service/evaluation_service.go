package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type evaluationRepository interface {
	Submit(ctx context.Context, marker *models.EvaluationSubmission, evaluation *models.CourseEvaluation) error
	HasSubmitted(ctx context.Context, userID, courseID, semester string) (bool, error)
	ListForStudent(ctx context.Context, userID, semester string) ([]models.PendingEvaluation, error)
	CountPending(ctx context.Context, userID, semester string) (int, error)
	Summaries(ctx context.Context, courseID string) ([]models.EvaluationSummary, error)
	Comments(ctx context.Context, courseID, semester string) ([]string, error)
}

type semesterSource interface {
	Current() string
}

type evaluationMetrics interface {
	RecordEvaluation(result string)
}

// EvaluationService collects anonymous course evaluations.
type EvaluationService struct {
	repo      evaluationRepository
	access    *CourseAccess
	semesters semesterSource
	metrics   evaluationMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEvaluationService constructs EvaluationService.
func NewEvaluationService(repo evaluationRepository, access *CourseAccess, semesters semesterSource, metrics evaluationMetrics, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	svc := &EvaluationService{repo: repo, access: access, semesters: semesters, metrics: metrics, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		v := fl.Field().Int()
		return v >= 1 && v <= 5
	})
	return svc
}

// CurrentSemester returns the label evaluations are filed under right now.
func (s *EvaluationService) CurrentSemester() string {
	return s.semesters.Current()
}

// Pending lists the actor's enrolled courses with their submitted flag.
func (s *EvaluationService) Pending(ctx context.Context, actorID string) ([]models.PendingEvaluation, error) {
	items, err := s.repo.ListForStudent(ctx, actorID, s.semesters.Current())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return items, nil
}

// CountPending counts enrolled courses not yet evaluated this semester.
func (s *EvaluationService) CountPending(ctx context.Context, actorID string) (int, error) {
	count, err := s.repo.CountPending(ctx, actorID, s.semesters.Current())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count evaluations")
	}
	return count, nil
}

// Status reports whether the actor may still evaluate a course.
func (s *EvaluationService) Status(ctx context.Context, courseID, actorID string) (*models.EvaluationStatus, error) {
	if err := s.requireEnrolled(ctx, courseID, actorID); err != nil {
		return nil, err
	}
	semester := s.semesters.Current()
	submitted, err := s.repo.HasSubmitted(ctx, actorID, courseID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check evaluation status")
	}
	return &models.EvaluationStatus{CourseID: courseID, Semester: semester, Enrolled: true, Submitted: submitted}, nil
}

// Submit files an anonymous evaluation. Ratings are validated before any
// database access; the marker and the evaluation row are written in one
// transaction so a repeat submission leaves no second evaluation behind.
func (s *EvaluationService) Submit(ctx context.Context, courseID string, req models.SubmitEvaluationRequest, actorID string) (*models.EvaluationStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordEvaluation(EvaluationRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "ratings must be between 1 and 5")
	}
	if err := s.requireEnrolled(ctx, courseID, actorID); err != nil {
		s.metrics.RecordEvaluation(EvaluationRejected)
		return nil, err
	}

	semester := s.semesters.Current()
	marker := &models.EvaluationSubmission{UserID: actorID, CourseID: courseID, Semester: semester}
	evaluation := &models.CourseEvaluation{
		CourseID:           courseID,
		Semester:           semester,
		ContentRating:      req.ContentRating,
		InstructorRating:   req.InstructorRating,
		MaterialsRating:    req.MaterialsRating,
		WorkloadRating:     req.WorkloadRating,
		OrganizationRating: req.OrganizationRating,
		OverallRating:      req.OverallRating,
		Strengths:          req.Strengths,
		Improvements:       req.Improvements,
		AdditionalComments: req.AdditionalComments,
	}
	if err := s.repo.Submit(ctx, marker, evaluation); err != nil {
		if appErrors.IsUniqueViolation(err) {
			s.metrics.RecordEvaluation(EvaluationDuplicate)
			return nil, appErrors.Clone(appErrors.ErrAlreadySubmitted, "you have already evaluated this course for "+semester)
		}
		return nil, appErrors.FromPQ(err, "failed to submit evaluation")
	}
	s.metrics.RecordEvaluation(EvaluationAccepted)
	return &models.EvaluationStatus{CourseID: courseID, Semester: semester, Enrolled: true, Submitted: true}, nil
}

// Summary aggregates a course's evaluations per semester for its staff.
func (s *EvaluationService) Summary(ctx context.Context, courseID, actorID string, role models.UserRole) ([]models.EvaluationSummary, error) {
	if err := s.access.RequireManager(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.Summaries(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise evaluations")
	}
	for i := range items {
		comments, err := s.repo.Comments(ctx, courseID, items[i].Semester)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation comments")
		}
		items[i].Comments = comments
	}
	if items == nil {
		items = []models.EvaluationSummary{}
	}
	return items, nil
}

func (s *EvaluationService) requireEnrolled(ctx context.Context, courseID, actorID string) error {
	enrolled, err := s.access.IsMember(ctx, actorID, models.RoleStudent, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrNotEnrolled, "")
	}
	return nil
}
