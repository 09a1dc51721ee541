package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type assignmentRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	Create(ctx context.Context, item *models.Assignment) error
	Update(ctx context.Context, item *models.Assignment) error
	Delete(ctx context.Context, id string) error
	UpsertSubmission(ctx context.Context, sub *models.AssignmentSubmission) error
	FindSubmission(ctx context.Context, id string) (*models.AssignmentSubmission, error)
	FindSubmissionByUser(ctx context.Context, assignmentID, userID string) (*models.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
	Grade(ctx context.Context, id string, grade float64, feedback *string, gradedBy string) (*models.AssignmentSubmission, error)
	ListGradesByUser(ctx context.Context, userID string) ([]models.GradeEntry, error)
}

type fileStore interface {
	Store(ctx context.Context, folder string, upload FileUpload) (*models.UploadedFile, error)
	Remove(key string)
}

// AssignmentService manages coursework, submissions and grading.
type AssignmentService struct {
	repo      assignmentRepository
	files     fileStore
	access    *CourseAccess
	charts    chartInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(repo assignmentRepository, files fileStore, access *CourseAccess, charts chartInvalidator, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, files: files, access: access, charts: charts, validator: validate, logger: logger}
}

// List returns the assignments of a course.
func (s *AssignmentService) List(ctx context.Context, courseID, actorID string, role models.UserRole) ([]models.Assignment, error) {
	if err := s.access.RequireMember(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return items, nil
}

// Create adds an assignment to a course the actor manages.
func (s *AssignmentService) Create(ctx context.Context, courseID string, req models.CreateAssignmentRequest, actorID string, role models.UserRole) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.access.RequireManager(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}
	item := &models.Assignment{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		MaxPoints:   req.MaxPoints,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.FromPQ(err, "failed to create assignment")
	}
	return item, nil
}

// Update patches an assignment.
func (s *AssignmentService) Update(ctx context.Context, id string, req models.UpdateAssignmentRequest, actorID string, role models.UserRole) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	item, err := s.managedAssignment(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.DueDate != nil {
		item.DueDate = req.DueDate.UTC()
	}
	if req.MaxPoints != nil {
		item.MaxPoints = *req.MaxPoints
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return item, nil
}

// Delete removes an assignment and its submissions.
func (s *AssignmentService) Delete(ctx context.Context, id, actorID string, role models.UserRole) error {
	if _, err := s.managedAssignment(ctx, id, actorID, role); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "assignment not found", "failed to delete assignment")
	}
	invalidateCharts(ctx, s.charts)
	return nil
}

// Submit uploads the actor's work. An ungraded submission is overwritten;
// a graded one is final.
func (s *AssignmentService) Submit(ctx context.Context, assignmentID string, upload FileUpload, comment *string, actorID string) (*models.AssignmentSubmission, error) {
	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, notFoundOr(err, "assignment not found", "failed to load assignment")
	}
	enrolled, err := s.access.IsMember(ctx, actorID, models.RoleStudent, assignment.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "")
	}

	previous, err := s.repo.FindSubmissionByUser(ctx, assignmentID, actorID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if previous != nil && previous.Status == models.SubmissionStatusGraded {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "submission already graded")
	}

	file, err := s.files.Store(ctx, FolderAssignments, upload)
	if err != nil {
		return nil, err
	}

	sub := &models.AssignmentSubmission{
		AssignmentID: assignmentID,
		UserID:       actorID,
		FileURL:      file.URL,
		FileKey:      file.Key,
		FileName:     file.FileName,
		MimeType:     file.MimeType,
		SizeBytes:    file.SizeBytes,
		Comment:      comment,
	}
	if err := s.repo.UpsertSubmission(ctx, sub); err != nil {
		s.files.Remove(file.Key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "submission already graded")
		}
		return nil, appErrors.FromPQ(err, "failed to save submission")
	}
	if previous != nil && previous.FileKey != "" && previous.FileKey != sub.FileKey {
		s.files.Remove(previous.FileKey)
	}

	invalidateCharts(ctx, s.charts)
	return sub, nil
}

// Submissions lists every submission of an assignment for course staff.
func (s *AssignmentService) Submissions(ctx context.Context, assignmentID, actorID string, role models.UserRole) ([]models.SubmissionDetail, error) {
	if _, err := s.managedAssignment(ctx, assignmentID, actorID, role); err != nil {
		return nil, err
	}
	items, err := s.repo.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return items, nil
}

// Grade records a grade no higher than the assignment's max points.
func (s *AssignmentService) Grade(ctx context.Context, submissionID string, req models.GradeSubmissionRequest, actorID string, role models.UserRole) (*models.AssignmentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	sub, err := s.repo.FindSubmission(ctx, submissionID)
	if err != nil {
		return nil, notFoundOr(err, "submission not found", "failed to load submission")
	}
	assignment, err := s.managedAssignment(ctx, sub.AssignmentID, actorID, role)
	if err != nil {
		return nil, err
	}
	if req.Grade > float64(assignment.MaxPoints) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade cannot exceed %d points", assignment.MaxPoints))
	}

	graded, err := s.repo.Grade(ctx, submissionID, req.Grade, req.Feedback, actorID)
	if err != nil {
		return nil, notFoundOr(err, "submission not found", "failed to grade submission")
	}
	invalidateCharts(ctx, s.charts)
	return graded, nil
}

// Grades returns the actor's graded work grouped by course.
func (s *AssignmentService) Grades(ctx context.Context, actorID string) ([]models.CourseGrades, error) {
	entries, err := s.repo.ListGradesByUser(ctx, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	return GroupGrades(entries), nil
}

// GroupGrades buckets entries per course, keeping first-seen course order.
// The percentage is total points earned over total points available.
func GroupGrades(entries []models.GradeEntry) []models.CourseGrades {
	result := make([]models.CourseGrades, 0)
	index := make(map[string]int)
	earned := make(map[string]float64)
	possible := make(map[string]int)
	for _, entry := range entries {
		i, ok := index[entry.CourseID]
		if !ok {
			i = len(result)
			index[entry.CourseID] = i
			result = append(result, models.CourseGrades{
				CourseID:    entry.CourseID,
				CourseCode:  entry.CourseCode,
				CourseTitle: entry.CourseTitle,
			})
		}
		result[i].Entries = append(result[i].Entries, entry)
		earned[entry.CourseID] += entry.Grade
		possible[entry.CourseID] += entry.MaxPoints
	}
	for i := range result {
		if total := possible[result[i].CourseID]; total > 0 {
			result[i].Percentage = math.Round(earned[result[i].CourseID]/float64(total)*10000) / 100
		}
	}
	return result
}

func (s *AssignmentService) managedAssignment(ctx context.Context, id, actorID string, role models.UserRole) (*models.Assignment, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "assignment not found", "failed to load assignment")
	}
	if err := s.access.RequireManager(ctx, actorID, role, item.CourseID); err != nil {
		return nil, err
	}
	return item, nil
}
