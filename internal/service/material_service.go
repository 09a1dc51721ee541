package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type materialRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.StudyMaterial, error)
	FindByID(ctx context.Context, id string) (*models.StudyMaterial, error)
	Create(ctx context.Context, item *models.StudyMaterial) error
	Delete(ctx context.Context, id string) error
}

// UploadMaterialRequest describes the non-file fields of a material upload.
type UploadMaterialRequest struct {
	Title       string
	Description *string
}

// MaterialService manages uploaded study materials.
type MaterialService struct {
	repo   materialRepository
	files  fileStore
	access *CourseAccess
	logger *zap.Logger
}

// NewMaterialService constructs MaterialService.
func NewMaterialService(repo materialRepository, files fileStore, access *CourseAccess, logger *zap.Logger) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{repo: repo, files: files, access: access, logger: logger}
}

// List returns a course's materials.
func (s *MaterialService) List(ctx context.Context, courseID, actorID string, role models.UserRole) ([]models.StudyMaterial, error) {
	if err := s.access.RequireMember(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	return items, nil
}

// Upload stores a file and its metadata. The blob is removed again if the
// row cannot be written.
func (s *MaterialService) Upload(ctx context.Context, courseID string, req UploadMaterialRequest, upload FileUpload, actorID string, role models.UserRole) (*models.StudyMaterial, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSpace(upload.Filename)
	}
	if title == "" || len(title) > 200 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required and must be at most 200 characters")
	}
	if err := s.access.RequireManager(ctx, actorID, role, courseID); err != nil {
		return nil, err
	}

	file, err := s.files.Store(ctx, FolderMaterials, upload)
	if err != nil {
		return nil, err
	}
	item := &models.StudyMaterial{
		CourseID:    courseID,
		Title:       title,
		Description: req.Description,
		FileURL:     file.URL,
		FileKey:     file.Key,
		FileName:    file.FileName,
		MimeType:    file.MimeType,
		SizeBytes:   file.SizeBytes,
		UploadedBy:  actorID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		s.files.Remove(file.Key)
		return nil, appErrors.FromPQ(err, "failed to save material")
	}
	return item, nil
}

// Delete removes a material row and its blob. Only admins and the uploader
// may delete.
func (s *MaterialService) Delete(ctx context.Context, id, actorID string, role models.UserRole) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "material not found", "failed to load material")
	}
	if role != models.RoleAdmin && item.UploadedBy != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader can delete this material")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "material not found", "failed to delete material")
	}
	s.files.Remove(item.FileKey)
	return nil
}
