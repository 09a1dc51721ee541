package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

// Upload folders under the storage root.
const (
	FolderAssignments = "assignments"
	FolderMaterials   = "materials"
)

type blobStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// FileUpload carries an incoming multipart file.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// UploadConfig bounds what may be uploaded and where it is served from.
type UploadConfig struct {
	MaxFileSize   int64
	AllowedMIMEs  []string
	PublicBaseURL string
	PublicPath    string
}

// UploadService validates and persists course files.
type UploadService struct {
	storage blobStorage
	cfg     UploadConfig
	mimeSet map[string]struct{}
	logger  *zap.Logger
}

// NewUploadService constructs UploadService with defaults.
func NewUploadService(storage blobStorage, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "application/zip", "text/plain", "image/png", "image/jpeg"}
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/files"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &UploadService{storage: storage, cfg: cfg, mimeSet: mimeSet, logger: logger}
}

// Store writes the upload to {folder}/{uuid}.{ext} and returns its public
// location.
func (s *UploadService) Store(ctx context.Context, folder string, upload FileUpload) (*models.UploadedFile, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), fileExtension(mimeType))
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if _, err := s.storage.SaveStream(key, upload.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist file")
	}

	return &models.UploadedFile{
		Key:       key,
		URL:       s.PublicURL(key),
		FileName:  filepath.Base(upload.Filename),
		MimeType:  mimeType,
		SizeBytes: upload.Size,
	}, nil
}

// Remove deletes a stored blob. Failures are logged only.
func (s *UploadService) Remove(key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(key); err != nil {
		s.logger.Warn("failed to delete stored file", zap.String("key", key), zap.Error(err))
	}
}

// PublicURL renders the download URL for a key.
func (s *UploadService) PublicURL(key string) string {
	return s.cfg.PublicBaseURL + strings.TrimRight(s.cfg.PublicPath, "/") + "/" + key
}

// mimeExtensions maps every storable type to the extension its key gets.
// The static file server derives Content-Type from that extension.
var mimeExtensions = map[string]string{
	"application/pdf": ".pdf",
	"application/zip": ".zip",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"text/plain":      ".txt",
	"text/csv":        ".csv",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
}

// sniffedAs lists declared types that content sniffing can only report as
// their container or base type.
var sniffedAs = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "application/zip",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "application/zip",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "application/zip",
	"text/csv": "text/plain",
}

// detectMime sniffs the content and only keeps the declared type when it
// agrees with what the bytes are.
func detectMime(upload FileUpload) (string, error) {
	header := make([]byte, 512)
	n, err := io.ReadFull(upload.Content, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	sniffed := "application/octet-stream"
	if mediaType, _, err := mime.ParseMediaType(http.DetectContentType(header[:n])); err == nil {
		sniffed = mediaType
	}

	declared := ""
	if upload.MimeType != "" {
		if mediaType, _, err := mime.ParseMediaType(upload.MimeType); err == nil {
			declared = strings.ToLower(mediaType)
		}
	}
	switch {
	case declared == "" || declared == "application/octet-stream" || declared == sniffed:
		return sniffed, nil
	case sniffedAs[declared] == sniffed:
		return declared, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file content (%s) does not match declared type %s", sniffed, declared))
}

func fileExtension(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}
