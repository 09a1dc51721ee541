package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/export"
	"github.com/noah-isme/campus-lms-api/pkg/storage"
)

type datasetSource interface {
	Dataset(ctx context.Context, dataset models.ReportType, params models.ReportJobParams) (export.Dataset, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders datasets and persists background export files.
type ExportService struct {
	datasets datasetSource
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the pkg/export implementations.
func NewExportService(datasets datasetSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		datasets: datasets,
		storage:  storage,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CSV renders a dataset synchronously for direct download.
func (s *ExportService) CSV(ctx context.Context, dataset models.ReportType, params models.ReportJobParams) (*ExportFile, error) {
	if !dataset.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported dataset")
	}
	data, err := s.datasets.Dataset(ctx, dataset, params)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dataset")
	}
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	params.Format = models.ReportFormatCSV
	return &ExportFile{
		Filename:    s.buildFilename(dataset, params),
		ContentType: "text/csv; charset=utf-8",
		Data:        payload,
		Rows:        len(data.Rows),
	}, nil
}

// Generate renders the job's dataset in its format and stores the file behind
// a signed download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	data, err := s.datasets.Dataset(ctx, job.Type, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(data)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(data, datasetTitle(job.Type, job.Params))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job.Type, job.Params), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(dataset models.ReportType, params models.ReportJobParams) string {
	scope := "all"
	if params.CourseID != nil && *params.CourseID != "" {
		scope = sanitizeFilename(*params.CourseID)
	}
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(dataset)), scope, timestamp, params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func datasetTitle(dataset models.ReportType, params models.ReportJobParams) string {
	words := strings.Split(string(dataset), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	title := strings.Join(words, " ") + " Export"
	switch {
	case params.From != nil && params.To != nil:
		title += fmt.Sprintf(" %s to %s", params.From.Format("2006-01-02"), params.To.Format("2006-01-02"))
	case params.From != nil:
		title += " since " + params.From.Format("2006-01-02")
	}
	return title
}
