package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/dto"
	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/repository"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/jobs"
	"github.com/noah-isme/campus-lms-api/pkg/storage"
)

const (
	recoverBatch = 50
	purgeBatch   = 100
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Transition(ctx context.Context, id string, t repository.JobTransition) error
	ClearResult(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	ListByStatus(ctx context.Context, statuses []models.ReportStatus, limit int) ([]models.ReportJob, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ReportServiceConfig governs result retention.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload is an opened export ready to stream.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService accepts export requests and serves their results.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, exporter *ExportService, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	_ = validate.RegisterValidation("report_type", func(fl validator.FieldLevel) bool {
		return models.ReportType(fl.Field().String()).Valid()
	})
	return &ReportService{
		repo:      repo,
		queue:     queue,
		exporter:  exporter,
		validator: validate,
		logger:    logger.Named("reports"),
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob stores a queued job and hands it to the worker pool. A job that
// cannot be enqueued is marked FAILED before the error is returned.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	params := models.ReportJobParams{CourseID: req.CourseID, From: req.From, To: req.To, Format: req.Format}
	if params.Format == "" {
		params.Format = models.ReportFormatCSV
	}
	job := &models.ReportJob{Type: req.Type, Params: params, Status: models.ReportStatusQueued, CreatedBy: actorID}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		msg := "could not be queued: " + err.Error()
		if terr := s.repo.Transition(ctx, job.ID, repository.JobTransition{
			From:     []models.ReportStatus{models.ReportStatusQueued},
			To:       models.ReportStatusFailed,
			Progress: 100,
			Error:    &msg,
			Finished: true,
			At:       s.now(),
		}); terr != nil {
			s.logger.Warn("failed to mark unqueued job", zap.String("job_id", job.ID), zap.Error(terr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Info("report job queued", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("format", string(params.Format)))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// ListJobs returns the actor's most recent jobs.
func (s *ReportService) ListJobs(ctx context.Context, actorID string, limit int) ([]models.ReportJob, error) {
	items, err := s.repo.ListByCreator(ctx, actorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	if items == nil {
		items = []models.ReportJob{}
	}
	return items, nil
}

// GetStatus reports progress of a job. Jobs of other users are reported as
// missing.
func (s *ReportService) GetStatus(ctx context.Context, id string, actorID string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "report job not found", "failed to load report job")
	}
	if job.CreatedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	return dto.NewReportStatus(job), nil
}

// ResolveDownload checks a download token against its job and opens the file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
	case err != nil:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, notFoundOr(err, "report job not found", "failed to load report job")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	if job.DownloadToken() != token {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}

	file, err := s.exporter.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs re-enqueues work left over from a previous process.
// Jobs caught mid-run are put back to QUEUED first.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.repo.ListByStatus(ctx, []models.ReportStatus{models.ReportStatusQueued, models.ReportStatusProcessing}, recoverBatch)
	if err != nil {
		s.logger.Warn("failed to load pending report jobs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, job := range pending {
		if job.Status == models.ReportStatusProcessing {
			msg := "interrupted by restart"
			err := s.repo.Transition(ctx, job.ID, repository.JobTransition{
				From:  []models.ReportStatus{models.ReportStatusProcessing},
				To:    models.ReportStatusQueued,
				Error: &msg,
			})
			if err != nil && !errors.Is(err, repository.ErrStaleJob) {
				s.logger.Warn("failed to reset interrupted job", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
		}
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue report job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("recovered report jobs", zap.Int("count", recovered))
	}
	return recovered
}

// StartCleanup purges expired exports every CleanupInterval until ctx ends.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.PurgeExpired(ctx)
			}
		}
	}()
}

// PurgeExpired deletes files of jobs finished more than ResultTTL ago and
// drops their download links, then sweeps orphaned files. It returns the
// number of jobs purged.
func (s *ReportService) PurgeExpired(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	purged := 0
	for ctx.Err() == nil {
		batch, err := s.repo.ListExpired(ctx, cutoff, purgeBatch)
		if err != nil {
			s.logger.Warn("failed to list expired exports", zap.Error(err))
			break
		}
		for _, job := range batch {
			if _, relPath, _, err := s.exporter.ParseToken(job.DownloadToken(), true); err == nil {
				if err := s.exporter.Delete(relPath); err != nil {
					s.logger.Warn("failed to delete export", zap.String("job_id", job.ID), zap.Error(err))
				}
			}
			if err := s.repo.ClearResult(ctx, job.ID); err != nil {
				// without the clear the same row comes back in the next batch
				s.logger.Warn("failed to clear export link", zap.String("job_id", job.ID), zap.Error(err))
				return purged
			}
			purged++
		}
		if len(batch) < purgeBatch {
			break
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("export directory sweep failed", zap.Error(err))
	}
	return purged
}
