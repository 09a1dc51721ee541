package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/repository"
	"github.com/noah-isme/campus-lms-api/pkg/jobs"
)

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

type reportJobMetrics interface {
	RecordReportJob(reportType models.ReportType, status models.ReportStatus)
}

// ReportWorker runs export jobs taken off the queue.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    reportJobMetrics
	logger     *zap.Logger
	maxRetries int
	now        func() time.Time
}

// NewReportWorker constructs a worker. maxRetries must match the queue's so
// the last attempt is the one that marks the job FAILED.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics reportJobMetrics, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger.Named("report_worker"),
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle claims the job, renders it and records the outcome. A job that is
// already terminal or claimed by another worker is skipped without error.
func (w *ReportWorker) Handle(ctx context.Context, task jobs.Job) error {
	log := w.logger.With(zap.String("job_id", task.ID), zap.Int("attempt", task.Attempt))

	job, err := w.repo.GetByID(ctx, task.ID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		log.Debug("skipping finished job", zap.String("status", string(job.Status)))
		return nil
	}

	err = w.repo.Transition(ctx, job.ID, repository.JobTransition{
		From:     []models.ReportStatus{models.ReportStatusQueued},
		To:       models.ReportStatusProcessing,
		Progress: 10,
	})
	if errors.Is(err, repository.ErrStaleJob) {
		log.Debug("job claimed elsewhere")
		return nil
	}
	if err != nil {
		return err
	}

	started := w.now()
	result, genErr := w.exporter.Generate(ctx, job)
	if genErr != nil {
		w.fail(ctx, log, job, task.Attempt, genErr)
		return genErr
	}

	url := result.URL
	if err := w.repo.Transition(ctx, job.ID, repository.JobTransition{
		From:      []models.ReportStatus{models.ReportStatusProcessing},
		To:        models.ReportStatusFinished,
		Progress:  100,
		ResultURL: &url,
		Finished:  true,
		At:        w.now(),
	}); err != nil {
		log.Warn("failed to mark job finished", zap.Error(err))
		return err
	}
	w.metrics.RecordReportJob(job.Type, models.ReportStatusFinished)
	log.Info("report job finished", zap.String("type", string(job.Type)), zap.Duration("took", w.now().Sub(started)))
	return nil
}

// fail puts the job back in the queue while retries remain, otherwise marks
// it FAILED.
func (w *ReportWorker) fail(ctx context.Context, log *zap.Logger, job *models.ReportJob, attempt int, cause error) {
	msg := cause.Error()
	next := repository.JobTransition{
		From:  []models.ReportStatus{models.ReportStatusProcessing},
		To:    models.ReportStatusQueued,
		Error: &msg,
	}
	final := attempt >= w.maxRetries
	if final {
		next.To = models.ReportStatusFailed
		next.Progress = 100
		next.Finished = true
		next.At = w.now()
	}
	if err := w.repo.Transition(ctx, job.ID, next); err != nil {
		log.Warn("failed to record job failure", zap.Error(err))
	}
	if final {
		w.metrics.RecordReportJob(job.Type, models.ReportStatusFailed)
		log.Error("report job failed", zap.Error(cause))
		return
	}
	log.Warn("report job will be retried", zap.Error(cause))
}
