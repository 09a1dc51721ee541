package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/jobs"
)

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func queuedJob() *reportRepoStub {
	return &reportRepoStub{
		jobs: map[string]*models.ReportJob{
			"job-1": {
				ID:        "job-1",
				Type:      models.ReportTypeComplaints,
				Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
				Status:    models.ReportStatusQueued,
				CreatedBy: "admin-1",
			},
		},
	}
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := queuedJob()
	metrics := &reportMetricsStub{}
	worker := NewReportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/token"}}, metrics, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	assert.Equal(t, models.ReportStatusFinished, repo.jobs["job-1"].Status)
	assert.Equal(t, 100, repo.jobs["job-1"].Progress)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusFinished}, metrics.recorded)
}

func TestReportWorkerSkipsTerminalAndClaimedJobs(t *testing.T) {
	repo := queuedJob()
	metrics := &reportMetricsStub{}
	worker := NewReportWorker(repo, exportStub{err: errors.New("must not run")}, metrics, 3, zap.NewNop())

	repo.jobs["job-1"].Status = models.ReportStatusProcessing
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	repo.jobs["job-1"].Status = models.ReportStatusFinished
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	assert.Empty(t, metrics.recorded)
}

func TestReportWorkerRequeuesBeforeLastAttempt(t *testing.T) {
	repo := queuedJob()
	metrics := &reportMetricsStub{}
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, metrics, 2, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)
	assert.Equal(t, 0, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ErrorMessage)
	assert.Equal(t, "boom", *repo.jobs["job-1"].ErrorMessage)
	assert.Empty(t, metrics.recorded)
}

func TestReportWorkerFailsOnLastAttempt(t *testing.T) {
	repo := queuedJob()
	metrics := &reportMetricsStub{}
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, metrics, 2, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	assert.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	assert.NotNil(t, repo.jobs["job-1"].FinishedAt)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusFailed}, metrics.recorded)
}
