package dto

import (
	"time"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// ReportRequest is the body of POST /reports/jobs.
type ReportRequest struct {
	Type     models.ReportType   `json:"type" validate:"required,report_type"`
	CourseID *string             `json:"courseId,omitempty" validate:"omitempty,uuid4"`
	From     *time.Time          `json:"from,omitempty"`
	To       *time.Time          `json:"to,omitempty"`
	Format   models.ReportFormat `json:"format" validate:"omitempty,oneof=csv pdf"`
}

type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse is what a job's creator sees while polling.
type ReportStatusResponse struct {
	ReportJobResponse
	Type       models.ReportType   `json:"type"`
	Format     models.ReportFormat `json:"format"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}

// NewReportStatus projects a job for polling. The result link is only shown
// once the job finished, and the error only while it is meaningful.
func NewReportStatus(job *models.ReportJob) *ReportStatusResponse {
	resp := &ReportStatusResponse{
		ReportJobResponse: ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress},
		Type:              job.Type,
		Format:            job.Params.Format,
		FinishedAt:        job.FinishedAt,
	}
	if job.Status == models.ReportStatusFinished {
		resp.ResultURL = job.ResultURL
	}
	if job.Status != models.ReportStatusFinished && job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}
