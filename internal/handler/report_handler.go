package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/dto"
	"github.com/noah-isme/campus-lms-api/internal/middleware"
	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

type reportJobService interface {
	CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error)
	ListJobs(ctx context.Context, actorID string, limit int) ([]models.ReportJob, error)
	GetStatus(ctx context.Context, id string, actorID string) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

type chartProvider interface {
	Series(ctx context.Context, chart models.ChartType, filter models.ChartFilter) (*models.ChartSeries, bool, error)
}

type csvExporter interface {
	CSV(ctx context.Context, dataset models.ReportType, params models.ReportJobParams) (*service.ExportFile, error)
}

// ReportHandler exposes charts, direct CSV exports and background export jobs.
type ReportHandler struct {
	jobs    reportJobService
	charts  chartProvider
	exports csvExporter
}

// NewReportHandler constructs handler.
func NewReportHandler(jobs reportJobService, charts chartProvider, exports csvExporter) *ReportHandler {
	return &ReportHandler{jobs: jobs, charts: charts, exports: exports}
}

// Chart godoc
// @Summary Report chart
// @Description Chart-ready series: attendance, enrollments, submissions, complaints, scholarships or activity.
// @Tags Reports
// @Produce json
// @Param type path string true "Report type"
// @Param courseId query string false "Course ID"
// @Param from query string false "From date"
// @Param to query string false "To date"
// @Success 200 {object} response.Envelope
// @Router /reports/{type} [get]
func (h *ReportHandler) Chart(c *gin.Context) {
	if h.charts == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter, err := chartFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	series, cacheHit, err := h.charts.Series(c.Request.Context(), models.ChartType(c.Param("type")), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, series, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download CSV export
// @Description Header row plus one row per record. Commas inside values become semicolons.
// @Tags Reports
// @Produce text/csv
// @Param dataset path string true "Dataset"
// @Param courseId query string false "Course ID"
// @Param from query string false "From date"
// @Param to query string false "To date"
// @Success 200 {file} file
// @Router /exports/{dataset} [get]
func (h *ReportHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter, err := chartFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	params := models.ReportJobParams{From: filter.From, To: filter.To, Format: models.ReportFormatCSV}
	if filter.CourseID != "" {
		params.CourseID = &filter.CourseID
	}
	file, err := h.exports.CSV(c.Request.Context(), models.ReportType(c.Param("dataset")), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("X-Total-Count", strconv.Itoa(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// GenerateReport godoc
// @Summary Queue export job
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Router /reports/jobs [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req dto.ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.jobs.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp, nil)
}

// ListJobs godoc
// @Summary List my export jobs
// @Tags Reports
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /reports/jobs [get]
func (h *ReportHandler) ListJobs(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.jobs.ListJobs(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// ReportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/jobs/{id} [get]
func (h *ReportHandler) ReportStatus(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	resp, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// DownloadReport godoc
// @Summary Download export file
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /export/{token} [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file"))
		return
	}
	contentType := "text/csv; charset=utf-8"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Expires", download.ExpiresAt.UTC().Format(http.TimeFormat))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}

func chartFilter(c *gin.Context) (models.ChartFilter, error) {
	from, err := timeQuery(c, "from")
	if err != nil {
		return models.ChartFilter{}, err
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return models.ChartFilter{}, err
	}
	return models.ChartFilter{CourseID: c.Query("courseId"), From: from, To: to}, nil
}
