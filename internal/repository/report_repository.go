package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// ErrStaleJob means the job was no longer in any of the expected states when
// a transition was attempted.
var ErrStaleJob = errors.New("report job not in expected state")

var reportJobColumnList = []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}

// JobTransition moves a report job out of one of From into To.
type JobTransition struct {
	From     []models.ReportStatus
	To       models.ReportStatus
	Progress int
	// ResultURL is written only when set.
	ResultURL *string
	// Error replaces error_message; nil clears it.
	Error *string
	// Finished stamps finished_at with At.
	Finished bool
	At       time.Time
}

// ReportRepository persists export jobs.
type ReportRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db, sb: psql}
}

// Create stores a new job. Missing id, status and timestamp are filled in.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	query, args, err := r.sb.Insert("report_jobs").
		Columns("id", "type", "params", "status", "progress", "created_by", "created_at").
		Values(job.ID, job.Type, job.Params, job.Status, job.Progress, job.CreatedBy, job.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert report job: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID loads one job.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query, args, err := r.sb.Select(reportJobColumnList...).From("report_jobs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get report job: %w", err)
	}
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// Transition applies t to the job only while its status is one of t.From.
// ErrStaleJob is returned when no row matched.
func (r *ReportRepository) Transition(ctx context.Context, id string, t JobTransition) error {
	if len(t.From) == 0 {
		return fmt.Errorf("transition to %s: no source state", t.To)
	}
	set := map[string]interface{}{
		"status":        t.To,
		"progress":      t.Progress,
		"error_message": t.Error,
	}
	if t.ResultURL != nil {
		set["result_url"] = *t.ResultURL
	}
	if t.Finished {
		at := t.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		set["finished_at"] = at
	}
	query, args, err := r.sb.Update("report_jobs").
		SetMap(set).
		Where(squirrel.Eq{"id": id, "status": t.From}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build report job transition: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition report job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleJob
	}
	return nil
}

// ClearResult forgets the download link of a job whose file was purged.
func (r *ReportRepository) ClearResult(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE report_jobs SET result_url = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("clear report result: %w", err)
	}
	return nil
}

func (r *ReportRepository) selectJobs(ctx context.Context, builder squirrel.SelectBuilder, what string) ([]models.ReportJob, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", what, err)
	}
	jobs := make([]models.ReportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return jobs, nil
}

// ListByCreator returns the newest jobs a user requested.
func (r *ReportRepository) ListByCreator(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return r.selectJobs(ctx, r.sb.Select(reportJobColumnList...).
		From("report_jobs").
		Where(squirrel.Eq{"created_by": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)), "list report jobs")
}

// ListByStatus returns the oldest jobs in any of the given states.
func (r *ReportRepository) ListByStatus(ctx context.Context, statuses []models.ReportStatus, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	return r.selectJobs(ctx, r.sb.Select(reportJobColumnList...).
		From("report_jobs").
		Where(squirrel.Eq{"status": statuses}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)), "list report jobs by status")
}

// ListExpired returns finished jobs older than cutoff that still point at a
// stored file.
func (r *ReportRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	return r.selectJobs(ctx, r.sb.Select(reportJobColumnList...).
		From("report_jobs").
		Where(squirrel.Eq{"status": models.ReportStatusFinished}).
		Where(squirrel.NotEq{"result_url": nil}).
		Where(squirrel.Lt{"finished_at": cutoff}).
		OrderBy("finished_at ASC").
		Limit(uint64(limit)), "list expired report jobs")
}
