package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path"
	"time"
)

// ReportType names an exportable dataset.
type ReportType string

const (
	ReportTypeUsers                   ReportType = "users"
	ReportTypeCourses                 ReportType = "courses"
	ReportTypeEnrollments             ReportType = "enrollments"
	ReportTypeAttendance              ReportType = "attendance"
	ReportTypeSubmissions             ReportType = "submissions"
	ReportTypeComplaints              ReportType = "complaints"
	ReportTypeScholarshipApplications ReportType = "scholarship_applications"
	ReportTypeEvaluations             ReportType = "evaluations"
)

// ReportTypes lists every exportable dataset.
var ReportTypes = []ReportType{
	ReportTypeUsers,
	ReportTypeCourses,
	ReportTypeEnrollments,
	ReportTypeAttendance,
	ReportTypeSubmissions,
	ReportTypeComplaints,
	ReportTypeScholarshipApplications,
	ReportTypeEvaluations,
}

// Valid reports whether t is a known dataset.
func (t ReportType) Valid() bool {
	for _, known := range ReportTypes {
		if known == t {
			return true
		}
	}
	return false
}

type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus is the lifecycle state of an export job.
// QUEUED -> PROCESSING -> FINISHED | FAILED, with PROCESSING -> QUEUED on retry.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Terminal reports whether no further work will happen on the job.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusFinished || s == ReportStatusFailed
}

// ReportJob is a queued or completed export.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// DownloadToken is the signed token at the end of the result URL, or "".
func (j *ReportJob) DownloadToken() string {
	if j.ResultURL == nil || *j.ResultURL == "" {
		return ""
	}
	token := path.Base(*j.ResultURL)
	if token == "/" || token == "." {
		return ""
	}
	return token
}

// ReportJobParams is stored in the params JSONB column.
type ReportJobParams struct {
	CourseID *string           `json:"courseId,omitempty"`
	From     *time.Time        `json:"from,omitempty"`
	To       *time.Time        `json:"to,omitempty"`
	Format   ReportFormat      `json:"format"`
	Extras   map[string]string `json:"extras,omitempty"`
}

func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode report params: %w", err)
	}
	return data, nil
}

func (p *ReportJobParams) Scan(value interface{}) error {
	*p = ReportJobParams{}
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("report params: cannot scan %T", value)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("decode report params: %w", err)
	}
	return nil
}
