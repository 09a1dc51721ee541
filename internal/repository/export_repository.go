package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/export"
)

// ExportRepository reads flat datasets for CSV/PDF exports. Column aliases
// become the export headers.
type ExportRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db, sb: psql}
}

type datasetQuery struct {
	columns []string
	from    string
	joins   []string
	course  string
	timeCol string
	orderBy string
}

var datasetQueries = map[models.ReportType]datasetQuery{
	models.ReportTypeUsers: {
		columns: []string{"u.email", "u.full_name", "u.role", "u.student_no", "u.department", "u.active", "u.created_at"},
		from:    "users u",
		timeCol: "u.created_at",
		orderBy: "u.full_name ASC",
	},
	models.ReportTypeCourses: {
		columns: []string{"c.code", "c.title", "c.credits", "c.schedule", "c.room",
			"(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count"},
		from:    "courses c",
		course:  "c.id",
		orderBy: "c.code ASC",
	},
	models.ReportTypeEnrollments: {
		columns: []string{"c.code AS course_code", "u.full_name AS student_name", "u.email AS student_email", "u.student_no", "e.enrolled_at"},
		from:    "enrollments e",
		joins:   []string{"users u ON u.id = e.user_id", "courses c ON c.id = e.course_id"},
		course:  "e.course_id",
		timeCol: "e.enrolled_at",
		orderBy: "c.code ASC, u.full_name ASC",
	},
	models.ReportTypeAttendance: {
		columns: []string{"c.code AS course_code", "s.session_date", "s.topic", "u.full_name AS student_name", "u.student_no", "a.is_present"},
		from:    "attendance a",
		joins:   []string{"class_sessions s ON s.id = a.session_id", "courses c ON c.id = s.course_id", "users u ON u.id = a.user_id"},
		course:  "s.course_id",
		timeCol: "s.session_date",
		orderBy: "s.session_date ASC, u.full_name ASC",
	},
	models.ReportTypeSubmissions: {
		columns: []string{"c.code AS course_code", "asg.title AS assignment", "u.full_name AS student_name", "sub.status", "sub.grade",
			"asg.max_points", "sub.file_name", "sub.submitted_at", "sub.graded_at"},
		from:    "assignment_submissions sub",
		joins:   []string{"assignments asg ON asg.id = sub.assignment_id", "courses c ON c.id = asg.course_id", "users u ON u.id = sub.user_id"},
		course:  "asg.course_id",
		timeCol: "sub.submitted_at",
		orderBy: "c.code ASC, asg.due_date ASC, u.full_name ASC",
	},
	models.ReportTypeComplaints: {
		columns: []string{"cp.created_at", "u.full_name AS student_name", "cp.category", "cp.subject", "cp.status", "cp.response", "cp.resolved_at"},
		from:    "complaints cp",
		joins:   []string{"users u ON u.id = cp.user_id"},
		timeCol: "cp.created_at",
		orderBy: "cp.created_at DESC",
	},
	models.ReportTypeScholarshipApplications: {
		columns: []string{"s.name AS scholarship", "u.full_name AS student_name", "sa.gpa", "sa.status", "sa.review_notes", "sa.created_at"},
		from:    "scholarship_applications sa",
		joins:   []string{"scholarships s ON s.id = sa.scholarship_id", "users u ON u.id = sa.user_id"},
		timeCol: "sa.created_at",
		orderBy: "s.name ASC, sa.created_at ASC",
	},
	models.ReportTypeEvaluations: {
		columns: []string{"c.code AS course_code", "ev.semester", "ev.content_rating", "ev.instructor_rating", "ev.materials_rating",
			"ev.workload_rating", "ev.organization_rating", "ev.overall_rating", "ev.strengths", "ev.improvements", "ev.additional_comments"},
		from:    "course_evaluations ev",
		joins:   []string{"courses c ON c.id = ev.course_id"},
		course:  "ev.course_id",
		orderBy: "c.code ASC, ev.semester DESC, ev.overall_rating DESC",
	},
}

// Dataset loads every row of the requested dataset as strings.
func (r *ExportRepository) Dataset(ctx context.Context, dataset models.ReportType, params models.ReportJobParams) (export.Dataset, error) {
	def, ok := datasetQueries[dataset]
	if !ok {
		return export.Dataset{}, fmt.Errorf("unsupported dataset %s", dataset)
	}

	builder := r.sb.Select(def.columns...).From(def.from)
	for _, join := range def.joins {
		builder = builder.Join(join)
	}
	if params.CourseID != nil && *params.CourseID != "" && def.course != "" {
		builder = builder.Where(squirrel.Eq{def.course: *params.CourseID})
	}
	if def.timeCol != "" {
		if params.From != nil {
			builder = builder.Where(squirrel.GtOrEq{def.timeCol: *params.From})
		}
		if params.To != nil {
			builder = builder.Where(squirrel.Lt{def.timeCol: rangeEnd(*params.To)})
		}
	}
	query, args, err := builder.OrderBy(def.orderBy).ToSql()
	if err != nil {
		return export.Dataset{}, fmt.Errorf("build %s dataset: %w", dataset, err)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("query %s dataset: %w", dataset, err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return export.Dataset{}, fmt.Errorf("read %s columns: %w", dataset, err)
	}
	out := export.Dataset{Headers: headers, Rows: []map[string]string{}}
	for rows.Next() {
		raw := map[string]interface{}{}
		if err := rows.MapScan(raw); err != nil {
			return export.Dataset{}, fmt.Errorf("scan %s row: %w", dataset, err)
		}
		record := make(map[string]string, len(headers))
		for _, h := range headers {
			record[h] = formatCell(raw[h])
		}
		out.Rows = append(out.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return export.Dataset{}, fmt.Errorf("iterate %s dataset: %w", dataset, err)
	}
	return out, nil
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
