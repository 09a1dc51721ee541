package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// ChartRepository runs the grouped counts behind report charts.
type ChartRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewChartRepository constructs the repository.
func NewChartRepository(db *sqlx.DB) *ChartRepository {
	return &ChartRepository{db: db, sb: psql}
}

type chartQuery struct {
	label   string
	series  string
	from    string
	joins   []string
	course  string
	timeCol string
}

var chartQueries = map[models.ChartType]chartQuery{
	models.ChartAttendance: {
		label:   "to_char(s.session_date, 'YYYY-MM-DD')",
		series:  "CASE WHEN a.is_present THEN 'present' ELSE 'absent' END",
		from:    "attendance a",
		joins:   []string{"class_sessions s ON s.id = a.session_id"},
		course:  "s.course_id",
		timeCol: "s.session_date",
	},
	models.ChartEnrollments: {
		label:   "c.code",
		series:  "'enrollments'",
		from:    "enrollments e",
		joins:   []string{"courses c ON c.id = e.course_id"},
		course:  "e.course_id",
		timeCol: "e.enrolled_at",
	},
	models.ChartSubmissions: {
		label:   "to_char(sub.submitted_at, 'YYYY-MM-DD')",
		series:  "sub.status",
		from:    "assignment_submissions sub",
		joins:   []string{"assignments asg ON asg.id = sub.assignment_id"},
		course:  "asg.course_id",
		timeCol: "sub.submitted_at",
	},
	models.ChartComplaints: {
		label:   "cp.status",
		series:  "'complaints'",
		from:    "complaints cp",
		timeCol: "cp.created_at",
	},
	models.ChartScholarships: {
		label:   "sa.status",
		series:  "'applications'",
		from:    "scholarship_applications sa",
		timeCol: "sa.created_at",
	},
	models.ChartActivity: {
		label:   "to_char(al.created_at, 'YYYY-MM-DD')",
		series:  "'activity'",
		from:    "activity_logs al",
		timeCol: "al.created_at",
	},
}

// Buckets returns label/series counts for the chart type ordered by label.
// A course filter is ignored for chart types that are not course scoped.
func (r *ChartRepository) Buckets(ctx context.Context, chart models.ChartType, filter models.ChartFilter) ([]models.ChartBucket, error) {
	def, ok := chartQueries[chart]
	if !ok {
		return nil, fmt.Errorf("unsupported chart type %s", chart)
	}

	builder := r.sb.Select(def.label+" AS label", def.series+" AS series", "COUNT(*)::float8 AS value").From(def.from)
	for _, join := range def.joins {
		builder = builder.Join(join)
	}
	if filter.CourseID != "" && def.course != "" {
		builder = builder.Where(squirrel.Eq{def.course: filter.CourseID})
	}
	if filter.From != nil {
		builder = builder.Where(squirrel.GtOrEq{def.timeCol: *filter.From})
	}
	if filter.To != nil {
		builder = builder.Where(squirrel.Lt{def.timeCol: rangeEnd(*filter.To)})
	}
	query, args, err := builder.GroupBy("1", "2").OrderBy("1 ASC", "2 ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s chart: %w", chart, err)
	}

	var buckets []models.ChartBucket
	if err := r.db.SelectContext(ctx, &buckets, query, args...); err != nil {
		return nil, fmt.Errorf("query %s chart: %w", chart, err)
	}
	return buckets, nil
}
