package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

func TestChartBucketsAttendanceScopedToCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewChartRepository(db)

	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance a JOIN class_sessions s ON s.id = a.session_id WHERE s.course_id = $1 AND s.session_date >= $2 GROUP BY 1, 2 ORDER BY 1 ASC, 2 ASC")).
		WithArgs("course-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"label", "series", "value"}).
			AddRow("2025-09-02", "absent", 3.0).
			AddRow("2025-09-02", "present", 17.0))

	buckets, err := repo.Buckets(context.Background(), models.ChartAttendance, models.ChartFilter{CourseID: "course-1", From: &from})
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "present", buckets[1].Series)
	assert.Equal(t, 17.0, buckets[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChartBucketsIgnoresCourseForGlobalCharts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewChartRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints cp GROUP BY 1, 2")).
		WillReturnRows(sqlmock.NewRows([]string{"label", "series", "value"}).AddRow("pending", "complaints", 2.0))

	buckets, err := repo.Buckets(context.Background(), models.ChartComplaints, models.ChartFilter{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Len(t, buckets, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChartBucketsUnknownType(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewChartRepository(db)

	_, err := repo.Buckets(context.Background(), models.ChartType("nope"), models.ChartFilter{})
	assert.Error(t, err)
}

func TestChartBucketsDateOnlyUpperBoundIsInclusive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewChartRepository(db)

	from := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.session_date >= $1 AND s.session_date < $2 GROUP BY 1, 2")).
		WithArgs(from, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"label", "series", "value"}).AddRow("2025-10-31", "present", 9.0))

	buckets, err := repo.Buckets(context.Background(), models.ChartAttendance, models.ChartFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "2025-10-31", buckets[0].Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRangeEnd(t *testing.T) {
	day := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day.AddDate(0, 0, 1), rangeEnd(day))

	instant := time.Date(2025, 10, 31, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, instant, rangeEnd(instant))
}
