package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

func sampleEvaluation() (*models.EvaluationSubmission, *models.CourseEvaluation) {
	marker := &models.EvaluationSubmission{UserID: "student-1", CourseID: "course-1", Semester: "Fall 2025"}
	evaluation := &models.CourseEvaluation{
		CourseID:           "course-1",
		Semester:           "Fall 2025",
		ContentRating:      5,
		InstructorRating:   4,
		MaterialsRating:    5,
		WorkloadRating:     3,
		OrganizationRating: 4,
		OverallRating:      5,
	}
	return marker, evaluation
}

func TestEvaluationSubmitWritesMarkerThenEvaluation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evaluation_submissions")).
		WithArgs("student-1", "course-1", "Fall 2025", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_evaluations")).
		WithArgs(sqlmock.AnyArg(), "course-1", "Fall 2025", 5, 4, 5, 3, 4, 5, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	marker, evaluation := sampleEvaluation()
	require.NoError(t, repo.Submit(context.Background(), marker, evaluation))
	assert.NotEmpty(t, evaluation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationSubmitDuplicateRollsBackBeforeEvaluationInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evaluation_submissions")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	marker, evaluation := sampleEvaluation()
	err := repo.Submit(context.Background(), marker, evaluation)
	require.Error(t, err)
	assert.True(t, appErrors.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationCommentsAreTextOrdered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY txt ASC")).
		WithArgs("course-1", "Fall 2025").
		WillReturnRows(sqlmock.NewRows([]string{"txt"}).AddRow("Clear lectures").AddRow("More examples"))

	comments, err := repo.Comments(context.Background(), "course-1", "Fall 2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"Clear lectures", "More examples"}, comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationSubmitRollsBackWhenEvaluationInsertFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evaluation_submissions")).
		WithArgs("student-1", "course-1", "Fall 2025", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_evaluations")).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	marker, evaluation := sampleEvaluation()
	err := repo.Submit(context.Background(), marker, evaluation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert course evaluation")
	assert.False(t, appErrors.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationSummariesOrderByYearThenTerm(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	columns := []string{"course_id", "semester", "responses", "content_avg", "instructor_avg", "materials_avg", "workload_avg", "organization_avg", "overall_avg"}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY split_part(semester, ' ', 2) DESC,\nCASE split_part(semester, ' ', 1)")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("course-1", "Winter 2026", 3, 4.5, 4.0, 4.2, 3.1, 4.0, 4.3).
			AddRow("course-1", "Fall 2025", 8, 4.1, 4.4, 3.9, 3.5, 4.2, 4.0).
			AddRow("course-1", "Spring 2025", 5, 3.8, 4.0, 3.6, 3.2, 3.9, 3.7))

	items, err := repo.Summaries(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Winter 2026", items[0].Semester)
	assert.Equal(t, "Fall 2025", items[1].Semester)
	assert.Equal(t, 8, items[1].Responses)
	assert.NoError(t, mock.ExpectationsWereMet())
}
