package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

var submissionRowColumns = []string{"id", "assignment_id", "user_id", "file_url", "file_key", "file_name", "mime_type", "size_bytes", "comment", "status", "grade", "feedback", "graded_by", "submitted_at", "graded_at"}

func TestUpsertSubmissionOverwritesUngraded(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE assignment_submissions.status = 'submitted'")).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow("sub-1", "a-1", "u-1", "http://x/files/assignments/k.pdf", "assignments/k.pdf", "essay.pdf", "application/pdf", 12, nil, "submitted", nil, nil, nil, now, nil))

	sub := &models.AssignmentSubmission{AssignmentID: "a-1", UserID: "u-1", FileKey: "assignments/k.pdf", FileName: "essay.pdf"}
	require.NoError(t, repo.UpsertSubmission(context.Background(), sub))
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSubmissionRejectsGraded(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (assignment_id, user_id)")).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	err := repo.UpsertSubmission(context.Background(), &models.AssignmentSubmission{AssignmentID: "a-1", UserID: "u-1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCountUngradedSkipsEmptyScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	count, err := repo.CountUngraded(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
