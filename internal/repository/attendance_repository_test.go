package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceToggleInsertsOrFlips(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (session_id, user_id)")).
		WithArgs(sqlmock.AnyArg(), "session-1", "student-1", "faculty-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "user_id", "is_present", "marked_by", "updated_at"}).
			AddRow("att-1", "session-1", "student-1", true, "faculty-1", now))

	row, err := repo.Toggle(context.Background(), "session-1", "student-1", "faculty-1")
	require.NoError(t, err)
	assert.True(t, row.IsPresent)
	assert.Equal(t, "att-1", row.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceListForStudentScopesCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.course_id = $2 ORDER BY s.session_date DESC")).
		WithArgs("student-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "course_id", "course_code", "session_date", "topic", "is_present"}).
			AddRow("s1", "course-1", "CS101", now, nil, true).
			AddRow("s2", "course-1", "CS101", now, nil, nil))

	records, err := repo.ListForStudent(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].IsPresent)
	assert.Nil(t, records[1].IsPresent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
