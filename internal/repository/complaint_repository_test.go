package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

func TestComplaintListOwnFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints cp JOIN users u ON u.id = cp.user_id WHERE cp.user_id = $1 AND cp.status = $2 ORDER BY cp.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("student-1", models.ComplaintStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM complaints cp WHERE cp.user_id = $1 AND cp.status = $2")).
		WithArgs("student-1", models.ComplaintStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.ComplaintFilter{UserID: "student-1", Status: models.ComplaintStatusPending})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintUpdateStatusGuardsCurrentStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = $2 RETURNING")).
		WithArgs("c-1", models.ComplaintStatusPending, models.ComplaintStatusResolved, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	item := &models.Complaint{ID: "c-1", Status: models.ComplaintStatusResolved}
	err := repo.UpdateStatus(context.Background(), item, models.ComplaintStatusPending)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
