package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type mockAttendanceRepo struct {
	rows    map[string]*models.Attendance
	toggles int
	records []models.StudentAttendanceRecord
}

func (m *mockAttendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	var out []models.Attendance
	for _, row := range m.rows {
		out = append(out, *row)
	}
	return out, nil
}

func (m *mockAttendanceRepo) Toggle(ctx context.Context, sessionID, userID, markedBy string) (*models.Attendance, error) {
	m.toggles++
	if row, ok := m.rows[userID]; ok {
		row.IsPresent = !row.IsPresent
		return row, nil
	}
	row := &models.Attendance{ID: "att-" + userID, SessionID: sessionID, UserID: userID, IsPresent: true}
	m.rows[userID] = row
	return row, nil
}

func (m *mockAttendanceRepo) ListForStudent(ctx context.Context, userID, courseID string) ([]models.StudentAttendanceRecord, error) {
	return m.records, nil
}

type mockRoster struct {
	students []models.EnrollmentDetail
}

func (m *mockRoster) Roster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	return m.students, nil
}

func (m *mockRoster) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	for _, s := range m.students {
		if s.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type mockSessionReader map[string]*models.ClassSession

func (m mockSessionReader) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	if s, ok := m[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func rosterOf(ids ...string) *mockRoster {
	r := &mockRoster{}
	for _, id := range ids {
		r.students = append(r.students, models.EnrollmentDetail{Enrollment: models.Enrollment{UserID: id, CourseID: "c1"}, StudentName: "Student " + id})
	}
	return r
}

func newAttendanceFixture(repo *mockAttendanceRepo, roster *mockRoster) *AttendanceService {
	sessions := mockSessionReader{"s1": {ID: "s1", CourseID: "c1"}}
	access := NewCourseAccess(newMembership("u1", "c1"), newMembership("fac", "c1"))
	return NewAttendanceService(repo, roster, sessions, access, &mockChartInvalidator{}, zap.NewNop())
}

func TestComputeAttendanceStats(t *testing.T) {
	assert.Equal(t, models.AttendanceStats{}, ComputeAttendanceStats(nil))

	stats := ComputeAttendanceStats([]models.AttendanceEntry{{IsPresent: true}, {IsPresent: true}, {}})
	assert.Equal(t, models.AttendanceStats{Present: 2, Absent: 1, Total: 3, Percentage: 67}, stats)

	stats = ComputeAttendanceStats([]models.AttendanceEntry{{IsPresent: true}, {}})
	assert.Equal(t, 50, stats.Percentage)
}

func TestAttendanceStatsSameForPlaceholderAndRealAbsence(t *testing.T) {
	roster := rosterOf("u1", "u2", "u3").students
	withPlaceholders := MergeAttendance(roster, []models.Attendance{{ID: "a1", UserID: "u1", IsPresent: true}})
	allReal := MergeAttendance(roster, []models.Attendance{
		{ID: "a1", UserID: "u1", IsPresent: true},
		{ID: "a2", UserID: "u2"},
		{ID: "a3", UserID: "u3"},
	})
	assert.Equal(t, ComputeAttendanceStats(allReal), ComputeAttendanceStats(withPlaceholders))
	assert.True(t, withPlaceholders[1].IsPlaceholder)
	assert.Nil(t, withPlaceholders[1].ID)
	assert.False(t, allReal[1].IsPlaceholder)
}

func TestAttendanceToggleInsertsOnlyForPlaceholder(t *testing.T) {
	repo := &mockAttendanceRepo{rows: map[string]*models.Attendance{
		"u2": {ID: "a2", UserID: "u2", IsPresent: false},
	}}
	svc := newAttendanceFixture(repo, rosterOf("u1", "u2", "u3"))

	sheet, err := svc.Toggle(context.Background(), "s1", "u1", "fac", models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.toggles)
	require.Len(t, repo.rows, 2)

	byUser := map[string]models.AttendanceEntry{}
	for _, e := range sheet.Entries {
		byUser[e.UserID] = e
	}
	assert.True(t, byUser["u1"].IsPresent)
	assert.False(t, byUser["u1"].IsPlaceholder)
	assert.False(t, byUser["u2"].IsPresent)
	assert.True(t, byUser["u3"].IsPlaceholder)
	assert.Equal(t, models.AttendanceStats{Present: 1, Absent: 2, Total: 3, Percentage: 33}, sheet.Stats)

	sheet, err = svc.Toggle(context.Background(), "s1", "u1", "fac", models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, 0, sheet.Stats.Present)
}

func TestAttendanceToggleRequiresStaffAndEnrollment(t *testing.T) {
	repo := &mockAttendanceRepo{rows: map[string]*models.Attendance{}}
	svc := newAttendanceFixture(repo, rosterOf("u1"))

	_, err := svc.Toggle(context.Background(), "s1", "u1", "u1", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Toggle(context.Background(), "s1", "ghost", "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)

	_, err = svc.Toggle(context.Background(), "nope", "u1", "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.toggles)
}

func TestAttendanceForStudent(t *testing.T) {
	present := true
	repo := &mockAttendanceRepo{records: []models.StudentAttendanceRecord{
		{SessionID: "s1", IsPresent: &present},
		{SessionID: "s2"},
	}}
	svc := newAttendanceFixture(repo, rosterOf("u1"))

	summary, err := svc.ForStudent(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Len(t, summary.Records, 2)
	assert.Equal(t, 50, summary.Stats.Percentage)

	_, err = svc.ForStudent(context.Background(), "u1", "c2")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
