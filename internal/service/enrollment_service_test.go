package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

const (
	testCourseID  = "6f1c1c1e-8d7a-4b8e-9a51-3b0f3a0c2d11"
	testStudentID = "0b9f4a52-6c1d-4d0a-8f3e-2a7b5c9d1e22"
)

type mockEnrollmentRepo struct {
	existing   map[string]bool
	created    []*models.Enrollment
	lastFilter models.EnrollmentFilter
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	return m.existing[userID+"|"+courseID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.created = append(m.created, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	if id == "missing" {
		return sql.ErrNoRows
	}
	return nil
}

type mockUserReader map[string]*models.User

func (m mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader map[string]*models.Course

func (m mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newEnrollmentFixture(repo *mockEnrollmentRepo, charts *mockChartInvalidator) *EnrollmentService {
	users := mockUserReader{
		testStudentID: {ID: testStudentID, Role: models.RoleStudent, Active: true},
		"fac":         {ID: "fac", Role: models.RoleFaculty, Active: true},
	}
	courses := mockCourseReader{testCourseID: {ID: testCourseID, Code: "CS101"}}
	access := NewCourseAccess(newMembership(), newMembership("fac", testCourseID))
	if charts == nil {
		charts = &mockChartInvalidator{}
	}
	return NewEnrollmentService(repo, courses, users, access, charts, validator.New(), zap.NewNop())
}

func TestEnrollmentServiceStudentSelfEnroll(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	charts := &mockChartInvalidator{}
	svc := newEnrollmentFixture(repo, charts)

	enrollment, err := svc.Enroll(context.Background(), models.EnrollRequest{CourseID: testCourseID}, testStudentID, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, testStudentID, enrollment.UserID)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, 1, charts.calls)
}

func TestEnrollmentServiceStudentCannotEnrollOthers(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{}, nil)
	_, err := svc.Enroll(context.Background(), models.EnrollRequest{UserID: testStudentID, CourseID: testCourseID}, "3c2e5f1a-9b7d-4e6c-8a1f-0d2b4c6e8a33", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{existing: map[string]bool{testStudentID + "|" + testCourseID: true}}
	svc := newEnrollmentFixture(repo, nil)
	_, err := svc.Enroll(context.Background(), models.EnrollRequest{UserID: testStudentID, CourseID: testCourseID}, "admin", models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestEnrollmentServiceListScoping(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentFixture(repo, nil)
	ctx := context.Background()

	_, _, err := svc.List(ctx, models.EnrollmentFilter{}, "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(ctx, models.EnrollmentFilter{CourseID: "other"}, "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(ctx, models.EnrollmentFilter{CourseID: testCourseID}, "fac", models.RoleFaculty)
	require.NoError(t, err)

	_, _, err = svc.List(ctx, models.EnrollmentFilter{UserID: "someone"}, testStudentID, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, testStudentID, repo.lastFilter.UserID)
}

func TestEnrollmentServiceDeleteMissing(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{}, nil)
	err := svc.Delete(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
