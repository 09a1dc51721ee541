package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]*models.Assignment
	submissions map[string]*models.AssignmentSubmission
	upsertErr   error
	grades      []models.GradeEntry
}

func (m *mockAssignmentRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) Create(ctx context.Context, item *models.Assignment) error {
	item.ID = "new"
	m.assignments[item.ID] = item
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, item *models.Assignment) error {
	m.assignments[item.ID] = item
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.assignments, id)
	return nil
}

func (m *mockAssignmentRepo) UpsertSubmission(ctx context.Context, sub *models.AssignmentSubmission) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	sub.ID = "sub-" + sub.UserID
	sub.Status = models.SubmissionStatusSubmitted
	m.submissions[sub.AssignmentID+"|"+sub.UserID] = sub
	return nil
}

func (m *mockAssignmentRepo) FindSubmission(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	for _, s := range m.submissions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) FindSubmissionByUser(ctx context.Context, assignmentID, userID string) (*models.AssignmentSubmission, error) {
	if s, ok := m.submissions[assignmentID+"|"+userID]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListSubmissions(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	return nil, nil
}

func (m *mockAssignmentRepo) Grade(ctx context.Context, id string, grade float64, feedback *string, gradedBy string) (*models.AssignmentSubmission, error) {
	sub, err := m.FindSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Grade = &grade
	sub.Status = models.SubmissionStatusGraded
	return sub, nil
}

func (m *mockAssignmentRepo) ListGradesByUser(ctx context.Context, userID string) ([]models.GradeEntry, error) {
	return m.grades, nil
}

type mockFileStore struct {
	stored  []string
	removed []string
	err     error
}

func (m *mockFileStore) Store(ctx context.Context, folder string, upload FileUpload) (*models.UploadedFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	key := folder + "/" + upload.Filename
	m.stored = append(m.stored, key)
	return &models.UploadedFile{Key: key, URL: "http://files/" + key, FileName: upload.Filename, MimeType: "application/pdf", SizeBytes: upload.Size}, nil
}

func (m *mockFileStore) Remove(key string) {
	m.removed = append(m.removed, key)
}

func newAssignmentFixture() (*AssignmentService, *mockAssignmentRepo, *mockFileStore) {
	repo := &mockAssignmentRepo{
		assignments: map[string]*models.Assignment{"a1": {ID: "a1", CourseID: "c1", MaxPoints: 10, DueDate: time.Now().Add(time.Hour)}},
		submissions: map[string]*models.AssignmentSubmission{},
	}
	files := &mockFileStore{}
	access := NewCourseAccess(newMembership("stu", "c1"), newMembership("fac", "c1"))
	return NewAssignmentService(repo, files, access, &mockChartInvalidator{}, validator.New(), zap.NewNop()), repo, files
}

func pdfUpload(name string) FileUpload {
	return FileUpload{Filename: name, Size: 8, Content: strings.NewReader("%PDF-1.4")}
}

func TestAssignmentSubmitOverwritesUngraded(t *testing.T) {
	svc, repo, files := newAssignmentFixture()
	ctx := context.Background()

	first, err := svc.Submit(ctx, "a1", pdfUpload("v1.pdf"), nil, "stu")
	require.NoError(t, err)
	assert.Equal(t, "assignments/v1.pdf", first.FileKey)

	second, err := svc.Submit(ctx, "a1", pdfUpload("v2.pdf"), nil, "stu")
	require.NoError(t, err)
	assert.Equal(t, "assignments/v2.pdf", second.FileKey)
	assert.Len(t, repo.submissions, 1)
	assert.Equal(t, []string{"assignments/v1.pdf"}, files.removed)
}

func TestAssignmentSubmitRejectedAfterGrading(t *testing.T) {
	svc, repo, files := newAssignmentFixture()
	repo.submissions["a1|stu"] = &models.AssignmentSubmission{ID: "s1", AssignmentID: "a1", UserID: "stu", Status: models.SubmissionStatusGraded}

	_, err := svc.Submit(context.Background(), "a1", pdfUpload("late.pdf"), nil, "stu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
	assert.Empty(t, files.stored)
}

func TestAssignmentSubmitRaceWithGradingCleansBlob(t *testing.T) {
	svc, repo, files := newAssignmentFixture()
	repo.upsertErr = sql.ErrNoRows

	_, err := svc.Submit(context.Background(), "a1", pdfUpload("v1.pdf"), nil, "stu")
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"assignments/v1.pdf"}, files.removed)

	repo.upsertErr = errors.New("db down")
	_, err = svc.Submit(context.Background(), "a1", pdfUpload("v2.pdf"), nil, "stu")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Contains(t, files.removed, "assignments/v2.pdf")
}

func TestAssignmentSubmitRequiresEnrollment(t *testing.T) {
	svc, _, files := newAssignmentFixture()
	_, err := svc.Submit(context.Background(), "a1", pdfUpload("v1.pdf"), nil, "stranger")
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
	assert.Empty(t, files.stored)
}

func TestAssignmentGrade(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	repo.submissions["a1|stu"] = &models.AssignmentSubmission{ID: "s1", AssignmentID: "a1", UserID: "stu", Status: models.SubmissionStatusSubmitted}
	ctx := context.Background()

	_, err := svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Grade: 11}, "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Grade: 8}, "stu", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	graded, err := svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Grade: 8}, "fac", models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusGraded, graded.Status)
	assert.Equal(t, 8.0, *graded.Grade)
}

func TestGroupGrades(t *testing.T) {
	groups := GroupGrades([]models.GradeEntry{
		{CourseID: "c1", CourseCode: "CS101", Grade: 8, MaxPoints: 10},
		{CourseID: "c2", CourseCode: "MA101", Grade: 45, MaxPoints: 50},
		{CourseID: "c1", CourseCode: "CS101", Grade: 1, MaxPoints: 5},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "CS101", groups[0].CourseCode)
	assert.Len(t, groups[0].Entries, 2)
	assert.Equal(t, 60.0, groups[0].Percentage)
	assert.Equal(t, 90.0, groups[1].Percentage)

	assert.Empty(t, GroupGrades(nil))
}
