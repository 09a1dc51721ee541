package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/semester"
)

// memoryEvaluations mimics the marker table's unique key and the
// all-or-nothing transaction.
type memoryEvaluations struct {
	markers     map[string]bool
	evaluations []models.CourseEvaluation
	calls       int
	failWith    error
}

func newMemoryEvaluations() *memoryEvaluations {
	return &memoryEvaluations{markers: map[string]bool{}}
}

func markerKey(userID, courseID, semester string) string {
	return userID + "|" + courseID + "|" + semester
}

func (m *memoryEvaluations) Submit(ctx context.Context, marker *models.EvaluationSubmission, evaluation *models.CourseEvaluation) error {
	m.calls++
	if m.failWith != nil {
		return m.failWith
	}
	key := markerKey(marker.UserID, marker.CourseID, marker.Semester)
	if m.markers[key] {
		return fmt.Errorf("insert evaluation marker: %w", &pq.Error{Code: "23505"})
	}
	m.markers[key] = true
	m.evaluations = append(m.evaluations, *evaluation)
	return nil
}

func (m *memoryEvaluations) HasSubmitted(ctx context.Context, userID, courseID, semester string) (bool, error) {
	m.calls++
	return m.markers[markerKey(userID, courseID, semester)], nil
}

func (m *memoryEvaluations) ListForStudent(ctx context.Context, userID, semester string) ([]models.PendingEvaluation, error) {
	return []models.PendingEvaluation{{CourseID: "c1", Submitted: m.markers[markerKey(userID, "c1", semester)]}}, nil
}

func (m *memoryEvaluations) CountPending(ctx context.Context, userID, semester string) (int, error) {
	if m.markers[markerKey(userID, "c1", semester)] {
		return 0, nil
	}
	return 1, nil
}

func (m *memoryEvaluations) Summaries(ctx context.Context, courseID string) ([]models.EvaluationSummary, error) {
	return []models.EvaluationSummary{{CourseID: courseID, Semester: "Fall 2025", Responses: len(m.evaluations)}}, nil
}

func (m *memoryEvaluations) Comments(ctx context.Context, courseID, semester string) ([]string, error) {
	return []string{"clear lectures"}, nil
}

type evaluationMetricsStub struct {
	results []string
}

func (s *evaluationMetricsStub) RecordEvaluation(result string) {
	s.results = append(s.results, result)
}

func newEvaluationFixture() (*EvaluationService, *memoryEvaluations, *evaluationMetricsStub) {
	repo := newMemoryEvaluations()
	metrics := &evaluationMetricsStub{}
	clock := func() time.Time { return time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC) }
	access := NewCourseAccess(newMembership("stu", "c1"), newMembership("fac", "c1"))
	svc := NewEvaluationService(repo, access, semester.NewDeriver(semester.SchemeQuarters, clock), metrics, nil, zap.NewNop())
	return svc, repo, metrics
}

func ratings(values ...int) models.SubmitEvaluationRequest {
	return models.SubmitEvaluationRequest{
		ContentRating:      values[0],
		InstructorRating:   values[1],
		MaterialsRating:    values[2],
		WorkloadRating:     values[3],
		OrganizationRating: values[4],
		OverallRating:      values[5],
	}
}

func TestEvaluationSubmitOncePerSemester(t *testing.T) {
	svc, repo, metrics := newEvaluationFixture()
	ctx := context.Background()

	status, err := svc.Submit(ctx, "c1", ratings(5, 4, 5, 3, 4, 5), "stu")
	require.NoError(t, err)
	assert.Equal(t, "Fall 2025", status.Semester)
	assert.True(t, status.Submitted)
	require.Len(t, repo.evaluations, 1)
	assert.Equal(t, 3, repo.evaluations[0].WorkloadRating)

	_, err = svc.Submit(ctx, "c1", ratings(5, 4, 5, 3, 4, 5), "stu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadySubmitted.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.evaluations, 1)
	assert.Equal(t, []string{EvaluationAccepted, EvaluationDuplicate}, metrics.results)
}

func TestEvaluationRejectsRatingsBeforeTouchingStore(t *testing.T) {
	svc, repo, _ := newEvaluationFixture()

	for _, bad := range [][]int{{0, 4, 5, 3, 4, 5}, {5, 4, 6, 3, 4, 5}} {
		_, err := svc.Submit(context.Background(), "c1", ratings(bad...), "stu")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Zero(t, repo.calls)
}

func TestEvaluationRequiresEnrollment(t *testing.T) {
	svc, repo, _ := newEvaluationFixture()

	_, err := svc.Submit(context.Background(), "c2", ratings(5, 5, 5, 5, 5, 5), "stu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)

	_, err = svc.Status(context.Background(), "c2", "stu")
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.calls)
}

func TestEvaluationStatusAndPending(t *testing.T) {
	svc, _, _ := newEvaluationFixture()
	ctx := context.Background()

	status, err := svc.Status(ctx, "c1", "stu")
	require.NoError(t, err)
	assert.False(t, status.Submitted)
	count, err := svc.CountPending(ctx, "stu")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.Submit(ctx, "c1", ratings(4, 4, 4, 4, 4, 4), "stu")
	require.NoError(t, err)

	status, err = svc.Status(ctx, "c1", "stu")
	require.NoError(t, err)
	assert.True(t, status.Submitted)
	pending, err := svc.Pending(ctx, "stu")
	require.NoError(t, err)
	assert.True(t, pending[0].Submitted)
}

func TestEvaluationSummaryForStaffOnly(t *testing.T) {
	svc, _, _ := newEvaluationFixture()
	ctx := context.Background()

	items, err := svc.Summary(ctx, "c1", "fac", models.RoleFaculty)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"clear lectures"}, items[0].Comments)

	_, err = svc.Summary(ctx, "c1", "stu", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEvaluationSubmitStoreFailureIsInternal(t *testing.T) {
	svc, repo, metrics := newEvaluationFixture()
	repo.failWith = fmt.Errorf("insert course evaluation: %w", errors.New("connection reset by peer"))

	_, err := svc.Submit(context.Background(), "c1", ratings(5, 4, 5, 3, 4, 5), "stu")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.NotEqual(t, appErrors.ErrAlreadySubmitted.Code, appErr.Code)
	assert.Empty(t, repo.evaluations)
	assert.NotContains(t, metrics.results, EvaluationDuplicate)

	repo.failWith = nil
	status, err := svc.Submit(context.Background(), "c1", ratings(5, 4, 5, 3, 4, 5), "stu")
	require.NoError(t, err)
	assert.True(t, status.Submitted)
}
