package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type memoryScholarships struct {
	items        map[string]*models.Scholarship
	applications map[string]*models.ScholarshipApplication
	listedActive []bool
	lastFilter   models.ScholarshipApplicationFilter
	staleUpdate  bool
	deleteErr    error
}

func newMemoryScholarships(deadline time.Time) *memoryScholarships {
	return &memoryScholarships{
		items: map[string]*models.Scholarship{
			"s1": {ID: "s1", Name: "Merit", Amount: 1500, Deadline: deadline, Active: true},
			"s2": {ID: "s2", Name: "Closed", Amount: 800, Deadline: deadline, Active: false},
		},
		applications: map[string]*models.ScholarshipApplication{},
	}
}

func (m *memoryScholarships) List(ctx context.Context, activeOnly bool) ([]models.Scholarship, error) {
	m.listedActive = append(m.listedActive, activeOnly)
	return nil, nil
}

func (m *memoryScholarships) FindByID(ctx context.Context, id string) (*models.Scholarship, error) {
	if item, ok := m.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryScholarships) Create(ctx context.Context, item *models.Scholarship) error {
	item.ID = "s-new"
	m.items[item.ID] = item
	return nil
}

func (m *memoryScholarships) Update(ctx context.Context, item *models.Scholarship) error {
	m.items[item.ID] = item
	return nil
}

func (m *memoryScholarships) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func (m *memoryScholarships) CreateApplication(ctx context.Context, app *models.ScholarshipApplication) error {
	for _, existing := range m.applications {
		if existing.ScholarshipID == app.ScholarshipID && existing.UserID == app.UserID {
			return &pq.Error{Code: "23505"}
		}
	}
	app.ID = "a" + app.UserID
	app.Status = models.ApplicationStatusPending
	m.applications[app.ID] = app
	return nil
}

func (m *memoryScholarships) ListApplications(ctx context.Context, filter models.ScholarshipApplicationFilter) ([]models.ScholarshipApplicationDetail, int, error) {
	m.lastFilter = filter
	return []models.ScholarshipApplicationDetail{}, 0, nil
}

func (m *memoryScholarships) CountPendingApplications(ctx context.Context) (int, error) {
	count := 0
	for _, app := range m.applications {
		if app.Status == models.ApplicationStatusPending || app.Status == models.ApplicationStatusUnderReview {
			count++
		}
	}
	return count, nil
}

func (m *memoryScholarships) FindApplication(ctx context.Context, id string) (*models.ScholarshipApplication, error) {
	if app, ok := m.applications[id]; ok {
		copied := *app
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryScholarships) UpdateApplicationStatus(ctx context.Context, app *models.ScholarshipApplication, from models.ApplicationStatus) error {
	if m.staleUpdate || m.applications[app.ID].Status != from {
		return sql.ErrNoRows
	}
	m.applications[app.ID] = app
	return nil
}

var scholarshipClock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newScholarshipFixture(deadline time.Time) (*ScholarshipService, *memoryScholarships, *mockChartInvalidator) {
	repo := newMemoryScholarships(deadline)
	charts := &mockChartInvalidator{}
	svc := NewScholarshipService(repo, charts, nil, zap.NewNop())
	svc.now = func() time.Time { return scholarshipClock }
	return svc, repo, charts
}

func statement() string {
	return strings.Repeat("I would like to apply. ", 3)
}

func TestScholarshipApplyOnce(t *testing.T) {
	svc, _, charts := newScholarshipFixture(scholarshipClock.Add(48 * time.Hour))
	ctx := context.Background()

	app, err := svc.Apply(ctx, "s1", models.ApplyScholarshipRequest{Statement: statement()}, "stu")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, 1, charts.calls)

	_, err = svc.Apply(ctx, "s1", models.ApplyScholarshipRequest{Statement: statement()}, "stu")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	pending, err := svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestScholarshipApplyRejections(t *testing.T) {
	ctx := context.Background()

	expired, _, _ := newScholarshipFixture(scholarshipClock.Add(-time.Hour))
	_, err := expired.Apply(ctx, "s1", models.ApplyScholarshipRequest{Statement: statement()}, "stu")
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	svc, _, _ := newScholarshipFixture(scholarshipClock.Add(time.Hour))
	_, err = svc.Apply(ctx, "s2", models.ApplyScholarshipRequest{Statement: statement()}, "stu")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Apply(ctx, "s1", models.ApplyScholarshipRequest{Statement: "too short"}, "stu")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	gpa := 4.5
	_, err = svc.Apply(ctx, "s1", models.ApplyScholarshipRequest{Statement: statement(), GPA: &gpa}, "stu")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScholarshipVisibilityByRole(t *testing.T) {
	svc, repo, _ := newScholarshipFixture(scholarshipClock)
	ctx := context.Background()

	_, err := svc.List(ctx, models.RoleStudent)
	require.NoError(t, err)
	_, err = svc.List(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, repo.listedActive)

	item, err := svc.Get(ctx, "s2", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, item.Active)

	_, _, err = svc.Applications(ctx, models.ScholarshipApplicationFilter{UserID: "someone-else"}, "stu", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "stu", repo.lastFilter.UserID)
}

func TestScholarshipApplicationTransitions(t *testing.T) {
	svc, repo, charts := newScholarshipFixture(scholarshipClock.Add(time.Hour))
	ctx := context.Background()
	app, err := svc.Apply(ctx, "s1", models.ApplyScholarshipRequest{Statement: statement()}, "stu")
	require.NoError(t, err)

	reviewed, err := svc.UpdateApplicationStatus(ctx, app.ID, models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusUnderReview}, "admin")
	require.NoError(t, err)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "admin", *reviewed.ReviewedBy)

	notes := "strong record"
	approved, err := svc.UpdateApplicationStatus(ctx, app.ID, models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusApproved, ReviewNotes: &notes}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, approved.Status)
	assert.Equal(t, 3, charts.calls)

	_, err = svc.UpdateApplicationStatus(ctx, app.ID, models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusPending}, "admin")
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateApplicationStatus(ctx, app.ID, models.UpdateApplicationStatusRequest{Status: "archived"}, "admin")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	repo.applications[app.ID].Status = models.ApplicationStatusPending
	repo.staleUpdate = true
	_, err = svc.UpdateApplicationStatus(ctx, app.ID, models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusRejected}, "admin")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScholarshipDeleteWithApplications(t *testing.T) {
	svc, repo, _ := newScholarshipFixture(scholarshipClock)
	repo.deleteErr = &pq.Error{Code: "23503"}

	err := svc.Delete(context.Background(), "s1")
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	repo.deleteErr = sql.ErrNoRows
	err = svc.Delete(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
