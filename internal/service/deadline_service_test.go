package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

const deadlineCourse = "6f1c2f52-8a4b-4d8e-9d53-2b0f0b7c9a11"

type memoryDeadlines struct {
	items      map[string]*models.Deadline
	feed       []models.UpcomingDeadline
	courseIDs  []string
	since      time.Time
	limit      int
	feedCalled bool
}

func (m *memoryDeadlines) Upcoming(ctx context.Context, userID string, courseIDs []string, since time.Time, limit int) ([]models.UpcomingDeadline, error) {
	m.feedCalled = true
	m.courseIDs = courseIDs
	m.since = since
	m.limit = limit
	return m.feed, nil
}

func (m *memoryDeadlines) FindByID(ctx context.Context, id string) (*models.Deadline, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryDeadlines) Create(ctx context.Context, item *models.Deadline) error {
	item.ID = "dl1"
	m.items[item.ID] = item
	return nil
}

func (m *memoryDeadlines) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newDeadlineFixture() (*DeadlineService, *memoryDeadlines) {
	repo := &memoryDeadlines{items: map[string]*models.Deadline{}}
	access := NewCourseAccess(newMembership("stu", deadlineCourse), newMembership("fac", deadlineCourse))
	svc := NewDeadlineService(repo, access, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestDeadlineUpcomingScopesToCourses(t *testing.T) {
	svc, repo := newDeadlineFixture()
	ctx := context.Background()

	_, err := svc.Upcoming(ctx, "stu", models.RoleStudent, 500)
	require.NoError(t, err)
	assert.Equal(t, []string{deadlineCourse}, repo.courseIDs)
	assert.Equal(t, defaultDeadlineLimit, repo.limit)
	assert.Equal(t, time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC), repo.since)

	repo.feedCalled = false
	items, err := svc.Upcoming(ctx, "lonely", models.RoleStudent, 10)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.False(t, repo.feedCalled)

	_, err = svc.Upcoming(ctx, "admin", models.RoleAdmin, 10)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeadlineCreateRequiresTeaching(t *testing.T) {
	svc, repo := newDeadlineFixture()
	ctx := context.Background()
	req := models.CreateDeadlineRequest{CourseID: deadlineCourse, Title: " Midterm ", DueDate: time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)}

	_, err := svc.Create(ctx, req, "stu", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, req, "other-fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	item, err := svc.Create(ctx, req, "fac", models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, "Midterm", item.Title)

	require.NoError(t, svc.Delete(ctx, item.ID, "admin", models.RoleAdmin))
	assert.Empty(t, repo.items)

	err = svc.Delete(ctx, item.ID, "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
