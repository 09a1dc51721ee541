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

const announcementCourse = "0d9e4b8a-3f2c-4c61-8f0e-5a7b2c1d9e44"

type memoryAnnouncements struct {
	items      map[string]*models.Announcement
	lastFilter models.AnnouncementFilter
}

func (m *memoryAnnouncements) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	m.lastFilter = filter
	return []models.Announcement{}, 0, nil
}

func (m *memoryAnnouncements) Count(ctx context.Context, filter models.AnnouncementFilter) (int, error) {
	m.lastFilter = filter
	return len(m.items), nil
}

func (m *memoryAnnouncements) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryAnnouncements) Create(ctx context.Context, item *models.Announcement) error {
	item.ID = "n1"
	m.items[item.ID] = item
	return nil
}

func (m *memoryAnnouncements) Update(ctx context.Context, item *models.Announcement) error {
	m.items[item.ID] = item
	return nil
}

func (m *memoryAnnouncements) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newAnnouncementFixture() (*AnnouncementService, *memoryAnnouncements) {
	repo := &memoryAnnouncements{items: map[string]*models.Announcement{}}
	access := NewCourseAccess(newMembership("stu", announcementCourse), newMembership("fac", announcementCourse))
	return NewAnnouncementService(repo, access, nil, zap.NewNop()), repo
}

func TestAnnouncementFacultyPostsToOwnCourse(t *testing.T) {
	svc, repo := newAnnouncementFixture()
	ctx := context.Background()
	course := announcementCourse

	_, err := svc.Create(ctx, models.CreateAnnouncementRequest{Title: "Exam", Content: "Friday", Audience: models.AnnouncementAudienceAll}, "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, models.CreateAnnouncementRequest{Title: "Exam", Content: "Friday", Audience: models.AnnouncementAudienceCourse}, "fac", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	item, err := svc.Create(ctx, models.CreateAnnouncementRequest{Title: " Exam ", Content: "Friday", Audience: models.AnnouncementAudienceCourse, CourseID: &course}, "fac", models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, "Exam", item.Title)
	assert.Equal(t, models.AnnouncementPriorityNormal, item.Priority)

	_, err = svc.Create(ctx, models.CreateAnnouncementRequest{Title: "Exam", Content: "Friday", Audience: models.AnnouncementAudienceCourse, CourseID: &course}, "other", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(ctx, item.ID, "other", models.RoleFaculty)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.NoError(t, svc.Delete(ctx, item.ID, "fac", models.RoleFaculty))
	assert.Empty(t, repo.items)
}

func TestAnnouncementExpiryMustFollowPublish(t *testing.T) {
	svc, _ := newAnnouncementFixture()
	published := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	expires := published.Add(-time.Hour)

	_, err := svc.Create(context.Background(), models.CreateAnnouncementRequest{
		Title: "Welcome", Content: "Hello", Audience: models.AnnouncementAudienceStudents,
		PublishedAt: &published, ExpiresAt: &expires,
	}, "admin", models.RoleAdmin)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnnouncementVisibilityByRole(t *testing.T) {
	svc, repo := newAnnouncementFixture()
	ctx := context.Background()

	_, _, err := svc.List(ctx, "stu", models.RoleStudent, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{announcementCourse}, repo.lastFilter.CourseIDs)
	assert.ElementsMatch(t, []models.AnnouncementAudience{models.AnnouncementAudienceAll, models.AnnouncementAudienceStudents}, repo.lastFilter.Audiences)

	_, _, err = svc.List(ctx, "admin", models.RoleAdmin, 1, 20)
	require.NoError(t, err)
	assert.True(t, repo.lastFilter.All)

	since := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CountSince(ctx, "admin", models.RoleAdmin, since)
	require.NoError(t, err)
	assert.False(t, repo.lastFilter.All)
	require.NotNil(t, repo.lastFilter.Since)
	assert.Equal(t, since, *repo.lastFilter.Since)
}
