package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

type navCounterStub struct {
	announcements int
	evaluations   int
	complaints    int
	applications  int
	deadlines     []models.UpcomingDeadline
	err           error
	calls         int
}

func (n *navCounterStub) CountSince(ctx context.Context, actorID string, role models.UserRole, since time.Time) (int, error) {
	n.calls++
	return n.announcements, n.err
}

func (n *navCounterStub) Upcoming(ctx context.Context, actorID string, role models.UserRole, limit int) ([]models.UpcomingDeadline, error) {
	return n.deadlines, nil
}

type evaluationCounterStub struct{ n *navCounterStub }

func (e evaluationCounterStub) CountPending(ctx context.Context, actorID string) (int, error) {
	return e.n.evaluations, nil
}

type complaintCounterStub struct{ n *navCounterStub }

func (c complaintCounterStub) CountOpen(ctx context.Context) (int, error) { return c.n.complaints, nil }

type applicationCounterStub struct{ n *navCounterStub }

func (a applicationCounterStub) CountPending(ctx context.Context) (int, error) {
	return a.n.applications, nil
}

var navClock = time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)

func newNavigationFixture(cache jsonCache) (*NavigationService, *navCounterStub) {
	stub := &navCounterStub{
		announcements: 2,
		evaluations:   3,
		complaints:    4,
		applications:  5,
		deadlines: []models.UpcomingDeadline{
			{RefID: "a1", DueDate: navClock.Add(24 * time.Hour)},
			{RefID: "a2", DueDate: navClock.Add(48 * time.Hour), IsSubmitted: true},
			{RefID: "a3", DueDate: navClock.Add(10 * 24 * time.Hour)},
		},
	}
	svc := NewNavigationService(NavigationCounters{
		Announcements: stub,
		Evaluations:   evaluationCounterStub{stub},
		Deadlines:     stub,
		Complaints:    complaintCounterStub{stub},
		Applications:  applicationCounterStub{stub},
	}, cache, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return navClock }
	return svc, stub
}

func navKeys(sections []models.NavSection) map[string]int {
	keys := map[string]int{}
	for _, section := range sections {
		for _, item := range section.Items {
			keys[item.Key] = item.Badge
		}
	}
	return keys
}

func TestNavigationStudentBadges(t *testing.T) {
	svc, _ := newNavigationFixture(nil)

	nav, err := svc.Build(context.Background(), "stu", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, models.NavigationBadges{Announcements: 2, PendingEvaluations: 3, UpcomingDeadlines: 1}, nav.Badges)

	keys := navKeys(nav.Sections)
	assert.Equal(t, 3, keys["evaluations"])
	assert.Equal(t, 1, keys["deadlines"])
	assert.Contains(t, keys, "scholarships")
	assert.NotContains(t, keys, "users")
	assert.NotContains(t, keys, "evaluation-results")
}

func TestNavigationAdminBadges(t *testing.T) {
	svc, _ := newNavigationFixture(nil)

	nav, err := svc.Build(context.Background(), "admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.NavigationBadges{Announcements: 2, OpenComplaints: 4, PendingApplications: 5}, nav.Badges)

	keys := navKeys(nav.Sections)
	assert.Equal(t, 4, keys["admin-complaints"])
	assert.NotContains(t, keys, "deadlines")
	assert.NotContains(t, keys, "grades")
}

func TestNavigationFacultyLinks(t *testing.T) {
	sections := LinksFor(models.RoleFaculty, models.NavigationBadges{})
	keys := navKeys(sections)
	assert.Contains(t, keys, "evaluation-results")
	assert.NotContains(t, keys, "evaluations")
	for _, section := range sections {
		assert.NotEqual(t, "Administration", section.Title)
		assert.NotEqual(t, "Student Services", section.Title)
	}
}

func TestNavigationBadgesCachedPerUser(t *testing.T) {
	cache := newMemoryJSONCache()
	svc, stub := newNavigationFixture(cache)
	ctx := context.Background()

	_, err := svc.Badges(ctx, "stu", models.RoleStudent)
	require.NoError(t, err)
	stub.announcements = 9
	badges, err := svc.Badges(ctx, "stu", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, 2, badges.Announcements)
	assert.Equal(t, 1, stub.calls)

	other, err := svc.Badges(ctx, "stu2", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, 9, other.Announcements)
}

func TestNavigationCounterErrorsSurface(t *testing.T) {
	svc, stub := newNavigationFixture(nil)
	stub.err = errors.New("db down")

	_, err := svc.Build(context.Background(), "stu", models.RoleStudent)
	assert.Error(t, err)
}
