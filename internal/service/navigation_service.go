package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

const (
	navigationCachePrefix = "nav:"
	announcementWindow    = 7 * 24 * time.Hour
	deadlineWindow        = 7 * 24 * time.Hour
)

type announcementCounter interface {
	CountSince(ctx context.Context, actorID string, role models.UserRole, since time.Time) (int, error)
}

type pendingEvaluationCounter interface {
	CountPending(ctx context.Context, actorID string) (int, error)
}

type deadlineFeed interface {
	Upcoming(ctx context.Context, actorID string, role models.UserRole, limit int) ([]models.UpcomingDeadline, error)
}

type adminCounter interface {
	CountOpen(ctx context.Context) (int, error)
}

type applicationCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// NavigationCounters groups the badge sources.
type NavigationCounters struct {
	Announcements announcementCounter
	Evaluations   pendingEvaluationCounter
	Deadlines     deadlineFeed
	Complaints    adminCounter
	Applications  applicationCounter
}

type navLink struct {
	item  models.NavItem
	roles []models.UserRole
	badge func(models.NavigationBadges) int
}

type navSection struct {
	title string
	links []navLink
}

var (
	everyone    = []models.UserRole{models.RoleStudent, models.RoleFaculty, models.RoleAdmin}
	studentOnly = []models.UserRole{models.RoleStudent}
	adminOnly   = []models.UserRole{models.RoleAdmin}
	staff       = []models.UserRole{models.RoleFaculty, models.RoleAdmin}
	learners    = []models.UserRole{models.RoleStudent, models.RoleFaculty}
)

var navigationLayout = []navSection{
	{title: "Overview", links: []navLink{
		{item: models.NavItem{Key: "dashboard", Label: "Dashboard", Path: "/dashboard"}, roles: everyone},
		{item: models.NavItem{Key: "announcements", Label: "Announcements", Path: "/announcements"}, roles: everyone,
			badge: func(b models.NavigationBadges) int { return b.Announcements }},
		{item: models.NavItem{Key: "deadlines", Label: "Deadlines", Path: "/deadlines"}, roles: learners,
			badge: func(b models.NavigationBadges) int { return b.UpcomingDeadlines }},
	}},
	{title: "Learning", links: []navLink{
		{item: models.NavItem{Key: "courses", Label: "Courses", Path: "/courses"}, roles: everyone},
		{item: models.NavItem{Key: "materials", Label: "Study Materials", Path: "/materials"}, roles: learners},
		{item: models.NavItem{Key: "assignments", Label: "Assignments", Path: "/assignments"}, roles: learners},
		{item: models.NavItem{Key: "grades", Label: "Grades", Path: "/grades"}, roles: studentOnly},
		{item: models.NavItem{Key: "attendance", Label: "Attendance", Path: "/attendance"}, roles: everyone},
		{item: models.NavItem{Key: "discussions", Label: "Discussions", Path: "/discussions"}, roles: everyone},
		{item: models.NavItem{Key: "evaluations", Label: "Course Evaluations", Path: "/evaluations"}, roles: studentOnly,
			badge: func(b models.NavigationBadges) int { return b.PendingEvaluations }},
		{item: models.NavItem{Key: "evaluation-results", Label: "Evaluation Results", Path: "/evaluations/results"}, roles: staff},
	}},
	{title: "Student Services", links: []navLink{
		{item: models.NavItem{Key: "scholarships", Label: "Scholarships", Path: "/scholarships"}, roles: studentOnly},
		{item: models.NavItem{Key: "complaints", Label: "Complaints", Path: "/complaints"}, roles: studentOnly},
	}},
	{title: "Administration", links: []navLink{
		{item: models.NavItem{Key: "users", Label: "Users", Path: "/admin/users"}, roles: adminOnly},
		{item: models.NavItem{Key: "classes", Label: "Classes", Path: "/admin/classes"}, roles: adminOnly},
		{item: models.NavItem{Key: "tutors", Label: "Tutors", Path: "/admin/tutors"}, roles: adminOnly},
		{item: models.NavItem{Key: "enrollments", Label: "Enrollments", Path: "/admin/enrollments"}, roles: adminOnly},
		{item: models.NavItem{Key: "admin-complaints", Label: "Complaints", Path: "/admin/complaints"}, roles: adminOnly,
			badge: func(b models.NavigationBadges) int { return b.OpenComplaints }},
		{item: models.NavItem{Key: "admin-scholarships", Label: "Scholarships", Path: "/admin/scholarships"}, roles: adminOnly,
			badge: func(b models.NavigationBadges) int { return b.PendingApplications }},
		{item: models.NavItem{Key: "reports", Label: "Reports", Path: "/admin/reports"}, roles: adminOnly},
		{item: models.NavItem{Key: "activity", Label: "Activity Log", Path: "/admin/activity"}, roles: adminOnly},
	}},
}

// NavigationService renders the role-gated sidebar with badge counts.
type NavigationService struct {
	counters NavigationCounters
	cache    jsonCache
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewNavigationService constructs NavigationService. Badges are cached per
// user for ttl.
func NewNavigationService(counters NavigationCounters, cache jsonCache, ttl time.Duration, logger *zap.Logger) *NavigationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &NavigationService{counters: counters, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Build returns the link set and badges for the actor.
func (s *NavigationService) Build(ctx context.Context, actorID string, role models.UserRole) (*models.Navigation, error) {
	badges, err := s.Badges(ctx, actorID, role)
	if err != nil {
		return nil, err
	}
	return &models.Navigation{Role: role, Sections: LinksFor(role, *badges), Badges: *badges}, nil
}

// LinksFor filters the layout down to the sections and links role may see.
func LinksFor(role models.UserRole, badges models.NavigationBadges) []models.NavSection {
	sections := make([]models.NavSection, 0, len(navigationLayout))
	for _, section := range navigationLayout {
		items := make([]models.NavItem, 0, len(section.links))
		for _, link := range section.links {
			if !hasRole(link.roles, role) {
				continue
			}
			item := link.item
			if link.badge != nil {
				item.Badge = link.badge(badges)
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			sections = append(sections, models.NavSection{Title: section.title, Items: items})
		}
	}
	return sections
}

// Badges computes the counters relevant to role, reading through the cache.
func (s *NavigationService) Badges(ctx context.Context, actorID string, role models.UserRole) (*models.NavigationBadges, error) {
	key := navigationCachePrefix + string(role) + ":" + actorID
	if s.cache != nil {
		var cached models.NavigationBadges
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	var badges models.NavigationBadges
	var err error
	now := s.now().UTC()
	if badges.Announcements, err = s.counters.Announcements.CountSince(ctx, actorID, role, now.Add(-announcementWindow)); err != nil {
		return nil, err
	}
	switch role {
	case models.RoleStudent:
		if badges.PendingEvaluations, err = s.counters.Evaluations.CountPending(ctx, actorID); err != nil {
			return nil, err
		}
		if badges.UpcomingDeadlines, err = s.countDeadlines(ctx, actorID, role, now); err != nil {
			return nil, err
		}
	case models.RoleFaculty:
		if badges.UpcomingDeadlines, err = s.countDeadlines(ctx, actorID, role, now); err != nil {
			return nil, err
		}
	case models.RoleAdmin:
		if badges.OpenComplaints, err = s.counters.Complaints.CountOpen(ctx); err != nil {
			return nil, err
		}
		if badges.PendingApplications, err = s.counters.Applications.CountPending(ctx); err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, badges, s.ttl); err != nil {
			s.logger.Warn("failed to cache navigation badges", zap.String("key", key), zap.Error(err))
		}
	}
	return &badges, nil
}

func (s *NavigationService) countDeadlines(ctx context.Context, actorID string, role models.UserRole, now time.Time) (int, error) {
	items, err := s.counters.Deadlines.Upcoming(ctx, actorID, role, defaultDeadlineLimit)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(deadlineWindow)
	count := 0
	for _, item := range items {
		if item.DueDate.Before(cutoff) && !item.IsSubmitted {
			count++
		}
	}
	return count, nil
}

func hasRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
