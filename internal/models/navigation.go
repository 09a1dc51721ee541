package models

// NavItem is one role-gated sidebar link.
type NavItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
	Badge int    `json:"badge,omitempty"`
}

// NavSection groups links under a heading.
type NavSection struct {
	Title string    `json:"title"`
	Items []NavItem `json:"items"`
}

// Navigation is the link set for the caller's role.
type Navigation struct {
	Role     UserRole         `json:"role"`
	Sections []NavSection     `json:"sections"`
	Badges   NavigationBadges `json:"badges"`
}

// NavigationBadges holds per-link counters.
type NavigationBadges struct {
	Announcements       int `json:"announcements"`
	PendingEvaluations  int `json:"pending_evaluations"`
	UpcomingDeadlines   int `json:"upcoming_deadlines"`
	OpenComplaints      int `json:"open_complaints"`
	PendingApplications int `json:"pending_applications"`
}
