package models

import "time"

// AnnouncementAudience defines who can see an announcement.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll      AnnouncementAudience = "all"
	AnnouncementAudienceStudents AnnouncementAudience = "students"
	AnnouncementAudienceFaculty  AnnouncementAudience = "faculty"
	AnnouncementAudienceCourse   AnnouncementAudience = "course"
)

// AnnouncementPriority defines ordering for announcements.
type AnnouncementPriority string

const (
	AnnouncementPriorityLow    AnnouncementPriority = "low"
	AnnouncementPriorityNormal AnnouncementPriority = "normal"
	AnnouncementPriorityHigh   AnnouncementPriority = "high"
)

// Announcement represents a persisted announcement row.
type Announcement struct {
	ID          string               `db:"id" json:"id"`
	Title       string               `db:"title" json:"title"`
	Content     string               `db:"content" json:"content"`
	Audience    AnnouncementAudience `db:"audience" json:"audience"`
	CourseID    *string              `db:"course_id" json:"course_id,omitempty"`
	Priority    AnnouncementPriority `db:"priority" json:"priority"`
	IsPinned    bool                 `db:"is_pinned" json:"is_pinned"`
	PublishedAt time.Time            `db:"published_at" json:"published_at"`
	ExpiresAt   *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CreatedBy   string               `db:"created_by" json:"created_by"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter allows listing announcements.
type AnnouncementFilter struct {
	Audiences []AnnouncementAudience
	CourseIDs []string
	Since     *time.Time
	All       bool
	Page      int
	PageSize  int
}

// CreateAnnouncementRequest payload for publishing announcements.
type CreateAnnouncementRequest struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Content     string               `json:"content" validate:"required"`
	Audience    AnnouncementAudience `json:"audience" validate:"required,announcement_audience"`
	CourseID    *string              `json:"course_id" validate:"omitempty,uuid4"`
	Priority    AnnouncementPriority `json:"priority" validate:"omitempty,announcement_priority"`
	IsPinned    bool                 `json:"is_pinned"`
	PublishedAt *time.Time           `json:"published_at"`
	ExpiresAt   *time.Time           `json:"expires_at"`
}

// UpdateAnnouncementRequest patches announcement fields.
type UpdateAnnouncementRequest struct {
	Title     *string               `json:"title" validate:"omitempty,max=200"`
	Content   *string               `json:"content"`
	Priority  *AnnouncementPriority `json:"priority" validate:"omitempty,announcement_priority"`
	IsPinned  *bool                 `json:"is_pinned"`
	ExpiresAt *time.Time            `json:"expires_at"`
}
