package models

import "time"

// Activity actions recorded outside of the generic route audit.
const (
	ActivityLogin           = "LOGIN"
	ActivityLoginFailed     = "LOGIN_FAILED"
	ActivityLogout          = "LOGOUT"
	ActivitySessionsRevoked = "SESSIONS_REVOKED"
	ActivityPasswordChange  = "PASSWORD_CHANGE"
	ActivityUserCreate      = "USER_CREATE"
	ActivityUserUpdate      = "USER_UPDATE"
	ActivityUserDeactivate  = "USER_DEACTIVATE"
)

// ActivityLog represents a row of the activity_logs trail.
type ActivityLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Metadata   []byte    `db:"metadata" json:"metadata,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ActivityLogFilter narrows the admin activity listing.
type ActivityLogFilter struct {
	UserID   string
	Resource string
	Action   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
