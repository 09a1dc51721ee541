package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RequestMeta is the client fingerprint stored with sessions and audit rows.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LoginRequest holds credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest ends one session, or every session of the caller.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required_without=AllDevices"`
	AllDevices   bool   `json:"all_devices"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,nefield=OldPassword"`
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Session is a token pair plus the profile it was issued for.
type Session struct {
	TokenPair
	User UserInfo `json:"user"`
}

// UserInfo is the public profile of the signed-in user.
type UserInfo struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	Role       UserRole `json:"role"`
	StudentNo  *string  `json:"student_no,omitempty"`
	Department *string  `json:"department,omitempty"`
}

// NewUserInfo projects a stored user onto its public profile.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		StudentNo:  u.StudentNo,
		Department: u.Department,
	}
}

// RefreshToken is a persisted refresh session. Only the SHA-256 of the
// token is stored; ReplacedBy links a rotated token to its successor.
type RefreshToken struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	TokenHash  string     `db:"token_hash"`
	ExpiresAt  time.Time  `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	Revoked    bool       `db:"revoked"`
	RevokedAt  *time.Time `db:"revoked_at"`
	ReplacedBy *string    `db:"replaced_by"`
	IPAddress  string     `db:"ip_address"`
	UserAgent  string     `db:"user_agent"`
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// JWTClaims is the access token payload. A parsed instance is attached to
// every authenticated request and is the only source of caller identity.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
