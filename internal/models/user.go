package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleFaculty UserRole = "faculty"
	RoleStudent UserRole = "student"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	StudentNo    *string    `db:"student_no" json:"student_no,omitempty"`
	Department   *string    `db:"department" json:"department,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateUserRequest is the admin payload for provisioning accounts.
type CreateUserRequest struct {
	Email      string   `json:"email" validate:"required,email"`
	FullName   string   `json:"full_name" validate:"required,min=2"`
	Password   string   `json:"password" validate:"required,min=8"`
	Role       UserRole `json:"role" validate:"required,oneof=student faculty admin"`
	StudentNo  *string  `json:"student_no"`
	Department *string  `json:"department"`
}

// UpdateUserRequest patches mutable profile fields.
type UpdateUserRequest struct {
	FullName   *string   `json:"full_name" validate:"omitempty,min=2"`
	Role       *UserRole `json:"role" validate:"omitempty,oneof=student faculty admin"`
	StudentNo  *string   `json:"student_no"`
	Department *string   `json:"department"`
	Active     *bool     `json:"active"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
