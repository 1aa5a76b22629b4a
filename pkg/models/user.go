package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles understood by the authorization middleware.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	APIKey     string    `db:"api_key" json:"-"`
	Role       string    `db:"role" json:"role"`
	IsApproved bool      `db:"is_approved" json:"is_approved"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user may operate the pipeline and manage users.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserCreate represents data for provisioning a new user
type UserCreate struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role"`
}

// UserUpdate represents a partial update applied by an administrator
type UserUpdate struct {
	Role       *string `json:"role,omitempty"`
	IsApproved *bool   `json:"is_approved,omitempty"`
}
