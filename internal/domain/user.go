package domain

import (
	"time"
)

// User is an application login bound to exactly one tenant table.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Tenant       TenantID  `json:"tenant"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser creates a user with immutable pattern
func NewUser(username, passwordHash string, tenant TenantID, isAdmin bool) User {
	return User{
		Username:     username,
		PasswordHash: passwordHash,
		Tenant:       tenant,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
	}
}
