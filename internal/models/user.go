package models

import (
	"time"
)

// Role is the access level of a staff account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
	RoleStaff  Role = "staff"
)

// DefaultRole is assigned when signup does not name a role.
const DefaultRole = RoleDoctor

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleStaff:
		return true
	}
	return false
}

type User struct {
	ID        int64
	Username  string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthRecord holds the credential material of exactly one user.
type AuthRecord struct {
	ID             int64
	UserID         int64
	PasswordHash   string
	Salt           string
	RefreshToken   *string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser is the input for creating a User together with its AuthRecord.
type NewUser struct {
	Username     string
	PasswordHash string
	Salt         string
	Role         Role
}

// UserUpdate carries the admin-editable fields; nil means unchanged.
type UserUpdate struct {
	Role     *Role
	IsActive *bool
}
