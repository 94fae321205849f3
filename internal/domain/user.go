package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the privilege level of a user account. Higher roles require
// two-factor authentication to be enabled (see Credentials.RequiresTwoFactor).
type Role int

const (
	RoleUser Role = iota
	RoleModerator
	RoleAdmin
	RoleSuperAdmin
)

// String renders the role for logging and JSON responses.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super_admin"
	default:
		return "unknown"
	}
}

// RequiresTwoFactor reports whether the role mandates TOTP regardless of
// the per-account Credentials.TOTPEnabled flag.
func (r Role) RequiresTwoFactor() bool {
	return r >= RoleModerator
}

// RoleFromInt maps a persisted integer back to a Role, returning ErrInternal
// for values outside the known range instead of panicking. A newer schema
// writing a role this binary does not understand must degrade safely.
func RoleFromInt(v int) (Role, error) {
	switch Role(v) {
	case RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin:
		return Role(v), nil
	default:
		return 0, ErrInternal
	}
}

// Status is the lifecycle state of a user account.
type Status int

const (
	StatusActive Status = iota
	StatusDisabled
	StatusMemorial
)

// String renders the status for logging and JSON responses.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDisabled:
		return "disabled"
	case StatusMemorial:
		return "memorial"
	default:
		return "unknown"
	}
}

// CanLogin reports whether accounts in this status may authenticate.
// Memorial is terminal: it can never transition back to Active.
func (s Status) CanLogin() bool {
	return s == StatusActive
}

// StatusFromInt maps a persisted integer back to a Status, returning
// ErrInternal for unrecognized values rather than panicking.
func StatusFromInt(v int) (Status, error) {
	switch Status(v) {
	case StatusActive, StatusDisabled, StatusMemorial:
		return Status(v), nil
	default:
		return 0, ErrInternal
	}
}

// User is the public account identity.
type User struct {
	UserID        uuid.UUID
	PublicID      string
	UserName      string
	CanonicalName string
	Role          Role
	Status        Status
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
