package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxLoginFailures is the consecutive-failure threshold that trips a lockout.
const MaxLoginFailures = 5

// LockoutWindow is how long an account stays locked once tripped.
const LockoutWindow = 15 * time.Minute

// Credentials holds the sensitive, 1:1 authentication data for a user.
type Credentials struct {
	UserID          uuid.UUID
	PasswordHash    string
	TOTPSecret      string // base32, empty when not set up
	TOTPEnabled     bool
	LoginFailedCount int
	LastFailedAt    *time.Time
	LockedUntil     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsLocked reports whether the account is currently within its lockout window.
func (c *Credentials) IsLocked(now time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(now)
}

// RecordFailure increments the failure counter and, upon crossing
// maxFailures, trips a lockout lasting lockoutWindow starting now. It
// mutates c in place.
func (c *Credentials) RecordFailure(now time.Time, maxFailures int, lockoutWindow time.Duration) {
	c.LoginFailedCount++
	c.LastFailedAt = &now
	if c.LoginFailedCount >= maxFailures {
		until := now.Add(lockoutWindow)
		c.LockedUntil = &until
	}
}

// RecordSuccess resets the lockout state after a successful verification.
func (c *Credentials) RecordSuccess() {
	c.LoginFailedCount = 0
	c.LastFailedAt = nil
	c.LockedUntil = nil
}

// HasTwoFactor reports whether TOTP has been both configured and enabled.
func (c *Credentials) HasTwoFactor() bool {
	return c.TOTPEnabled && c.TOTPSecret != ""
}
