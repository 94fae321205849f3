package domain

import (
	"time"

	"github.com/google/uuid"
)

// Default auth session time-to-live values (§11.2 tuning knobs).
const (
	DefaultSessionTTLShort = 12 * time.Hour
	DefaultSessionTTLLong  = 7 * 24 * time.Hour
)

// Fingerprint identifies the client device binding for a session: a
// SHA-256 hash of the User-Agent header, plus the observed IP and raw
// User-Agent string for audit purposes.
type Fingerprint struct {
	Hash      [32]byte
	IP        string
	UserAgent string
}

// AuthSession is a server-side session record created at sign-in.
type AuthSession struct {
	SessionID       uuid.UUID
	UserID          uuid.UUID
	PublicID        string
	Role            Role
	ExpiresAt       time.Time
	RememberMe      bool
	FingerprintHash [32]byte
	ClientIP        string
	UserAgent       string
	CreatedAt       time.Time
	LastActivityAt  time.Time
}

// IsExpired reports whether the session has passed its expiry.
func (s *AuthSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Touch updates last-activity and, for remember-me sessions nearing their
// half-life, slides the expiry forward to a fresh ttlLong. It reports
// whether the expiry was changed, so callers can decide whether a
// persistence write is needed.
func (s *AuthSession) Touch(now time.Time, ttlLong time.Duration) (extended bool) {
	s.LastActivityAt = now
	if !s.RememberMe {
		return false
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < ttlLong/2 {
		s.ExpiresAt = now.Add(ttlLong)
		return true
	}
	return false
}
