package domain

import (
	"context"

	"github.com/google/uuid"
)

// Context is a re-export so call sites in this package's descendants can
// spell context.Context without importing the stdlib package directly,
// matching the convention already used by the donor codebase's entities.
type Context = context.Context

//go:generate mockery --name=UserRepository --with-expecter --filename=user_repository_mock.go
type UserRepository interface {
	Create(ctx Context, u *User) error
	Update(ctx Context, u *User) error
	FindByID(ctx Context, userID uuid.UUID) (*User, error)
	FindByPublicID(ctx Context, publicID string) (*User, error)
	FindByUserName(ctx Context, canonicalName string) (*User, error)
	ExistsByUserName(ctx Context, canonicalName string) (bool, error)
}

//go:generate mockery --name=CredentialsRepository --with-expecter --filename=credentials_repository_mock.go
type CredentialsRepository interface {
	Create(ctx Context, c *Credentials) error
	Update(ctx Context, c *Credentials) error
	FindByUserID(ctx Context, userID uuid.UUID) (*Credentials, error)
}

//go:generate mockery --name=AuthSessionRepository --with-expecter --filename=auth_session_repository_mock.go
type AuthSessionRepository interface {
	Create(ctx Context, s *AuthSession) error
	Update(ctx Context, s *AuthSession) error
	// FindByID enforces the fingerprint constraint itself: a row whose
	// stored fingerprint hash differs from fingerprintHash must surface
	// ErrSessionFingerprintMismatch, never a silent not-found.
	FindByID(ctx Context, sessionID uuid.UUID, fingerprintHash [32]byte) (*AuthSession, error)
	FindByUserID(ctx Context, userID uuid.UUID) ([]*AuthSession, error)
	Delete(ctx Context, sessionID uuid.UUID) error
	// DeleteAllForUser removes every session for userID except the one
	// named by exceptSessionID (the zero UUID deletes all of them) and
	// returns the number of rows removed.
	DeleteAllForUser(ctx Context, userID uuid.UUID, exceptSessionID uuid.UUID) (int, error)
	CleanupExpired(ctx Context) (int, error)
}

//go:generate mockery --name=ChallengeRepository --with-expecter --filename=challenge_repository_mock.go
type ChallengeRepository interface {
	Create(ctx Context, c *Challenge) error
	// Consume atomically deletes and returns the challenge row, or
	// ErrChallengeExpired when a row exists but has already expired, or
	// ErrChallengeNotFound when no row exists at all.
	Consume(ctx Context, challengeID uuid.UUID) (*Challenge, error)
	CleanupExpired(ctx Context) (int, error)
}

//go:generate mockery --name=PowSessionRepository --with-expecter --filename=pow_session_repository_mock.go
type PowSessionRepository interface {
	Create(ctx Context, s *PowSession) error
	Get(ctx Context, powSessionID uuid.UUID, fingerprintHash [32]byte) (*PowSession, error)
	Delete(ctx Context, powSessionID uuid.UUID) error
	CleanupExpired(ctx Context) (int, error)
}

//go:generate mockery --name=RateLimitRepository --with-expecter --filename=rate_limit_repository_mock.go
type RateLimitRepository interface {
	// Check atomically increments the counter for the current window and
	// returns the resulting count alongside whether it is within max.
	Check(ctx Context, fingerprintHash [32]byte, max int, window int64) (count int, allowed bool, err error)
}

//go:generate mockery --name=UserDetailsRepository --with-expecter --filename=user_details_repository_mock.go
type UserDetailsRepository interface {
	Create(ctx Context, d *UserDetails) error
	Update(ctx Context, d *UserDetails) error
	FindByUserID(ctx Context, userID uuid.UUID) (*UserDetails, error)
}
