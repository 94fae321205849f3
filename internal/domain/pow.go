package domain

import (
	"time"

	"github.com/google/uuid"
)

// Default PoW tuning values (§11.2), overridable via config.
const (
	DefaultChallengeTTL      = 120 * time.Second
	DefaultPowSessionTTL     = 3600 * time.Second
	DefaultDifficultyBits    = 18
	DefaultChallengeBytes    = 32
	DefaultRateLimitMax      = 20
	DefaultRateLimitWindow   = time.Minute
)

// Challenge is a one-shot proof-of-work task.
type Challenge struct {
	ChallengeID     uuid.UUID
	ChallengeBytes  []byte
	DifficultyBits  uint8
	ExpiresAt       time.Time
	FingerprintHash [32]byte
	ClientIP        string
	CreatedAt       time.Time
}

// IsExpired reports whether the challenge has passed its expiry.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PowSession is proof that some challenge was solved.
type PowSession struct {
	PowSessionID    uuid.UUID
	ExpiresAt       time.Time
	FingerprintHash [32]byte
	ChallengeID     uuid.UUID
	CreatedAt       time.Time
}

// IsExpired reports whether the PoW session has passed its expiry.
func (p *PowSession) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// RateLimitBucket is a fixed-window request counter keyed by fingerprint.
type RateLimitBucket struct {
	FingerprintHash [32]byte
	WindowStartMs   int64
	RequestCount    int
}

// WindowStart floors now to the start of its fixed window of width window.
func WindowStart(now time.Time, window time.Duration) int64 {
	ms := now.UnixMilli()
	w := window.Milliseconds()
	if w <= 0 {
		return ms
	}
	return (ms / w) * w
}
