// Package cache implements the optional Redis read-through/write-through
// layer in front of session and PoW-session lookups (§11.3). Redis is
// never the source of truth: every miss or error falls through to the
// wrapped repository, mirroring the donor's token-bucket limiter's
// fail-open-on-Redis-error idiom, now protecting session lookups instead
// of provider rate limits.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wardengate/authcore/internal/domain"
)

const (
	authSessionKeyPrefix = "authsess:"
	powSessionKeyPrefix  = "powsess:"
)

// SessionCache wraps a redis.Client with typed get/set/delete helpers for
// AuthSession and PowSession rows. A nil *SessionCache (or nil client) is
// a valid no-op cache: every method degrades to a cache miss.
type SessionCache struct {
	redis *redis.Client
}

// NewSessionCache builds a SessionCache over rdb. rdb may be nil, in which
// case the cache is permanently disabled.
func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{redis: rdb}
}

func (c *SessionCache) enabled() bool {
	return c != nil && c.redis != nil
}

type cachedAuthSession struct {
	SessionID       uuid.UUID `json:"session_id"`
	UserID          uuid.UUID `json:"user_id"`
	PublicID        string    `json:"public_id"`
	Role            int       `json:"role"`
	ExpiresAt       time.Time `json:"expires_at"`
	RememberMe      bool      `json:"remember_me"`
	FingerprintHash []byte    `json:"fingerprint_hash"`
	ClientIP        string    `json:"client_ip"`
	UserAgent       string    `json:"user_agent"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

func toCachedAuthSession(s *domain.AuthSession) cachedAuthSession {
	return cachedAuthSession{
		SessionID: s.SessionID, UserID: s.UserID, PublicID: s.PublicID, Role: int(s.Role),
		ExpiresAt: s.ExpiresAt, RememberMe: s.RememberMe, FingerprintHash: s.FingerprintHash[:],
		ClientIP: s.ClientIP, UserAgent: s.UserAgent, CreatedAt: s.CreatedAt, LastActivityAt: s.LastActivityAt,
	}
}

func (c cachedAuthSession) toDomain() (*domain.AuthSession, error) {
	role, err := domain.RoleFromInt(c.Role)
	if err != nil {
		return nil, err
	}
	s := &domain.AuthSession{
		SessionID: c.SessionID, UserID: c.UserID, PublicID: c.PublicID, Role: role,
		ExpiresAt: c.ExpiresAt, RememberMe: c.RememberMe,
		ClientIP: c.ClientIP, UserAgent: c.UserAgent, CreatedAt: c.CreatedAt, LastActivityAt: c.LastActivityAt,
	}
	copy(s.FingerprintHash[:], c.FingerprintHash)
	return s, nil
}

// GetAuthSession returns the cached session, or (nil, false) on any miss
// or error. Errors are logged, never surfaced: a cache failure must never
// block a lookup that can fall through to Postgres.
func (c *SessionCache) GetAuthSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuthSession, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, authSessionKeyPrefix+sessionID.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.WarnContext(ctx, "session cache get failed", slog.Any("error", err))
		}
		return nil, false
	}
	var cached cachedAuthSession
	if err := json.Unmarshal(raw, &cached); err != nil {
		slog.WarnContext(ctx, "session cache corrupt entry", slog.Any("error", err))
		return nil, false
	}
	s, err := cached.toDomain()
	if err != nil {
		return nil, false
	}
	return s, true
}

// SetAuthSession writes s into the cache with a TTL matching its
// remaining lifetime. Failures are logged, not returned: the write-through
// cache is strictly best-effort.
func (c *SessionCache) SetAuthSession(ctx context.Context, s *domain.AuthSession) {
	if !c.enabled() {
		return
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(toCachedAuthSession(s))
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, authSessionKeyPrefix+s.SessionID.String(), raw, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "session cache set failed", slog.Any("error", err))
	}
}

// DeleteAuthSession removes the cached entry for sessionID, if any.
func (c *SessionCache) DeleteAuthSession(ctx context.Context, sessionID uuid.UUID) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Del(ctx, authSessionKeyPrefix+sessionID.String()).Err(); err != nil {
		slog.WarnContext(ctx, "session cache delete failed", slog.Any("error", err))
	}
}

type cachedPowSession struct {
	PowSessionID    uuid.UUID `json:"pow_session_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	FingerprintHash []byte    `json:"fingerprint_hash"`
	ChallengeID     uuid.UUID `json:"challenge_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func toCachedPowSession(s *domain.PowSession) cachedPowSession {
	return cachedPowSession{
		PowSessionID: s.PowSessionID, ExpiresAt: s.ExpiresAt,
		FingerprintHash: s.FingerprintHash[:], ChallengeID: s.ChallengeID, CreatedAt: s.CreatedAt,
	}
}

func (c cachedPowSession) toDomain() *domain.PowSession {
	s := &domain.PowSession{
		PowSessionID: c.PowSessionID, ExpiresAt: c.ExpiresAt, ChallengeID: c.ChallengeID, CreatedAt: c.CreatedAt,
	}
	copy(s.FingerprintHash[:], c.FingerprintHash)
	return s
}

// GetPowSession mirrors GetAuthSession for PowSession rows.
func (c *SessionCache) GetPowSession(ctx context.Context, powSessionID uuid.UUID) (*domain.PowSession, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, powSessionKeyPrefix+powSessionID.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.WarnContext(ctx, "pow session cache get failed", slog.Any("error", err))
		}
		return nil, false
	}
	var cached cachedPowSession
	if err := json.Unmarshal(raw, &cached); err != nil {
		slog.WarnContext(ctx, "pow session cache corrupt entry", slog.Any("error", err))
		return nil, false
	}
	return cached.toDomain(), true
}

// SetPowSession mirrors SetAuthSession for PowSession rows.
func (c *SessionCache) SetPowSession(ctx context.Context, s *domain.PowSession) {
	if !c.enabled() {
		return
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(toCachedPowSession(s))
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, powSessionKeyPrefix+s.PowSessionID.String(), raw, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "pow session cache set failed", slog.Any("error", err))
	}
}

// DeletePowSession removes the cached entry for powSessionID, if any.
func (c *SessionCache) DeletePowSession(ctx context.Context, powSessionID uuid.UUID) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Del(ctx, powSessionKeyPrefix+powSessionID.String()).Err(); err != nil {
		slog.WarnContext(ctx, "pow session cache delete failed", slog.Any("error", err))
	}
}
