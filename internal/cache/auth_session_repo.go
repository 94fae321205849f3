package cache

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/domain"
)

// AuthSessionRepository decorates an underlying domain.AuthSessionRepository
// (Postgres, in practice) with a read-through/write-through SessionCache.
// Postgres remains the system of record: every write goes there first, and
// every read falls through on a cache miss or a cache-layer error.
type AuthSessionRepository struct {
	underlying domain.AuthSessionRepository
	cache      *SessionCache
}

// NewAuthSessionRepository wraps underlying with a cache-aside layer over
// cache. cache may be nil, in which case this behaves exactly like
// underlying.
func NewAuthSessionRepository(underlying domain.AuthSessionRepository, cache *SessionCache) *AuthSessionRepository {
	return &AuthSessionRepository{underlying: underlying, cache: cache}
}

func (r *AuthSessionRepository) Create(ctx domain.Context, s *domain.AuthSession) error {
	if err := r.underlying.Create(ctx, s); err != nil {
		return err
	}
	r.cache.SetAuthSession(ctx, s)
	return nil
}

func (r *AuthSessionRepository) Update(ctx domain.Context, s *domain.AuthSession) error {
	if err := r.underlying.Update(ctx, s); err != nil {
		return err
	}
	r.cache.SetAuthSession(ctx, s)
	return nil
}

// FindByID serves from cache only when the cached row's own fingerprint
// matches; a stale or mismatched cache entry falls through to underlying
// rather than ever fabricating ErrSessionFingerprintMismatch from cached
// data the caller did not ask about. A cache hit is trusted for expiry
// without re-checking Postgres's expires_at > now(): entries are written
// with the same TTL as the row itself, so an expired row can't linger
// here past its own deadline.
func (r *AuthSessionRepository) FindByID(ctx domain.Context, sessionID uuid.UUID, fingerprintHash [32]byte) (*domain.AuthSession, error) {
	if s, ok := r.cache.GetAuthSession(ctx, sessionID); ok {
		if s.FingerprintHash == fingerprintHash {
			return s, nil
		}
		slog.DebugContext(ctx, "auth session cache fingerprint mismatch, falling through", slog.String("session_id", sessionID.String()))
	}
	s, err := r.underlying.FindByID(ctx, sessionID, fingerprintHash)
	if err != nil {
		return nil, err
	}
	r.cache.SetAuthSession(ctx, s)
	return s, nil
}

func (r *AuthSessionRepository) FindByUserID(ctx domain.Context, userID uuid.UUID) ([]*domain.AuthSession, error) {
	return r.underlying.FindByUserID(ctx, userID)
}

func (r *AuthSessionRepository) Delete(ctx domain.Context, sessionID uuid.UUID) error {
	if err := r.underlying.Delete(ctx, sessionID); err != nil {
		return err
	}
	r.cache.DeleteAuthSession(ctx, sessionID)
	return nil
}

func (r *AuthSessionRepository) DeleteAllForUser(ctx domain.Context, userID uuid.UUID, exceptSessionID uuid.UUID) (int, error) {
	sessions, _ := r.underlying.FindByUserID(ctx, userID)
	n, err := r.underlying.DeleteAllForUser(ctx, userID, exceptSessionID)
	if err != nil {
		return n, err
	}
	for _, s := range sessions {
		if s.SessionID != exceptSessionID {
			r.cache.DeleteAuthSession(ctx, s.SessionID)
		}
	}
	return n, nil
}

func (r *AuthSessionRepository) CleanupExpired(ctx domain.Context) (int, error) {
	return r.underlying.CleanupExpired(ctx)
}
