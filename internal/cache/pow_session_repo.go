package cache

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/domain"
)

// PowSessionRepository decorates an underlying domain.PowSessionRepository
// the same way AuthSessionRepository does, since pow_sessions are looked
// up on the same hot path (every protected request) as auth sessions.
type PowSessionRepository struct {
	underlying domain.PowSessionRepository
	cache      *SessionCache
}

// NewPowSessionRepository wraps underlying with a cache-aside layer over
// cache. cache may be nil.
func NewPowSessionRepository(underlying domain.PowSessionRepository, cache *SessionCache) *PowSessionRepository {
	return &PowSessionRepository{underlying: underlying, cache: cache}
}

func (r *PowSessionRepository) Create(ctx domain.Context, s *domain.PowSession) error {
	if err := r.underlying.Create(ctx, s); err != nil {
		return err
	}
	r.cache.SetPowSession(ctx, s)
	return nil
}

// Get trusts a cache hit's expiry without re-checking Postgres's
// expires_at > now(), same rationale as AuthSessionRepository.FindByID:
// the cache entry's own TTL is set from the row's expiry, so it can't
// outlive it.
func (r *PowSessionRepository) Get(ctx domain.Context, powSessionID uuid.UUID, fingerprintHash [32]byte) (*domain.PowSession, error) {
	if s, ok := r.cache.GetPowSession(ctx, powSessionID); ok {
		if s.FingerprintHash == fingerprintHash {
			return s, nil
		}
		slog.DebugContext(ctx, "pow session cache fingerprint mismatch, falling through", slog.String("pow_session_id", powSessionID.String()))
	}
	s, err := r.underlying.Get(ctx, powSessionID, fingerprintHash)
	if err != nil {
		return nil, err
	}
	r.cache.SetPowSession(ctx, s)
	return s, nil
}

func (r *PowSessionRepository) Delete(ctx domain.Context, powSessionID uuid.UUID) error {
	if err := r.underlying.Delete(ctx, powSessionID); err != nil {
		return err
	}
	r.cache.DeletePowSession(ctx, powSessionID)
	return nil
}

func (r *PowSessionRepository) CleanupExpired(ctx domain.Context) (int, error) {
	return r.underlying.CleanupExpired(ctx)
}
