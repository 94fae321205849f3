package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wardengate/authcore/internal/cache"
	"github.com/wardengate/authcore/internal/domain"
)

// fakeAuthSessionRepo is an in-memory stand-in for the underlying
// Postgres-backed domain.AuthSessionRepository, letting these tests
// exercise the cache-aside decorator without a live database.
type fakeAuthSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.AuthSession
	getCalls int
}

func newFakeAuthSessionRepo() *fakeAuthSessionRepo {
	return &fakeAuthSessionRepo{sessions: make(map[uuid.UUID]*domain.AuthSession)}
}

func (f *fakeAuthSessionRepo) Create(_ domain.Context, s *domain.AuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeAuthSessionRepo) Update(_ domain.Context, s *domain.AuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeAuthSessionRepo) FindByID(_ domain.Context, sessionID uuid.UUID, fingerprintHash [32]byte) (*domain.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.FingerprintHash != fingerprintHash {
		return nil, domain.ErrSessionFingerprintMismatch
	}
	return s, nil
}

func (f *fakeAuthSessionRepo) FindByUserID(_ domain.Context, userID uuid.UUID) ([]*domain.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AuthSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAuthSessionRepo) Delete(_ domain.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeAuthSessionRepo) DeleteAllForUser(_ domain.Context, userID uuid.UUID, exceptSessionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, s := range f.sessions {
		if s.UserID == userID && id != exceptSessionID {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeAuthSessionRepo) CleanupExpired(_ domain.Context) (int, error) {
	return 0, nil
}

func TestAuthSessionRepository_FindByID_PopulatesCacheOnMiss(t *testing.T) {
	underlying := newFakeAuthSessionRepo()
	sc, cleanup := newTestCache(t)
	defer cleanup()
	repo := cache.NewAuthSessionRepository(underlying, sc)

	var fp [32]byte
	fp[0] = 1
	s := &domain.AuthSession{SessionID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour), FingerprintHash: fp}
	require.NoError(t, underlying.Create(context.Background(), s))

	got, err := repo.FindByID(context.Background(), s.SessionID, fp)
	require.NoError(t, err)
	require.Equal(t, s.SessionID, got.SessionID)
	require.Equal(t, 1, underlying.getCalls)

	// Second lookup should be served from cache, not hit underlying again.
	got2, err := repo.FindByID(context.Background(), s.SessionID, fp)
	require.NoError(t, err)
	require.Equal(t, s.SessionID, got2.SessionID)
	require.Equal(t, 1, underlying.getCalls)
}

func TestAuthSessionRepository_FindByID_FingerprintMismatchFallsThrough(t *testing.T) {
	underlying := newFakeAuthSessionRepo()
	sc, cleanup := newTestCache(t)
	defer cleanup()
	repo := cache.NewAuthSessionRepository(underlying, sc)

	var fp [32]byte
	fp[0] = 1
	s := &domain.AuthSession{SessionID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour), FingerprintHash: fp}
	require.NoError(t, underlying.Create(context.Background(), s))
	_, err := repo.FindByID(context.Background(), s.SessionID, fp)
	require.NoError(t, err)

	var otherFP [32]byte
	otherFP[0] = 2
	_, err = repo.FindByID(context.Background(), s.SessionID, otherFP)
	require.ErrorIs(t, err, domain.ErrSessionFingerprintMismatch)
	require.Equal(t, 2, underlying.getCalls)
}

func TestAuthSessionRepository_Delete_InvalidatesCache(t *testing.T) {
	underlying := newFakeAuthSessionRepo()
	sc, cleanup := newTestCache(t)
	defer cleanup()
	repo := cache.NewAuthSessionRepository(underlying, sc)

	var fp [32]byte
	s := &domain.AuthSession{SessionID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour), FingerprintHash: fp}
	require.NoError(t, repo.Create(context.Background(), s))

	require.NoError(t, repo.Delete(context.Background(), s.SessionID))

	_, ok := sc.GetAuthSession(context.Background(), s.SessionID)
	require.False(t, ok)

	_, err := repo.FindByID(context.Background(), s.SessionID, fp)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthSessionRepository_NilCacheBehavesAsPassthrough(t *testing.T) {
	underlying := newFakeAuthSessionRepo()
	repo := cache.NewAuthSessionRepository(underlying, nil)

	var fp [32]byte
	s := &domain.AuthSession{SessionID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour), FingerprintHash: fp}
	require.NoError(t, repo.Create(context.Background(), s))

	got, err := repo.FindByID(context.Background(), s.SessionID, fp)
	require.NoError(t, err)
	require.Equal(t, s.SessionID, got.SessionID)
}
