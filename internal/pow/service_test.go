package pow

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardengate/authcore/internal/cryptoutil"
	"github.com/wardengate/authcore/internal/domain"
)

type fakeChallengeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Challenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{rows: map[uuid.UUID]*domain.Challenge{}}
}

func (f *fakeChallengeRepo) Create(_ context.Context, c *domain.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.rows[c.ChallengeID] = &cp
	return nil
}

func (f *fakeChallengeRepo) Consume(_ context.Context, id uuid.UUID) (*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	delete(f.rows, id)
	if c.IsExpired(time.Now()) {
		return nil, domain.ErrChallengeExpired
	}
	return c, nil
}

func (f *fakeChallengeRepo) CleanupExpired(_ context.Context) (int, error) { return 0, nil }

type fakePowSessionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.PowSession
}

func newFakePowSessionRepo() *fakePowSessionRepo {
	return &fakePowSessionRepo{rows: map[uuid.UUID]*domain.PowSession{}}
}

func (f *fakePowSessionRepo) Create(_ context.Context, s *domain.PowSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.rows[s.PowSessionID] = &cp
	return nil
}

func (f *fakePowSessionRepo) Get(_ context.Context, id uuid.UUID, fpHash [32]byte) (*domain.PowSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || s.IsExpired(time.Now()) {
		return nil, domain.ErrNotFound
	}
	if s.FingerprintHash != fpHash {
		return nil, domain.ErrSessionFingerprintMismatch
	}
	return s, nil
}

func (f *fakePowSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakePowSessionRepo) CleanupExpired(_ context.Context) (int, error) { return 0, nil }

type fakeRateLimitRepo struct {
	mu      sync.Mutex
	buckets map[[32]byte]map[int64]int
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{buckets: map[[32]byte]map[int64]int{}}
}

func (f *fakeRateLimitRepo) Check(_ context.Context, fpHash [32]byte, max int, window int64) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buckets[fpHash] == nil {
		f.buckets[fpHash] = map[int64]int{}
	}
	f.buckets[fpHash][window]++
	count := f.buckets[fpHash][window]
	return count, count <= max, nil
}

func testFingerprint(ua string) domain.Fingerprint {
	return domain.Fingerprint{Hash: cryptoutil.SHA256([]byte(ua)), IP: "127.0.0.1", UserAgent: ua}
}

func solveNonce(t *testing.T, challengeBytes []byte, difficulty uint8) uint32 {
	t.Helper()
	for n := uint32(0); ; n++ {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, n)
		h := cryptoutil.SHA256(append(append([]byte{}, challengeBytes...), b...))
		if CountLeadingZeroBits(h[:]) >= int(difficulty) {
			return n
		}
		if n > 2_000_000 {
			t.Fatal("failed to find a nonce within bound")
		}
	}
}

func newTestService(t *testing.T, difficulty uint8) (*Service, *fakeChallengeRepo, *fakePowSessionRepo) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DifficultyBits = difficulty
	cfg.RateLimitMax = 1000
	challenges := newFakeChallengeRepo()
	sessions := newFakePowSessionRepo()
	rl := newFakeRateLimitRepo()
	signer := NewTokenSigner([]byte("test-secret-0123456789abcdef0123"))
	return NewService(cfg, challenges, sessions, rl, signer), challenges, sessions
}

func TestService_IssueThenSolveThenCheck(t *testing.T) {
	svc, challenges, _ := newTestService(t, 8)
	ctx := context.Background()
	fp := testFingerprint("agent-a")

	issued, err := svc.IssueChallenge(ctx, fp)
	require.NoError(t, err)

	raw, err := cryptoutil.DecodeStd(issued.ChallengeB64)
	require.NoError(t, err)
	nonce := solveNonce(t, raw, issued.DifficultyBits)

	token, err := svc.SubmitSolution(ctx, SubmitInput{ChallengeID: issued.ChallengeID, Nonce: nonce}, fp)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	ok, err := svc.Check(ctx, token, fp)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = challenges.Consume(ctx, issued.ChallengeID)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestService_DoubleSubmitFails(t *testing.T) {
	svc, _, _ := newTestService(t, 4)
	ctx := context.Background()
	fp := testFingerprint("agent-b")

	issued, err := svc.IssueChallenge(ctx, fp)
	require.NoError(t, err)
	raw, err := cryptoutil.DecodeStd(issued.ChallengeB64)
	require.NoError(t, err)
	nonce := solveNonce(t, raw, issued.DifficultyBits)

	_, err = svc.SubmitSolution(ctx, SubmitInput{ChallengeID: issued.ChallengeID, Nonce: nonce}, fp)
	require.NoError(t, err)

	_, err = svc.SubmitSolution(ctx, SubmitInput{ChallengeID: issued.ChallengeID, Nonce: nonce}, fp)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestService_InvalidNonceRejected(t *testing.T) {
	svc, _, _ := newTestService(t, 24)
	ctx := context.Background()
	fp := testFingerprint("agent-c")

	issued, err := svc.IssueChallenge(ctx, fp)
	require.NoError(t, err)

	_, err = svc.SubmitSolution(ctx, SubmitInput{ChallengeID: issued.ChallengeID, Nonce: 0}, fp)
	assert.ErrorIs(t, err, domain.ErrInvalidNonce)
}

func TestService_RateLimitExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitMax = 1
	challenges := newFakeChallengeRepo()
	sessions := newFakePowSessionRepo()
	rl := newFakeRateLimitRepo()
	signer := NewTokenSigner([]byte("secret"))
	svc := NewService(cfg, challenges, sessions, rl, signer)
	ctx := context.Background()
	fp := testFingerprint("agent-d")

	_, err := svc.IssueChallenge(ctx, fp)
	require.NoError(t, err)
	_, err = svc.IssueChallenge(ctx, fp)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestService_CheckFingerprintMismatch(t *testing.T) {
	svc, _, _ := newTestService(t, 4)
	ctx := context.Background()
	fpA := testFingerprint("agent-e")
	fpB := testFingerprint("agent-f")

	issued, err := svc.IssueChallenge(ctx, fpA)
	require.NoError(t, err)
	raw, err := cryptoutil.DecodeStd(issued.ChallengeB64)
	require.NoError(t, err)
	nonce := solveNonce(t, raw, issued.DifficultyBits)

	token, err := svc.SubmitSolution(ctx, SubmitInput{ChallengeID: issued.ChallengeID, Nonce: nonce}, fpA)
	require.NoError(t, err)

	ok, err := svc.Check(ctx, token, fpB)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrSessionFingerprintMismatch)
}

func TestService_LogoutDeletesSession(t *testing.T) {
	svc, _, sessions := newTestService(t, 4)
	ctx := context.Background()
	fp := testFingerprint("agent-g")

	issued, err := svc.IssueChallenge(ctx, fp)
	require.NoError(t, err)
	raw, err := cryptoutil.DecodeStd(issued.ChallengeB64)
	require.NoError(t, err)
	nonce := solveNonce(t, raw, issued.DifficultyBits)
	token, err := svc.SubmitSolution(ctx, SubmitInput{ChallengeID: issued.ChallengeID, Nonce: nonce}, fp)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	assert.Empty(t, sessions.rows)

	require.NoError(t, svc.Logout(ctx, "garbage-token"))
}
