// Package pow implements proof-of-work admission control: challenge
// issuance, atomic single-use solution consumption, PoW-session creation,
// and per-fingerprint rate limiting.
package pow

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/cryptoutil"
	"github.com/wardengate/authcore/internal/domain"
)

// Config tunes the PoW core; see SPEC_FULL.md §11.2 for the env knobs that
// populate this from config.Config.
type Config struct {
	ChallengeTTL    time.Duration
	SessionTTL      time.Duration
	DifficultyBits  uint8
	ChallengeBytes  int
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// DefaultConfig returns the §4.5 defaults.
func DefaultConfig() Config {
	return Config{
		ChallengeTTL:    domain.DefaultChallengeTTL,
		SessionTTL:      domain.DefaultPowSessionTTL,
		DifficultyBits:  domain.DefaultDifficultyBits,
		ChallengeBytes:  domain.DefaultChallengeBytes,
		RateLimitMax:    domain.DefaultRateLimitMax,
		RateLimitWindow: domain.DefaultRateLimitWindow,
	}
}

// Service implements the PoW core operations of §4.5.
type Service struct {
	cfg         Config
	challenges  domain.ChallengeRepository
	sessions    domain.PowSessionRepository
	rateLimits  domain.RateLimitRepository
	tokenSigner *TokenSigner
}

// NewService wires a Service from its repositories and signer.
func NewService(cfg Config, challenges domain.ChallengeRepository, sessions domain.PowSessionRepository, rateLimits domain.RateLimitRepository, signer *TokenSigner) *Service {
	return &Service{cfg: cfg, challenges: challenges, sessions: sessions, rateLimits: rateLimits, tokenSigner: signer}
}

// IssuedChallenge is the response shape for GET /challenge.
type IssuedChallenge struct {
	ChallengeID    uuid.UUID
	ChallengeB64   string
	DifficultyBits uint8
	ExpiresAt      time.Time
}

// IssueChallenge runs the rate-limit check, generates a random challenge,
// and persists it.
func (s *Service) IssueChallenge(ctx context.Context, fp domain.Fingerprint) (*IssuedChallenge, error) {
	now := time.Now()
	windowStart := domain.WindowStart(now, s.cfg.RateLimitWindow)
	_, allowed, err := s.rateLimits.Check(ctx, fp.Hash, s.cfg.RateLimitMax, windowStart)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrRateLimited
	}

	challengeBytes, err := cryptoutil.RandomBytes(s.cfg.ChallengeBytes)
	if err != nil {
		return nil, err
	}
	c := &domain.Challenge{
		ChallengeID:     uuid.New(),
		ChallengeBytes:  challengeBytes,
		DifficultyBits:  s.cfg.DifficultyBits,
		ExpiresAt:       now.Add(s.cfg.ChallengeTTL),
		FingerprintHash: fp.Hash,
		ClientIP:        fp.IP,
		CreatedAt:       now,
	}
	if err := s.challenges.Create(ctx, c); err != nil {
		return nil, err
	}
	return &IssuedChallenge{
		ChallengeID:    c.ChallengeID,
		ChallengeB64:   cryptoutil.EncodeStd(c.ChallengeBytes),
		DifficultyBits: c.DifficultyBits,
		ExpiresAt:      c.ExpiresAt,
	}, nil
}

// SubmitInput is the request shape for POST /submit. ElapsedMs and
// TotalHashes are telemetry only: they are logged, never used to verify.
type SubmitInput struct {
	ChallengeID uuid.UUID
	Nonce       uint32
	ElapsedMs   *int64
	TotalHashes *int64
}

// SubmitSolution atomically consumes the challenge and verifies the
// client's nonce. On success it creates a PowSession and returns its
// signed token.
func (s *Service) SubmitSolution(ctx context.Context, in SubmitInput, fp domain.Fingerprint) (token string, err error) {
	if in.TotalHashes != nil || in.ElapsedMs != nil {
		slog.DebugContext(ctx, "pow solve telemetry",
			slog.String("challenge_id", in.ChallengeID.String()),
			slog.Any("elapsed_ms", in.ElapsedMs),
			slog.Any("total_hashes", in.TotalHashes),
		)
	}

	c, err := s.challenges.Consume(ctx, in.ChallengeID)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeExpired) {
			slog.WarnContext(ctx, "pow challenge expired at submit", slog.String("challenge_id", in.ChallengeID.String()))
		}
		return "", err
	}

	nonceBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(nonceBytes, in.Nonce)
	h := cryptoutil.SHA256(append(append([]byte{}, c.ChallengeBytes...), nonceBytes...))
	if CountLeadingZeroBits(h[:]) < int(c.DifficultyBits) {
		slog.WarnContext(ctx, "pow invalid nonce", slog.String("challenge_id", in.ChallengeID.String()))
		return "", domain.ErrInvalidNonce
	}

	now := time.Now()
	session := &domain.PowSession{
		PowSessionID:    uuid.New(),
		ExpiresAt:       now.Add(s.cfg.SessionTTL),
		FingerprintHash: fp.Hash,
		ChallengeID:     c.ChallengeID,
		CreatedAt:       now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return s.tokenSigner.Sign(session.PowSessionID), nil
}

// Check reports whether token names a live, fingerprint-matching PoW
// session. An invalid signature or any repository error other than a
// fingerprint mismatch resolves to false without surfacing an error, per
// §4.5: "if signature invalid return false".
func (s *Service) Check(ctx context.Context, token string, fp domain.Fingerprint) (bool, error) {
	id, err := s.tokenSigner.Verify(token)
	if err != nil {
		return false, nil
	}
	_, err = s.sessions.Get(ctx, id, fp.Hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionFingerprintMismatch) {
			slog.WarnContext(ctx, "pow session fingerprint mismatch", slog.String("pow_session_id", id.String()))
			return false, domain.ErrSessionFingerprintMismatch
		}
		return false, nil
	}
	return true, nil
}

// Logout deletes the PoW session named by token. An unparsable token is a
// silent no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	id, err := s.tokenSigner.Verify(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, id)
}
