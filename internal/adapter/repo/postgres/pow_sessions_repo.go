package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wardengate/authcore/internal/domain"
)

// PowSessionsRepo implements domain.PowSessionRepository against Postgres.
type PowSessionsRepo struct {
	pool PgxPool
}

// NewPowSessionsRepo builds a PowSessionsRepo over pool.
func NewPowSessionsRepo(pool PgxPool) *PowSessionsRepo {
	return &PowSessionsRepo{pool: pool}
}

func (r *PowSessionsRepo) Create(ctx domain.Context, s *domain.PowSession) error {
	const q = `
		INSERT INTO pow_sessions (pow_session_id, expires_at, fingerprint_hash, challenge_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, q, s.PowSessionID, s.ExpiresAt, s.FingerprintHash[:], s.ChallengeID, s.CreatedAt)
	return wrapErr(err)
}

func (r *PowSessionsRepo) Get(ctx domain.Context, powSessionID uuid.UUID, fingerprintHash [32]byte) (*domain.PowSession, error) {
	const q = `
		SELECT pow_session_id, expires_at, fingerprint_hash, challenge_id, created_at
		FROM pow_sessions WHERE pow_session_id = $1 AND expires_at > now()`
	var (
		s       domain.PowSession
		fpBytes []byte
	)
	err := r.pool.QueryRow(ctx, q, powSessionID).Scan(&s.PowSessionID, &s.ExpiresAt, &fpBytes, &s.ChallengeID, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	copy(s.FingerprintHash[:], fpBytes)
	if s.FingerprintHash != fingerprintHash {
		return nil, domain.ErrSessionFingerprintMismatch
	}
	return &s, nil
}

func (r *PowSessionsRepo) Delete(ctx domain.Context, powSessionID uuid.UUID) error {
	const q = `DELETE FROM pow_sessions WHERE pow_session_id = $1`
	_, err := r.pool.Exec(ctx, q, powSessionID)
	return wrapErr(err)
}

func (r *PowSessionsRepo) CleanupExpired(ctx domain.Context) (int, error) {
	const q = `DELETE FROM pow_sessions WHERE expires_at <= now()`
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, wrapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
