package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wardengate/authcore/internal/domain"
)

// ChallengesRepo implements domain.ChallengeRepository against Postgres.
type ChallengesRepo struct {
	pool PgxPool
}

// NewChallengesRepo builds a ChallengesRepo over pool.
func NewChallengesRepo(pool PgxPool) *ChallengesRepo {
	return &ChallengesRepo{pool: pool}
}

func (r *ChallengesRepo) Create(ctx domain.Context, c *domain.Challenge) error {
	const q = `
		INSERT INTO pow_challenges (challenge_id, challenge_bytes, difficulty_bits, expires_at, fingerprint_hash, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, q, c.ChallengeID, c.ChallengeBytes, int(c.DifficultyBits), c.ExpiresAt, c.FingerprintHash[:], c.ClientIP, c.CreatedAt)
	return wrapErr(err)
}

// Consume atomically deletes and returns the challenge row. A row that
// existed but had already expired reports ErrChallengeExpired; an absent
// row reports ErrChallengeNotFound. This guarantees at-most-once solving
// even under concurrent submits (§5).
func (r *ChallengesRepo) Consume(ctx domain.Context, challengeID uuid.UUID) (*domain.Challenge, error) {
	const deleteQ = `
		DELETE FROM pow_challenges WHERE challenge_id = $1 AND expires_at > now()
		RETURNING challenge_id, challenge_bytes, difficulty_bits, expires_at, fingerprint_hash, client_ip, created_at`

	var (
		c           domain.Challenge
		difficulty  int
		fpBytes     []byte
	)
	err := r.pool.QueryRow(ctx, deleteQ, challengeID).Scan(
		&c.ChallengeID, &c.ChallengeBytes, &difficulty, &c.ExpiresAt, &fpBytes, &c.ClientIP, &c.CreatedAt,
	)
	if err == nil {
		c.DifficultyBits = uint8(difficulty)
		copy(c.FingerprintHash[:], fpBytes)
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapErr(err)
	}

	const existsQ = `SELECT EXISTS(SELECT 1 FROM pow_challenges WHERE challenge_id = $1)`
	var exists bool
	if existsErr := r.pool.QueryRow(ctx, existsQ, challengeID).Scan(&exists); existsErr != nil {
		return nil, wrapErr(existsErr)
	}
	if exists {
		return nil, domain.ErrChallengeExpired
	}
	return nil, domain.ErrChallengeNotFound
}

func (r *ChallengesRepo) CleanupExpired(ctx domain.Context) (int, error) {
	const q = `DELETE FROM pow_challenges WHERE expires_at <= now()`
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, wrapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
