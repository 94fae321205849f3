package postgres

import (
	"github.com/wardengate/authcore/internal/domain"
)

// RateLimitRepo implements domain.RateLimitRepository against Postgres
// using an atomic upsert-increment on the (fingerprint_hash,
// window_start_ms) composite key.
type RateLimitRepo struct {
	pool PgxPool
}

// NewRateLimitRepo builds a RateLimitRepo over pool.
func NewRateLimitRepo(pool PgxPool) *RateLimitRepo {
	return &RateLimitRepo{pool: pool}
}

// Check atomically increments the counter for the current window and
// reports the resulting count alongside whether it is within max (§5:
// "INSERT … ON CONFLICT DO UPDATE SET count = count + 1 RETURNING count").
func (r *RateLimitRepo) Check(ctx domain.Context, fingerprintHash [32]byte, max int, window int64) (int, bool, error) {
	const q = `
		INSERT INTO pow_rate_limits (fingerprint_hash, window_start_ms, request_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (fingerprint_hash, window_start_ms)
		DO UPDATE SET request_count = pow_rate_limits.request_count + 1
		RETURNING request_count`
	var count int
	if err := r.pool.QueryRow(ctx, q, fingerprintHash[:], window).Scan(&count); err != nil {
		return 0, false, wrapErr(err)
	}
	return count, count <= max, nil
}
