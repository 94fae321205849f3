package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wardengate/authcore/internal/domain"
)

// CredentialsRepo implements domain.CredentialsRepository against Postgres.
type CredentialsRepo struct {
	pool PgxPool
}

// NewCredentialsRepo builds a CredentialsRepo over pool.
func NewCredentialsRepo(pool PgxPool) *CredentialsRepo {
	return &CredentialsRepo{pool: pool}
}

func (r *CredentialsRepo) Create(ctx domain.Context, c *domain.Credentials) error {
	const q = `
		INSERT INTO auth_credentials (user_id, password_hash, totp_secret, totp_enabled, login_failed_count, last_failed_at, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, q, c.UserID, c.PasswordHash, c.TOTPSecret, c.TOTPEnabled, c.LoginFailedCount, c.LastFailedAt, c.LockedUntil, c.CreatedAt, c.UpdatedAt)
	return wrapErr(err)
}

func (r *CredentialsRepo) Update(ctx domain.Context, c *domain.Credentials) error {
	const q = `
		UPDATE auth_credentials SET password_hash = $2, totp_secret = $3, totp_enabled = $4,
			login_failed_count = $5, last_failed_at = $6, locked_until = $7, updated_at = $8
		WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, c.UserID, c.PasswordHash, c.TOTPSecret, c.TOTPEnabled, c.LoginFailedCount, c.LastFailedAt, c.LockedUntil, c.UpdatedAt)
	if err != nil {
		return wrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CredentialsRepo) FindByUserID(ctx domain.Context, userID uuid.UUID) (*domain.Credentials, error) {
	const q = `
		SELECT user_id, password_hash, totp_secret, totp_enabled, login_failed_count, last_failed_at, locked_until, created_at, updated_at
		FROM auth_credentials WHERE user_id = $1`
	var c domain.Credentials
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&c.UserID, &c.PasswordHash, &c.TOTPSecret, &c.TOTPEnabled,
		&c.LoginFailedCount, &c.LastFailedAt, &c.LockedUntil, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}
