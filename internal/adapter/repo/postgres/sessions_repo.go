package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wardengate/authcore/internal/domain"
)

// SessionsRepo implements domain.AuthSessionRepository against Postgres.
type SessionsRepo struct {
	pool PgxPool
}

// NewSessionsRepo builds a SessionsRepo over pool.
func NewSessionsRepo(pool PgxPool) *SessionsRepo {
	return &SessionsRepo{pool: pool}
}

func (r *SessionsRepo) Create(ctx domain.Context, s *domain.AuthSession) error {
	const q = `
		INSERT INTO auth_sessions (session_id, user_id, public_id, role, expires_at, remember_me, fingerprint_hash, client_ip, user_agent, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, q,
		s.SessionID, s.UserID, s.PublicID, int(s.Role), s.ExpiresAt, s.RememberMe,
		s.FingerprintHash[:], s.ClientIP, s.UserAgent, s.CreatedAt, s.LastActivityAt,
	)
	return wrapErr(err)
}

func (r *SessionsRepo) Update(ctx domain.Context, s *domain.AuthSession) error {
	const q = `
		UPDATE auth_sessions SET expires_at = $2, last_activity_at = $3
		WHERE session_id = $1`
	tag, err := r.pool.Exec(ctx, q, s.SessionID, s.ExpiresAt, s.LastActivityAt)
	if err != nil {
		return wrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByID loads the session and itself enforces the fingerprint
// constraint: a row whose stored hash differs from fingerprintHash
// surfaces ErrSessionFingerprintMismatch rather than a silent not-found,
// closing the TOCTOU window between load and compare (§5).
func (r *SessionsRepo) FindByID(ctx domain.Context, sessionID uuid.UUID, fingerprintHash [32]byte) (*domain.AuthSession, error) {
	const q = `
		SELECT session_id, user_id, public_id, role, expires_at, remember_me, fingerprint_hash, client_ip, user_agent, created_at, last_activity_at
		FROM auth_sessions WHERE session_id = $1`
	var (
		s       domain.AuthSession
		roleInt int
		fpBytes []byte
	)
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(
		&s.SessionID, &s.UserID, &s.PublicID, &roleInt, &s.ExpiresAt, &s.RememberMe,
		&fpBytes, &s.ClientIP, &s.UserAgent, &s.CreatedAt, &s.LastActivityAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	role, err := domain.RoleFromInt(roleInt)
	if err != nil {
		return nil, err
	}
	s.Role = role
	copy(s.FingerprintHash[:], fpBytes)
	if s.FingerprintHash != fingerprintHash {
		return nil, domain.ErrSessionFingerprintMismatch
	}
	return &s, nil
}

func (r *SessionsRepo) FindByUserID(ctx domain.Context, userID uuid.UUID) ([]*domain.AuthSession, error) {
	const q = `
		SELECT session_id, user_id, public_id, role, expires_at, remember_me, fingerprint_hash, client_ip, user_agent, created_at, last_activity_at
		FROM auth_sessions WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var out []*domain.AuthSession
	for rows.Next() {
		var (
			s       domain.AuthSession
			roleInt int
			fpBytes []byte
		)
		if err := rows.Scan(
			&s.SessionID, &s.UserID, &s.PublicID, &roleInt, &s.ExpiresAt, &s.RememberMe,
			&fpBytes, &s.ClientIP, &s.UserAgent, &s.CreatedAt, &s.LastActivityAt,
		); err != nil {
			return nil, wrapErr(err)
		}
		role, err := domain.RoleFromInt(roleInt)
		if err != nil {
			return nil, err
		}
		s.Role = role
		copy(s.FingerprintHash[:], fpBytes)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

func (r *SessionsRepo) Delete(ctx domain.Context, sessionID uuid.UUID) error {
	const q = `DELETE FROM auth_sessions WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, q, sessionID)
	return wrapErr(err)
}

func (r *SessionsRepo) DeleteAllForUser(ctx domain.Context, userID uuid.UUID, exceptSessionID uuid.UUID) (int, error) {
	const q = `DELETE FROM auth_sessions WHERE user_id = $1 AND session_id != $2`
	tag, err := r.pool.Exec(ctx, q, userID, exceptSessionID)
	if err != nil {
		return 0, wrapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *SessionsRepo) CleanupExpired(ctx domain.Context) (int, error) {
	const q = `DELETE FROM auth_sessions WHERE expires_at <= now()`
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, wrapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
