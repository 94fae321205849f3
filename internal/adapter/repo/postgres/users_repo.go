package postgres

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wardengate/authcore/internal/domain"
)

// UsersRepo implements domain.UserRepository against Postgres.
type UsersRepo struct {
	pool PgxPool
}

// NewUsersRepo builds a UsersRepo over pool.
func NewUsersRepo(pool PgxPool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

func (r *UsersRepo) Create(ctx domain.Context, u *domain.User) error {
	const q = `
		INSERT INTO users (user_id, public_id, user_name, canonical_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, q, u.UserID, u.PublicID, u.UserName, u.CanonicalName, int(u.Role), int(u.Status), u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return wrapErr(err)
}

func (r *UsersRepo) Update(ctx domain.Context, u *domain.User) error {
	const q = `
		UPDATE users SET user_name = $2, role = $3, status = $4, last_login_at = $5, updated_at = $6
		WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, u.UserID, u.UserName, int(u.Role), int(u.Status), u.LastLoginAt, u.UpdatedAt)
	if err != nil {
		return wrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) FindByID(ctx domain.Context, userID uuid.UUID) (*domain.User, error) {
	const q = `
		SELECT user_id, public_id, user_name, canonical_name, role, status, last_login_at, created_at, updated_at
		FROM users WHERE user_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, userID))
}

func (r *UsersRepo) FindByPublicID(ctx domain.Context, publicID string) (*domain.User, error) {
	const q = `
		SELECT user_id, public_id, user_name, canonical_name, role, status, last_login_at, created_at, updated_at
		FROM users WHERE public_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, publicID))
}

func (r *UsersRepo) FindByUserName(ctx domain.Context, canonicalName string) (*domain.User, error) {
	const q = `
		SELECT user_id, public_id, user_name, canonical_name, role, status, last_login_at, created_at, updated_at
		FROM users WHERE canonical_name = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, canonicalName))
}

func (r *UsersRepo) ExistsByUserName(ctx domain.Context, canonicalName string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE canonical_name = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, canonicalName).Scan(&exists); err != nil {
		return false, wrapErr(err)
	}
	return exists, nil
}

func (r *UsersRepo) scanOne(row pgx.Row) (*domain.User, error) {
	var (
		u           domain.User
		roleInt     int
		statusInt   int
		lastLoginAt *time.Time
	)
	err := row.Scan(&u.UserID, &u.PublicID, &u.UserName, &u.CanonicalName, &roleInt, &statusInt, &lastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	u.LastLoginAt = lastLoginAt
	role, err := domain.RoleFromInt(roleInt)
	if err != nil {
		return nil, err
	}
	status, err := domain.StatusFromInt(statusInt)
	if err != nil {
		return nil, err
	}
	u.Role, u.Status = role, status
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return domain.ErrInternal
}
