package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wardengate/authcore/internal/domain"
)

// UserDetailsRepo implements domain.UserDetailsRepository against
// Postgres. UserDetails is a peripheral CRUD sibling of User (§10.5), not
// gated by any auth-core invariant.
type UserDetailsRepo struct {
	pool PgxPool
}

// NewUserDetailsRepo builds a UserDetailsRepo over pool.
func NewUserDetailsRepo(pool PgxPool) *UserDetailsRepo {
	return &UserDetailsRepo{pool: pool}
}

func (r *UserDetailsRepo) Create(ctx domain.Context, d *domain.UserDetails) error {
	const q = `
		INSERT INTO user_details (user_id, display_name, bio, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, q, d.UserID, d.DisplayName, d.Bio, d.AvatarURL, d.CreatedAt, d.UpdatedAt)
	return wrapErr(err)
}

func (r *UserDetailsRepo) Update(ctx domain.Context, d *domain.UserDetails) error {
	const q = `
		UPDATE user_details SET display_name = $2, bio = $3, avatar_url = $4, updated_at = $5
		WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, d.UserID, d.DisplayName, d.Bio, d.AvatarURL, d.UpdatedAt)
	if err != nil {
		return wrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserDetailsRepo) FindByUserID(ctx domain.Context, userID uuid.UUID) (*domain.UserDetails, error) {
	const q = `SELECT user_id, display_name, bio, avatar_url, created_at, updated_at FROM user_details WHERE user_id = $1`
	var d domain.UserDetails
	err := r.pool.QueryRow(ctx, q, userID).Scan(&d.UserID, &d.DisplayName, &d.Bio, &d.AvatarURL, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &d, nil
}
