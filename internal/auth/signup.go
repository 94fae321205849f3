package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/password"
)

// SignUpInput is the request shape for POST /signup.
type SignUpInput struct {
	UserName string
	Password *password.Raw
}

// SignUpResult is returned on successful account creation.
type SignUpResult struct {
	PublicID string
}

// SignUp validates the user name and password, checks uniqueness, hashes
// the password, and persists the User and Credentials rows in that order.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	canonical, err := ValidateUserName(in.UserName)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUserName(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserNameTaken
	}

	if s.breachChecker != nil {
		breached, err := s.breachChecker.IsBreached(ctx, password.NewRaw(in.Password.Expose()))
		if err != nil {
			slog.WarnContext(ctx, "breach check unavailable, proceeding with sign-up", slog.Any("error", err))
		} else if breached {
			return nil, domain.ErrPasswordPolicy
		}
	}

	hash, err := s.hasher.HashRaw(in.Password)
	if err != nil {
		return nil, err
	}

	publicID, err := GeneratePublicID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		UserID:        uuid.New(),
		PublicID:      publicID,
		UserName:      in.UserName,
		CanonicalName: canonical,
		Role:          domain.RoleUser,
		Status:        domain.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	creds := &domain.Credentials{
		UserID:       user.UserID,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.credentials.Create(ctx, creds); err != nil {
		return nil, err
	}

	return &SignUpResult{PublicID: user.PublicID}, nil
}
