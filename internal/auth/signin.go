package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/password"
	"github.com/wardengate/authcore/internal/totp"
)

// SignInInput is the request shape for POST /signin.
type SignInInput struct {
	Identifier string
	Password   *password.Raw
	RememberMe bool
	TOTPCode   string
}

// SignInResult is returned on every sign-in attempt that doesn't error.
// A zero-value Token with Requires2FA true means no session was issued.
type SignInResult struct {
	PublicID    string
	Requires2FA bool
	Token       string
	ExpiresAt   time.Time
}

// SignIn verifies credentials, enforces lockout and the 2FA gate, and on
// success creates a session and returns its token.
func (s *Service) SignIn(ctx context.Context, in SignInInput, fp domain.Fingerprint) (*SignInResult, error) {
	defer in.Password.Clear()

	if strings.Contains(in.Identifier, "@") {
		// Email identifiers are not resolvable: no email index exists.
		// Per SPEC_FULL.md §9, do not invent semantics here.
		return nil, domain.ErrInvalidCredentials
	}

	canonical := strings.ToLower(norm.NFKC.String(strings.TrimSpace(in.Identifier)))
	user, err := s.users.FindByUserName(ctx, canonical)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Status.CanLogin() {
		return nil, domain.ErrAccountDisabled
	}

	creds, err := s.credentials.FindByUserID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if creds.IsLocked(now) {
		return nil, domain.ErrAccountLocked
	}

	if !s.hasher.VerifyRaw(in.Password, creds.PasswordHash) {
		creds.RecordFailure(now, s.cfg.MaxLoginFailures, s.cfg.LockoutWindow)
		if err := s.credentials.Update(ctx, creds); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials
	}

	if user.Role.RequiresTwoFactor() || creds.TOTPEnabled {
		if !creds.HasTwoFactor() {
			return nil, domain.ErrTwoFactorNotSetup
		}
		if in.TOTPCode == "" {
			return &SignInResult{PublicID: user.PublicID, Requires2FA: true}, nil
		}
		if !totp.Verify(in.TOTPCode, creds.TOTPSecret) {
			return nil, domain.ErrInvalidTwoFactorCode
		}
	}

	creds.RecordSuccess()
	if err := s.credentials.Update(ctx, creds); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	ttl := s.cfg.SessionTTLShort
	if in.RememberMe {
		ttl = s.cfg.SessionTTLLong
	}
	session := &domain.AuthSession{
		SessionID:       uuid.New(),
		UserID:          user.UserID,
		PublicID:        user.PublicID,
		Role:            user.Role,
		ExpiresAt:       now.Add(ttl),
		RememberMe:      in.RememberMe,
		FingerprintHash: fp.Hash,
		ClientIP:        fp.IP,
		UserAgent:       fp.UserAgent,
		CreatedAt:       now,
		LastActivityAt:  now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return &SignInResult{
		PublicID:  user.PublicID,
		Token:     s.tokenSigner.Sign(session.SessionID),
		ExpiresAt: session.ExpiresAt,
	}, nil
}
