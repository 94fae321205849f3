package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/totp"
)

// TOTPSetupResult carries the material a client needs to add the account
// to an authenticator app.
type TOTPSetupResult struct {
	QRPNGBase64  string
	SecretBase32 string
	OtpauthURL   string
}

// TOTPSetup generates a new secret for the user and persists it disabled;
// the client must verify a code before it takes effect.
func (s *Service) TOTPSetup(ctx context.Context, userID uuid.UUID) (*TOTPSetupResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	creds, err := s.credentials.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	secret, err := s.totpEngine.Generate(user.CanonicalName)
	if err != nil {
		return nil, err
	}
	qr, err := s.totpEngine.QRPNGBase64(secret)
	if err != nil {
		return nil, err
	}

	creds.TOTPSecret = secret.Base32
	creds.TOTPEnabled = false
	if err := s.credentials.Update(ctx, creds); err != nil {
		return nil, err
	}

	return &TOTPSetupResult{QRPNGBase64: qr, SecretBase32: secret.Base32, OtpauthURL: secret.OtpauthURL}, nil
}

// TOTPVerify checks code against the stored (not-yet-enabled) secret and,
// on success, enables two-factor for the account.
func (s *Service) TOTPVerify(ctx context.Context, userID uuid.UUID, code string) error {
	creds, err := s.credentials.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if creds.TOTPSecret == "" {
		return domain.ErrTwoFactorNotSetup
	}
	if !totp.Verify(code, creds.TOTPSecret) {
		return domain.ErrInvalidTwoFactorCode
	}
	creds.TOTPEnabled = true
	return s.credentials.Update(ctx, creds)
}

// TOTPDisable clears two-factor for the account after verifying code. It
// refuses to disable 2FA for a role that mandates it.
func (s *Service) TOTPDisable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role.RequiresTwoFactor() {
		return domain.ErrTwoFactorRoleGated
	}

	creds, err := s.credentials.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !creds.HasTwoFactor() || !totp.Verify(code, creds.TOTPSecret) {
		return domain.ErrInvalidTwoFactorCode
	}
	creds.TOTPSecret = ""
	creds.TOTPEnabled = false
	return s.credentials.Update(ctx, creds)
}
