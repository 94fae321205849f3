// Package auth implements the user authentication and session management
// core: sign-up, sign-in with lockout and optional TOTP gate, sign-out
// (single and all), session check with fingerprint binding and sliding
// extension, and TOTP setup/verify/disable.
package auth

import (
	"time"

	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/password"
	"github.com/wardengate/authcore/internal/totp"
)

// Config tunes the auth core; see SPEC_FULL.md §11.2 for the env knobs.
type Config struct {
	SessionTTLShort  time.Duration
	SessionTTLLong   time.Duration
	TOTPIssuer       string
	MaxLoginFailures int
	LockoutWindow    time.Duration
}

// DefaultConfig returns the §4.6 defaults.
func DefaultConfig() Config {
	return Config{
		SessionTTLShort:  domain.DefaultSessionTTLShort,
		SessionTTLLong:   domain.DefaultSessionTTLLong,
		TOTPIssuer:       "authcore",
		MaxLoginFailures: domain.MaxLoginFailures,
		LockoutWindow:    domain.LockoutWindow,
	}
}

// Service implements the auth core operations of §4.6.
type Service struct {
	cfg           Config
	users         domain.UserRepository
	credentials   domain.CredentialsRepository
	sessions      domain.AuthSessionRepository
	hasher        *password.Hasher
	totpEngine    *totp.Engine
	tokenSigner   *TokenSigner
	breachChecker *password.BreachChecker
}

// WithBreachChecker attaches an optional HIBP breach checker, consulted at
// sign-up time (§4.2/§11.6). A nil or unset checker skips the check
// entirely; a transport failure after retries is logged and treated as
// non-fatal to sign-up.
func (s *Service) WithBreachChecker(bc *password.BreachChecker) *Service {
	s.breachChecker = bc
	return s
}

// NewService wires a Service from its repositories and collaborators.
func NewService(
	cfg Config,
	users domain.UserRepository,
	credentials domain.CredentialsRepository,
	sessions domain.AuthSessionRepository,
	hasher *password.Hasher,
	totpEngine *totp.Engine,
	signer *TokenSigner,
) *Service {
	return &Service{
		cfg:         cfg,
		users:       users,
		credentials: credentials,
		sessions:    sessions,
		hasher:      hasher,
		totpEngine:  totpEngine,
		tokenSigner: signer,
	}
}
