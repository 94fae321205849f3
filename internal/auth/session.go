package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/domain"
)

// CheckResult is the outcome of a successful session check.
type CheckResult struct {
	PublicID  string
	Role      domain.Role
	ExpiresAt time.Time
}

// CheckSession parses token, loads the session under the fingerprint
// constraint, rejects expired sessions, and touches (and possibly
// slide-extends) the session in a fire-and-forget goroutine so the
// response is never blocked on the write.
func (s *Service) CheckSession(ctx context.Context, token string, fp domain.Fingerprint) (*CheckResult, error) {
	id, err := s.tokenSigner.Verify(token)
	if err != nil {
		return nil, domain.ErrSessionInvalid
	}

	session, err := s.sessions.FindByID(ctx, id, fp.Hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionFingerprintMismatch) {
			slog.WarnContext(ctx, "auth session fingerprint mismatch", slog.String("session_id", id.String()))
			return nil, domain.ErrSessionFingerprintMismatch
		}
		return nil, domain.ErrSessionInvalid
	}

	now := time.Now()
	if session.IsExpired(now) {
		if delErr := s.sessions.Delete(ctx, id); delErr != nil {
			slog.ErrorContext(ctx, "failed to delete expired session", slog.String("session_id", id.String()), slog.Any("error", delErr))
		}
		return nil, domain.ErrSessionInvalid
	}

	extended := session.Touch(now, s.cfg.SessionTTLLong)
	result := &CheckResult{PublicID: session.PublicID, Role: session.Role, ExpiresAt: session.ExpiresAt}

	go s.persistTouch(session, extended)

	return result, nil
}

// ResolveUserID looks up the internal UserID behind a session's PublicID,
// for call sites (TOTP setup/verify/disable) that need it after a session
// check has already authenticated the caller.
func (s *Service) ResolveUserID(ctx context.Context, publicID string) (uuid.UUID, error) {
	user, err := s.users.FindByPublicID(ctx, publicID)
	if err != nil {
		return uuid.Nil, err
	}
	return user.UserID, nil
}

// persistTouch writes the touched (and possibly extended) session back to
// storage. It runs detached from the request; failures are logged, never
// surfaced, per §4.6/§5.
func (s *Service) persistTouch(session *domain.AuthSession, extended bool) {
	if !extended {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sessions.Update(ctx, session); err != nil {
		slog.Error("failed to persist session touch", slog.String("session_id", session.SessionID.String()), slog.Any("error", err))
	}
}
