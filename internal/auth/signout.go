package auth

import (
	"context"
	"errors"

	"github.com/wardengate/authcore/internal/domain"
)

// SignOut parses token and deletes the named session. Tolerates a session
// that no longer exists.
func (s *Service) SignOut(ctx context.Context, token string) error {
	id, err := s.tokenSigner.Verify(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// SignOutAll parses token, validates it (with fingerprint binding), and
// deletes every session belonging to the same user except the current
// one. Returns the number of sessions removed.
func (s *Service) SignOutAll(ctx context.Context, token string, fp domain.Fingerprint) (int, error) {
	id, err := s.tokenSigner.Verify(token)
	if err != nil {
		return 0, domain.ErrSessionInvalid
	}
	session, err := s.sessions.FindByID(ctx, id, fp.Hash)
	if err != nil {
		return 0, err
	}
	return s.sessions.DeleteAllForUser(ctx, session.UserID, session.SessionID)
}
