package auth

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/cryptoutil"
	"github.com/wardengate/authcore/internal/domain"
)

// TokenSigner creates and verifies auth session tokens of the form
// "<session_uuid>.<base64url_nopad(hmac_sha256(secret, session_uuid_string_bytes))>".
// The HMAC signs the UUID's string form, not its bytes — a distinct
// scheme from the PoW token (internal/pow), deliberately not unified.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner builds a TokenSigner over a 32-byte process-wide secret.
func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{secret: secret}
}

// Sign produces the token for sessionID.
func (s *TokenSigner) Sign(sessionID uuid.UUID) string {
	idStr := sessionID.String()
	sig := cryptoutil.HMACSHA256(s.secret, []byte(idStr))
	return idStr + "." + cryptoutil.EncodeURLNoPad(sig)
}

// Verify splits token on '.', requiring exactly two parts, and checks the
// HMAC over the UUID string. Any structural or signature failure returns
// ErrSessionInvalid.
func (s *TokenSigner) Verify(token string) (uuid.UUID, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return uuid.Nil, domain.ErrSessionInvalid
	}
	idStr, sigPart := parts[0], parts[1]

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, domain.ErrSessionInvalid
	}
	sig, err := cryptoutil.DecodeURLNoPad(sigPart)
	if err != nil {
		return uuid.Nil, domain.ErrSessionInvalid
	}
	want := cryptoutil.HMACSHA256(s.secret, []byte(idStr))
	if !cryptoutil.ConstantTimeEqual(sig, want) {
		return uuid.Nil, domain.ErrSessionInvalid
	}
	return id, nil
}
