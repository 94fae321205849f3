package pow

import (
	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/cryptoutil"
	"github.com/wardengate/authcore/internal/domain"
)

// TokenSigner creates and verifies PoW session tokens: the base64 of
// session_id_bytes(16) ‖ hmac_sha256(secret, session_id_bytes)(32), 48
// bytes total. This is a byte-level scheme, distinct from the auth
// session token's string-level scheme (internal/auth).
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner builds a TokenSigner over a 32-byte process-wide secret.
func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{secret: secret}
}

// Sign produces the token for sessionID.
func (s *TokenSigner) Sign(sessionID uuid.UUID) string {
	idBytes := sessionID[:]
	sig := cryptoutil.HMACSHA256(s.secret, idBytes)
	out := make([]byte, 0, 48)
	out = append(out, idBytes...)
	out = append(out, sig...)
	return cryptoutil.EncodeStd(out)
}

// Verify decodes and checks token, returning the session id on success.
// Any structural or signature failure returns ErrSessionInvalid.
func (s *TokenSigner) Verify(token string) (uuid.UUID, error) {
	raw, err := cryptoutil.DecodeStd(token)
	if err != nil || len(raw) != 48 {
		return uuid.Nil, domain.ErrSessionInvalid
	}
	idBytes, sig := raw[:16], raw[16:]
	want := cryptoutil.HMACSHA256(s.secret, idBytes)
	if !cryptoutil.ConstantTimeEqual(sig, want) {
		return uuid.Nil, domain.ErrSessionInvalid
	}
	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return uuid.Nil, domain.ErrSessionInvalid
	}
	return id, nil
}
