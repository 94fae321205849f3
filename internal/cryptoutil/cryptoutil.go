// Package cryptoutil provides the pure, stateless crypto primitives shared
// by the PoW and auth cores: hashing, HMAC signing, constant-time
// comparison, secure randomness, and base64 codecs.
package cryptoutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/wardengate/authcore/internal/domain"
)

// SHA256 hashes b and returns the 32-byte digest.
func SHA256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// HMACSHA256 computes the HMAC-SHA-256 of msg under key.
func HMACSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// ConstantTimeEqual reports whether a and b are equal without leaking
// timing information proportional to the position of the first mismatch.
// Unequal lengths are rejected before the constant-time compare, which is
// safe because length is not a secret.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// RandomBytes returns n cryptographically random bytes from the OS CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, domain.ErrInternal
	}
	return b, nil
}

// EncodeStd base64-standard-encodes b.
func EncodeStd(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeStd base64-standard-decodes s, wrapping decode failures as
// ErrInvalidArgument so callers never need to inspect encoding/base64
// error types directly.
func DecodeStd(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrInvalidArgument
	}
	return b, nil
}

// EncodeURLNoPad base64url-no-pad-encodes b, the encoding used by the auth
// session token's signature segment.
func EncodeURLNoPad(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeURLNoPad base64url-no-pad-decodes s.
func DecodeURLNoPad(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrInvalidArgument
	}
	return b, nil
}
