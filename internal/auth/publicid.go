package auth

import (
	"crypto/rand"

	"github.com/wardengate/authcore/internal/domain"
)

const publicIDLength = 21

const publicIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// GeneratePublicID produces a 21-character URL-safe identifier suitable
// for external exposure, sampling uniformly from a 64-symbol alphabet via
// rejection sampling against crypto/rand to avoid modulo bias. No library
// in the dependency set provides nanoid-style generation; this is a small
// enough primitive that pulling in a dependency for it isn't warranted.
func GeneratePublicID() (string, error) {
	out := make([]byte, 0, publicIDLength)
	buf := make([]byte, 1)
	for len(out) < publicIDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", domain.ErrInternal
		}
		// 256 is not a multiple of 64; reject the high tail to stay uniform.
		if buf[0] >= 252 {
			continue
		}
		out = append(out, publicIDAlphabet[int(buf[0])%len(publicIDAlphabet)])
	}
	return string(out), nil
}
