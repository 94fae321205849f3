// Package totp implements RFC 6238 time-based one-time password setup and
// verification for the second-factor flow: SHA-1, 6 digits, 30-second
// step, ±1 step skew.
package totp

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/wardengate/authcore/internal/domain"
)

// Engine generates and verifies TOTP secrets under a fixed issuer.
type Engine struct {
	Issuer string
}

// NewEngine builds an Engine for the given issuer name, embedded in every
// otpauth:// URL it produces.
func NewEngine(issuer string) *Engine {
	return &Engine{Issuer: issuer}
}

func (e *Engine) opts(accountName string) totp.GenerateOpts {
	return totp.GenerateOpts{
		Issuer:      e.Issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	}
}

// Secret is a freshly generated TOTP secret with its otpauth URL.
type Secret struct {
	Base32     string
	OtpauthURL string
	key        *otp.Key
}

// Generate creates a new random base32 secret for accountName.
func (e *Engine) Generate(accountName string) (*Secret, error) {
	key, err := totp.Generate(e.opts(accountName))
	if err != nil {
		return nil, domain.ErrInternal
	}
	return &Secret{Base32: key.Secret(), OtpauthURL: key.String(), key: key}, nil
}

// QRPNGBase64 renders the secret's otpauth URL as a PNG QR code and returns
// it base64-standard-encoded, ready to embed in a JSON response.
func (e *Engine) QRPNGBase64(s *Secret) (string, error) {
	key := s.key
	var err error
	if key == nil {
		key, err = otp.NewKeyFromURL(s.OtpauthURL)
		if err != nil {
			return "", domain.ErrInternal
		}
	}
	img, err := key.Image(256, 256)
	if err != nil {
		return "", domain.ErrInternal
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return "", domain.ErrInternal
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// GenerateCode computes the TOTP code for secretBase32 at instant t,
// matching the engine's fixed period/digits/algorithm. Used by callers
// that already hold a verified secret (e.g. test harnesses simulating an
// authenticator app).
func GenerateCode(secretBase32 string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secretBase32, t, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", domain.ErrInternal
	}
	return code, nil
}

// Verify validates code against secretBase32 with ±1 step skew. Wrong
// length or non-digit codes simply fail rather than erroring.
func Verify(code, secretBase32 string) bool {
	ok, err := totp.ValidateCustom(code, secretBase32, timeNow(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return ok
}
