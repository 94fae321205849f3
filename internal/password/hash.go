package password

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/wardengate/authcore/internal/cryptoutil"
)

// Params are the Argon2id tuning parameters. Defaults follow §4.2:
// m≈19 MiB, t=2, p=1.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// DefaultParams returns the policy-mandated Argon2id parameters.
func DefaultParams() Params {
	return Params{
		MemoryKiB:   19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLen:     16,
		KeyLen:      32,
	}
}

const algoID = "argon2id"

// Hasher hashes and verifies passwords against an optional pepper.
type Hasher struct {
	params Params
	pepper []byte
}

// NewHasher builds a Hasher. pepper may be nil when no pepper is configured.
func NewHasher(params Params, pepper []byte) *Hasher {
	return &Hasher{params: params, pepper: pepper}
}

func (h *Hasher) withPepper(normalized string) []byte {
	b := []byte(normalized)
	if len(h.pepper) == 0 {
		return b
	}
	out := make([]byte, 0, len(b)+len(h.pepper))
	out = append(out, b...)
	out = append(out, h.pepper...)
	return out
}

// Hash runs Argon2id over the normalized, policy-accepted password and
// returns a PHC-formatted string.
func (h *Hasher) Hash(normalized string) (string, error) {
	salt, err := cryptoutil.RandomBytes(int(h.params.SaltLen))
	if err != nil {
		return "", err
	}
	digest := argon2.IDKey(h.withPepper(normalized), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLen)
	return fmt.Sprintf("%s$%d$%d$%d$%s$%s",
		algoID,
		h.params.Iterations,
		h.params.MemoryKiB,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify constant-time-compares normalized (with pepper) against the PHC
// string phc. Malformed PHC strings are treated as a verification failure,
// not an error, so callers cannot distinguish "bad hash in DB" from "wrong
// password" externally.
func (h *Hasher) Verify(normalized, phc string) bool {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != algoID {
		return false
	}
	iterations, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return false
	}
	memKiB, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return false
	}
	parallelism, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	got := argon2.IDKey(h.withPepper(normalized), salt, uint32(iterations), uint32(memKiB), uint8(parallelism), uint32(len(want)))
	return cryptoutil.ConstantTimeEqual(got, want)
}

// NeedsRehash reports whether phc was produced by a weaker configuration
// than h's current parameters (or isn't Argon2id at all).
func (h *Hasher) NeedsRehash(phc string) bool {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != algoID {
		return true
	}
	iterations, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return true
	}
	memKiB, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return true
	}
	parallelism, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return true
	}
	return uint32(iterations) < h.params.Iterations ||
		uint32(memKiB) < h.params.MemoryKiB ||
		uint8(parallelism) < h.params.Parallelism
}

// HashRaw validates r against the policy, hashes it, and clears r
// regardless of outcome.
func (h *Hasher) HashRaw(r *Raw) (string, error) {
	defer r.Clear()
	normalized, err := Validate(r)
	if err != nil {
		return "", err
	}
	return h.Hash(normalized)
}

// VerifyRaw validates the shape needed to compare r against phc, clearing
// r afterward. Unlike HashRaw it does not reject policy-invalid input: an
// older account may predate a tightened policy, so sign-in must still be
// able to verify it.
func (h *Hasher) VerifyRaw(r *Raw, phc string) bool {
	defer r.Clear()
	return h.Verify(r.Expose(), phc)
}
