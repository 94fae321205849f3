package auth

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wardengate/authcore/internal/domain"
)

const (
	minUserNameLen = 3
	maxUserNameLen = 30
)

// reservedUserNames blocks canonical forms that collide with system
// routes or invite impersonation.
var reservedUserNames = map[string]bool{
	"admin": true, "root": true, "system": true, "support": true,
	"moderator": true, "superadmin": true, "api": true, "null": true,
	"undefined": true, "anonymous": true, "me": true, "staff": true,
}

// ValidateUserName normalizes name and checks it against the §4.6
// user-name policy, returning the canonical (lowercase) form on success.
func ValidateUserName(name string) (canonical string, err error) {
	normalized := norm.NFKC.String(strings.TrimSpace(name))
	canonical = strings.ToLower(normalized)

	// Bounds are measured in bytes, not runes: a multibyte NFKC canonical is
	// bounded tighter than the spec's code-point intent, accepted as the
	// simpler check since usernames are ASCII in practice (see isAllowedUserNameChar).
	if len(canonical) < minUserNameLen || len(canonical) > maxUserNameLen {
		return "", domain.ErrInvalidArgument
	}
	if strings.Contains(canonical, "..") {
		return "", domain.ErrInvalidArgument
	}
	if !isAllowedBoundaryChar(rune(canonical[0])) || !isAllowedBoundaryChar(rune(canonical[len(canonical)-1])) {
		return "", domain.ErrInvalidArgument
	}

	hasAlnum := false
	for _, r := range canonical {
		if !isAllowedUserNameChar(r) {
			return "", domain.ErrInvalidArgument
		}
		if isAlphaNumeric(r) {
			hasAlnum = true
		}
	}
	if !hasAlnum {
		return "", domain.ErrInvalidArgument
	}
	if reservedUserNames[canonical] {
		return "", domain.ErrInvalidArgument
	}
	return canonical, nil
}

func isAllowedUserNameChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '-' || r == '+':
		return true
	default:
		return false
	}
}

// isAllowedBoundaryChar restricts the first/last rune to alphanumeric or
// underscore: a name may not start or end with '.', '-', or '+'.
func isAllowedBoundaryChar(r rune) bool {
	return isAlphaNumeric(r) || r == '_'
}

func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
