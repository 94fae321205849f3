package password

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/wardengate/authcore/internal/domain"
)

const (
	MinLength = 8
	MaxLength = 128
)

// keyboardPatterns are common contiguous-key substrings rejected regardless
// of where they occur in the password.
var keyboardPatterns = []string{
	"qwerty", "asdfgh", "zxcvbn", "qazwsx", "1qaz2wsx",
}

// commonPasswords are exact-match rejections, case-insensitive.
var commonPasswords = map[string]struct{}{
	"password": {}, "letmein": {}, "iloveyou": {}, "123456": {}, "12345678": {},
	"qwerty123": {}, "admin123": {}, "welcome1": {},
}

// Validate normalizes p with NFKC and checks it against the password
// policy. It returns the normalized form on success, or ErrPasswordPolicy
// wrapped with context otherwise.
func Validate(p *Raw) (normalized string, err error) {
	n := norm.NFKC.String(p.Expose())
	if strings.TrimSpace(n) == "" {
		return "", domain.ErrPasswordPolicy
	}
	length := len([]rune(n))
	if length < MinLength || length > MaxLength {
		return "", domain.ErrPasswordPolicy
	}
	for _, r := range n {
		if unicode.IsControl(r) && r != ' ' && r != '\t' && r != '\n' {
			return "", domain.ErrPasswordPolicy
		}
	}
	if hasCommonPattern(n) {
		return "", domain.ErrPasswordPolicy
	}
	return n, nil
}

func hasCommonPattern(p string) bool {
	if allSameChar(p) {
		return true
	}
	if monotoneSequentialDigits(p) {
		return true
	}
	lower := strings.ToLower(p)
	for _, pat := range keyboardPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	if _, ok := commonPasswords[lower]; ok {
		return true
	}
	return false
}

func allSameChar(p string) bool {
	runes := []rune(p)
	if len(runes) < 3 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// monotoneSequentialDigits reports a run of 4+ consecutive ascending or
// descending digits, wrapping 9->0 and 0->9, anywhere in p.
func monotoneSequentialDigits(p string) bool {
	runes := []rune(p)
	const minRun = 4
	ascRun, descRun := 1, 1
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		if isDigit(prev) && isDigit(cur) {
			if nextDigit(prev) == cur {
				ascRun++
			} else {
				ascRun = 1
			}
			if prevDigit(prev) == cur {
				descRun++
			} else {
				descRun = 1
			}
			if ascRun >= minRun || descRun >= minRun {
				return true
			}
		} else {
			ascRun, descRun = 1, 1
		}
	}
	return false
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func nextDigit(r rune) rune {
	if r == '9' {
		return '0'
	}
	return r + 1
}

func prevDigit(r rune) rune {
	if r == '0' {
		return '9'
	}
	return r - 1
}
