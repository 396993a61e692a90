package password

import (
	"errors"
	"unicode"
)

// MinLength is the shortest password the portal accepts.
const MinLength = 8

// ErrWeak is returned by CheckStrength for passwords that fail the
// policy.
var ErrWeak = errors.New("password too weak: need 8+ characters and three of upper/lower/digit/special")

// CheckStrength enforces the portal policy: at least MinLength
// characters, drawing on at least three of the four character classes
// (upper, lower, digit, special).
func CheckStrength(plaintext string) error {
	if len(plaintext) < MinLength {
		return ErrWeak
	}

	var upper, lower, digit, special bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	classes := 0
	for _, ok := range []bool{upper, lower, digit, special} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return ErrWeak
	}
	return nil
}
