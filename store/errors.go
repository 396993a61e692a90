package store

import "errors"

var (
	// ErrNotFound is returned when no record exists for the given key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateIdentifier is returned by Create when the identifier is taken.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrDuplicateEmail is returned by Create or Update when the email is taken.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrDuplicateMobile is returned by Create or Update when the mobile is taken.
	ErrDuplicateMobile = errors.New("duplicate mobile")
	// ErrUnavailable wraps backend failures. Callers must treat it as
	// retryable and must never fold it into an authentication verdict.
	ErrUnavailable = errors.New("store backend unavailable")
	// ErrCorrupt is returned when a stored blob fails to decode.
	ErrCorrupt = errors.New("stored record corrupt")
)

// IsDuplicate reports whether err is any of the uniqueness conflicts.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateIdentifier) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicateMobile)
}
