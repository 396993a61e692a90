package campusauth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is returned when a request fails validation
	// before any storage is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrWeakPassword is returned when a new password fails the
	// strength policy.
	ErrWeakPassword = errors.New("password does not meet policy")

	// ErrInvalidCredentials is returned for any credential mismatch
	// during signin: unknown identifier, wrong mobile, or wrong
	// password. The caller cannot tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProfileNotFound is returned by profile operations for an
	// unknown identifier.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrIdentifierExists is returned when a generated identifier
	// collides; ErrEmailExists and ErrMobileExists when a contact
	// point is already registered.
	ErrIdentifierExists = errors.New("identifier already registered")
	ErrEmailExists      = errors.New("email already registered")
	ErrMobileExists     = errors.New("mobile already registered")

	// ErrPasswordReuse is returned when a password change submits the
	// password already in use.
	ErrPasswordReuse = errors.New("new password matches current password")

	// ErrOTPRequired is returned by Signin when the password phase
	// succeeded and a code was delivered; the caller completes with
	// ConfirmSigninOTP.
	ErrOTPRequired = errors.New("verification code required")

	// ErrOTPInvalid is returned for a wrong code while the challenge
	// stays live. ErrOTPExpired means the code's window passed and a
	// fresh one must be requested. ErrOTPAttemptsExceeded means the
	// challenge burned its attempt cap and was removed.
	ErrOTPInvalid          = errors.New("verification code incorrect")
	ErrOTPExpired          = errors.New("verification code expired")
	ErrOTPAttemptsExceeded = errors.New("verification attempts exceeded")

	// ErrOTPResendLimit is returned when a pending signin has already
	// been resent its code the maximum number of times.
	ErrOTPResendLimit = errors.New("verification resend limit reached")

	// ErrNoPendingSignin is returned by the OTP confirmation surface
	// when no signin is waiting on a code for that identifier.
	ErrNoPendingSignin = errors.New("no signin pending verification")

	// ErrDeliveryFailed is returned when no configured channel could
	// deliver the verification code.
	ErrDeliveryFailed = errors.New("code delivery failed on all channels")

	// ErrSessionInvalid and ErrSessionExpired distinguish a token
	// that references nothing from one that idled out.
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionLimit is returned when the session table is full of
	// live sessions.
	ErrSessionLimit = errors.New("session limit reached")

	// ErrStoreUnavailable wraps record store outages. It is never
	// folded into an authentication verdict.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrEngineClosed is returned after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// LockedUntilError reports that an account is locked out and when the
// lock lifts. It matches errors.Is(err, ErrAccountLocked).
type LockedUntilError struct {
	Until time.Time
}

// ErrAccountLocked is the sentinel for lockout; concrete errors are
// LockedUntilError values carrying the expiry.
var ErrAccountLocked = errors.New("account locked")

func (e *LockedUntilError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedUntilError) Is(target error) bool {
	return target == ErrAccountLocked
}
