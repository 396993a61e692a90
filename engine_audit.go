package campusauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

const (
	auditEventSignupSuccess      = "signup_success"
	auditEventSignupDuplicate    = "signup_duplicate"
	auditEventSignupFailure      = "signup_failure"
	auditEventSigninSuccess      = "signin_success"
	auditEventSigninFailure      = "signin_failure"
	auditEventSigninLocked       = "signin_locked"
	auditEventOTPIssued          = "otp_issued"
	auditEventOTPResent          = "otp_resent"
	auditEventOTPVerified        = "otp_verified"
	auditEventOTPFailure         = "otp_failure"
	auditEventOTPDeliveryFailure = "otp_delivery_failure"
	auditEventAccountLocked      = "account_locked"
	auditEventAccountUnlocked    = "account_unlocked"
	auditEventSessionCreated     = "session_created"
	auditEventLogout             = "logout"
	auditEventPasswordChanged    = "password_changed"
	auditEventPasswordChangeDeny = "password_change_denied"
	auditEventProfileUpdated     = "profile_updated"
	auditEventProfileUpdateDeny  = "profile_update_denied"
	auditEventIdentifierRecovery = "identifier_recovery"
	auditEventBackup             = "profiles_backup"
	auditEventRestore            = "profiles_restore"
)

// AuditErrorCode is the stable error vocabulary of the trail; raw
// error text never reaches the sink.
type AuditErrorCode string

const (
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrWeakPassword       AuditErrorCode = "weak_password"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrNotFound           AuditErrorCode = "profile_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrLocked             AuditErrorCode = "account_locked"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrOTPExpired         AuditErrorCode = "otp_expired"
	auditErrOTPAttempts        AuditErrorCode = "otp_attempts_exceeded"
	auditErrOTPResendLimit     AuditErrorCode = "otp_resend_limit"
	auditErrNoPendingSignin    AuditErrorCode = "no_pending_signin"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrSessionInvalid     AuditErrorCode = "session_invalid"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrSessionLimit       AuditErrorCode = "session_limit"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionToken string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionFingerprint(sessionToken),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// sessionFingerprint makes a token referable in the trail without
// being usable from it.
func sessionFingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrWeakPassword):
		return auditErrWeakPassword
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrProfileNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrIdentifierExists),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrMobileExists):
		return auditErrDuplicate
	case errors.Is(err, ErrAccountLocked):
		return auditErrLocked
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrOTPExpired):
		return auditErrOTPExpired
	case errors.Is(err, ErrOTPAttemptsExceeded):
		return auditErrOTPAttempts
	case errors.Is(err, ErrOTPResendLimit):
		return auditErrOTPResendLimit
	case errors.Is(err, ErrNoPendingSignin):
		return auditErrNoPendingSignin
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrSessionInvalid):
		return auditErrSessionInvalid
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrSessionLimit):
		return auditErrSessionLimit
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
