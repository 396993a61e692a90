package campusauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/campusworks/campusauth/notify"
	"github.com/campusworks/campusauth/otp"
	"github.com/campusworks/campusauth/store"
)

// Signin runs the password phase. With the OTP phase enabled a
// successful password check delivers a code and returns
// ErrOTPRequired; the signin completes in ConfirmSigninOTP. With it
// disabled a successful check returns the session directly.
//
// Unknown identifier, wrong mobile, and wrong password are all
// ErrInvalidCredentials. Consecutive failures lock the account; a
// locked account fails with LockedUntilError before any credential is
// examined.
func (e *Engine) Signin(ctx context.Context, id, mobile, pass string) (SigninResult, error) {
	if err := e.checkOpen(); err != nil {
		return SigninResult{}, err
	}

	if err := e.refuseLocked(ctx, id); err != nil {
		return SigninResult{}, err
	}

	profile, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricSigninFailure)
			e.emitAudit(ctx, auditEventSigninFailure, false, id, "", ErrInvalidCredentials, nil)
			return SigninResult{}, ErrInvalidCredentials
		}
		return SigninResult{}, storeErr(err)
	}

	// The digest check runs on a mobile mismatch too; the two failure
	// modes share one timing profile.
	passOK, err := e.hasher.Verify(pass, profile.PasswordHash)
	if err != nil {
		return SigninResult{}, err
	}
	if !passOK || profile.Mobile != mobile {
		return SigninResult{}, e.credentialFailure(ctx, id)
	}

	if e.config.Password.RehashOnLogin {
		e.maybeRehash(ctx, profile, pass)
	}

	if !e.config.OTP.Required {
		if err := storeErr(e.lockout.RecordSuccess(ctx, id)); err != nil {
			return SigninResult{}, err
		}
		s, err := e.createSession(ctx, id, LevelBasic)
		if err != nil {
			return SigninResult{}, err
		}
		e.metricInc(MetricSigninSuccess)
		e.emitAudit(ctx, auditEventSigninSuccess, true, id, s.Token, nil, nil)
		return SigninResult{Identifier: id, Session: s}, nil
	}

	code, err := e.otp.Issue(ctx, id)
	if err != nil {
		return SigninResult{}, storeErr(err)
	}
	if err := e.deliverCode(ctx, profile, code); err != nil {
		// Hard failure: remove the challenge so a stranded code
		// cannot be guessed at.
		_ = e.otp.Cancel(ctx, id)
		e.metricInc(MetricOTPDeliveryFailure)
		e.emitAudit(ctx, auditEventOTPDeliveryFailure, false, id, "", err, nil)
		return SigninResult{}, err
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, id, "", nil, nil)
	return SigninResult{Identifier: id}, ErrOTPRequired
}

// ConfirmSigninOTP completes a pending signin. The existence of a
// live challenge is the pending-signin state; no password re-entry.
// A wrong code counts toward the lockout streak like a wrong
// password.
func (e *Engine) ConfirmSigninOTP(ctx context.Context, id, code string) (SigninResult, error) {
	if err := e.checkOpen(); err != nil {
		return SigninResult{}, err
	}

	if err := e.refuseLocked(ctx, id); err != nil {
		return SigninResult{}, err
	}

	switch err := e.otp.Verify(ctx, id, code); {
	case err == nil:
		// fall through to session creation

	case errors.Is(err, otp.ErrNoChallenge):
		e.emitAudit(ctx, auditEventOTPFailure, false, id, "", ErrNoPendingSignin, nil)
		return SigninResult{}, ErrNoPendingSignin

	case errors.Is(err, otp.ErrExpired):
		e.metricInc(MetricOTPExpired)
		e.emitAudit(ctx, auditEventOTPFailure, false, id, "", ErrOTPExpired, nil)
		return SigninResult{}, ErrOTPExpired

	case errors.Is(err, otp.ErrMismatch):
		e.metricInc(MetricOTPFailure)
		e.emitAudit(ctx, auditEventOTPFailure, false, id, "", ErrOTPInvalid, nil)
		if lockErr := e.recordAuthFailure(ctx, id); lockErr != nil {
			return SigninResult{}, lockErr
		}
		return SigninResult{}, ErrOTPInvalid

	case errors.Is(err, otp.ErrAttemptsExceeded):
		e.metricInc(MetricOTPFailure)
		e.emitAudit(ctx, auditEventOTPFailure, false, id, "", ErrOTPAttemptsExceeded, nil)
		if lockErr := e.recordAuthFailure(ctx, id); lockErr != nil {
			return SigninResult{}, lockErr
		}
		return SigninResult{}, ErrOTPAttemptsExceeded

	default:
		return SigninResult{}, storeErr(err)
	}

	if err := storeErr(e.lockout.RecordSuccess(ctx, id)); err != nil {
		return SigninResult{}, err
	}

	s, err := e.createSession(ctx, id, LevelBasic)
	if err != nil {
		return SigninResult{}, err
	}

	e.metricInc(MetricOTPVerified)
	e.metricInc(MetricSigninSuccess)
	e.emitAudit(ctx, auditEventOTPVerified, true, id, s.Token, nil, nil)
	e.emitAudit(ctx, auditEventSigninSuccess, true, id, s.Token, nil, nil)
	return SigninResult{Identifier: id, Session: s}, nil
}

// ResendSigninOTP delivers a fresh code for a pending signin,
// superseding the old one. Capped per signin.
func (e *Engine) ResendSigninOTP(ctx context.Context, id string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	if err := e.refuseLocked(ctx, id); err != nil {
		return err
	}

	profile, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoPendingSignin
		}
		return storeErr(err)
	}

	code, err := e.otp.Resend(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, otp.ErrNoChallenge):
		return ErrNoPendingSignin
	case errors.Is(err, otp.ErrExpired):
		return ErrOTPExpired
	case errors.Is(err, otp.ErrResendLimit):
		e.emitAudit(ctx, auditEventOTPResent, false, id, "", ErrOTPResendLimit, nil)
		return ErrOTPResendLimit
	default:
		return storeErr(err)
	}

	if err := e.deliverCode(ctx, profile, code); err != nil {
		_ = e.otp.Cancel(ctx, id)
		e.metricInc(MetricOTPDeliveryFailure)
		e.emitAudit(ctx, auditEventOTPDeliveryFailure, false, id, "", err, nil)
		return err
	}

	e.metricInc(MetricOTPResent)
	e.emitAudit(ctx, auditEventOTPResent, true, id, "", nil, nil)
	return nil
}

// refuseLocked fails fast when id is locked out. Storage trouble
// surfaces as ErrStoreUnavailable, never as "not locked".
func (e *Engine) refuseLocked(ctx context.Context, id string) error {
	locked, until, err := e.lockout.Status(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if !locked {
		return nil
	}
	lockErr := &LockedUntilError{Until: until}
	e.metricInc(MetricSigninLocked)
	e.emitAudit(ctx, auditEventSigninLocked, false, id, "", lockErr, nil)
	return lockErr
}

// credentialFailure books a wrong mobile or password and returns the
// verdict, which escalates to LockedUntilError on the tripping
// failure.
func (e *Engine) credentialFailure(ctx context.Context, id string) error {
	e.metricInc(MetricSigninFailure)
	e.emitAudit(ctx, auditEventSigninFailure, false, id, "", ErrInvalidCredentials, nil)
	if lockErr := e.recordAuthFailure(ctx, id); lockErr != nil {
		return lockErr
	}
	return ErrInvalidCredentials
}

// recordAuthFailure bumps the lockout streak. It returns non-nil
// only when this failure tripped the lock or the store failed.
func (e *Engine) recordAuthFailure(ctx context.Context, id string) error {
	tripped, until, err := e.lockout.RecordFailure(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if !tripped {
		return nil
	}

	// A fresh lock kills any pending challenge and live sessions.
	_ = e.otp.Cancel(ctx, id)
	e.sessions.DestroyAll(id)

	lockErr := &LockedUntilError{Until: until}
	e.metricInc(MetricAccountLocked)
	e.emitAudit(ctx, auditEventAccountLocked, false, id, "", lockErr, func() map[string]string {
		return map[string]string{"until": until.UTC().Format(time.RFC3339)}
	})
	return lockErr
}

// maybeRehash upgrades a digest produced under weaker costs. Best
// effort; signin proceeds either way.
func (e *Engine) maybeRehash(ctx context.Context, profile *store.Profile, pass string) {
	up, err := e.hasher.NeedsRehash(profile.PasswordHash)
	if err != nil || !up {
		return
	}
	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return
	}
	updated := profile.Clone()
	updated.PasswordHash = hash
	if err := e.store.Update(ctx, updated); err != nil {
		log.Printf("campusauth: password rehash for %s not stored: %v", profile.Identifier, err)
		return
	}
	profile.PasswordHash = hash
}

// deliverCode fans the code out over every configured channel under
// a per-channel timeout. One delivery suffices; only when every
// channel fails does the signin abort.
func (e *Engine) deliverCode(ctx context.Context, profile *store.Profile, code string) error {
	channels := e.notifier.Channels()
	if len(channels) == 0 {
		return ErrDeliveryFailed
	}

	body := fmt.Sprintf(e.config.Notify.BodyTemplate, code)
	delivered := false
	for _, ch := range channels {
		to := profile.Mobile
		subject := ""
		if ch == notify.ChannelEmail {
			to = profile.Email
			subject = e.config.Notify.EmailSubject
		}

		sendCtx, cancel := context.WithTimeout(ctx, e.config.OTP.DeliverTimeout)
		err := e.notifier.Send(sendCtx, ch, to, subject, body)
		cancel()
		if err != nil {
			log.Printf("campusauth: %s delivery to %s failed: %v", ch, profile.Identifier, err)
			continue
		}
		delivered = true
	}
	if !delivered {
		return ErrDeliveryFailed
	}
	return nil
}
