package campusauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusworks/campusauth/password"
	"github.com/campusworks/campusauth/store"
)

// GetProfile returns the profile for id with the credential digest
// redacted.
func (e *Engine) GetProfile(ctx context.Context, id string) (Profile, error) {
	if err := e.checkOpen(); err != nil {
		return Profile{}, err
	}

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return Profile{}, storeErr(err)
	}

	out := *p.Clone()
	out.PasswordHash = ""
	return out, nil
}

// UpdateProfile applies the non-nil fields of upd. Untouched fields
// keep their stored values. An email or mobile change re-checks
// uniqueness atomically against the indexes; identifier, campus
// type, and credentials are immutable here.
func (e *Engine) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (Profile, error) {
	if err := e.checkOpen(); err != nil {
		return Profile{}, err
	}

	current, err := e.store.Get(ctx, id)
	if err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventProfileUpdateDeny, false, id, "", err, nil)
		return Profile{}, err
	}

	next := current.Clone()
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return Profile{}, e.denyUpdate(ctx, id, fmt.Errorf("%w: name required", ErrInvalidInput))
		}
		next.Name = *upd.Name
	}
	if upd.Institute != nil {
		if strings.TrimSpace(*upd.Institute) == "" {
			return Profile{}, e.denyUpdate(ctx, id, fmt.Errorf("%w: institute required", ErrInvalidInput))
		}
		next.Institute = *upd.Institute
	}
	if upd.Department != nil {
		if strings.TrimSpace(*upd.Department) == "" {
			return Profile{}, e.denyUpdate(ctx, id, fmt.Errorf("%w: department required", ErrInvalidInput))
		}
		next.Department = *upd.Department
	}
	if upd.Email != nil {
		if err := validateEmail(*upd.Email); err != nil {
			return Profile{}, e.denyUpdate(ctx, id, err)
		}
		next.Email = *upd.Email
	}
	if upd.Mobile != nil {
		if err := validateMobile(*upd.Mobile); err != nil {
			return Profile{}, e.denyUpdate(ctx, id, err)
		}
		next.Mobile = *upd.Mobile
	}
	if upd.Fields != nil {
		if err := validateFields(next.CampusType, *upd.Fields); err != nil {
			return Profile{}, e.denyUpdate(ctx, id, err)
		}
		next.Fields = profileFields(next.CampusType, *upd.Fields)
	}

	if err := e.store.Update(ctx, next); err != nil {
		return Profile{}, e.denyUpdate(ctx, id, storeErr(err))
	}

	e.metricInc(MetricProfileUpdate)
	e.emitAudit(ctx, auditEventProfileUpdated, true, id, "", nil, nil)

	out := *next
	out.PasswordHash = ""
	return out, nil
}

func (e *Engine) denyUpdate(ctx context.Context, id string, err error) error {
	e.emitAudit(ctx, auditEventProfileUpdateDeny, false, id, "", err, nil)
	return err
}

// ChangePassword swaps the credential after verifying the current
// one. A wrong current password counts toward the lockout streak; the
// new password must satisfy the strength policy and differ from the
// current one.
func (e *Engine) ChangePassword(ctx context.Context, id, oldPass, newPass string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	if err := e.refuseLocked(ctx, id); err != nil {
		return err
	}

	profile, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricPasswordChangeDenied)
			e.emitAudit(ctx, auditEventPasswordChangeDeny, false, id, "", ErrInvalidCredentials, nil)
			return ErrInvalidCredentials
		}
		return storeErr(err)
	}

	ok, err := e.hasher.Verify(oldPass, profile.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeDenied)
		e.emitAudit(ctx, auditEventPasswordChangeDeny, false, id, "", ErrInvalidCredentials, nil)
		if lockErr := e.recordAuthFailure(ctx, id); lockErr != nil {
			return lockErr
		}
		return ErrInvalidCredentials
	}

	if err := password.CheckStrength(newPass); err != nil {
		e.metricInc(MetricPasswordChangeDenied)
		e.emitAudit(ctx, auditEventPasswordChangeDeny, false, id, "", ErrWeakPassword, nil)
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	same, err := e.hasher.Verify(newPass, profile.PasswordHash)
	if err != nil {
		return err
	}
	if same {
		e.metricInc(MetricPasswordChangeDenied)
		e.emitAudit(ctx, auditEventPasswordChangeDeny, false, id, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	hash, err := e.hasher.Hash(newPass)
	if err != nil {
		return err
	}
	next := profile.Clone()
	next.PasswordHash = hash
	if err := e.store.Update(ctx, next); err != nil {
		return storeErr(err)
	}

	if err := storeErr(e.lockout.RecordSuccess(ctx, id)); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChanged, true, id, "", nil, nil)
	return nil
}

// RecoverIdentifier resolves a registered contact point back to the
// member identifier, the "forgot my ID" flow. contact may be the
// email or the mobile number.
func (e *Engine) RecoverIdentifier(ctx context.Context, contact string) (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}

	var (
		id  string
		err error
	)
	switch {
	case mobilePattern.MatchString(contact):
		id, err = e.store.FindByMobile(ctx, contact)
	case emailPattern.MatchString(contact):
		id, err = e.store.FindByEmail(ctx, contact)
	default:
		return "", fmt.Errorf("%w: contact must be an email or a 10-digit mobile", ErrInvalidInput)
	}

	if err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventIdentifierRecovery, false, "", "", err, nil)
		return "", err
	}

	e.metricInc(MetricIdentifierRecovery)
	e.emitAudit(ctx, auditEventIdentifierRecovery, true, id, "", nil, nil)
	return id, nil
}
