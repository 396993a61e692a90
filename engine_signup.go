package campusauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusworks/campusauth/internal"
	"github.com/campusworks/campusauth/password"
	"github.com/campusworks/campusauth/store"
)

// idRetries bounds identifier regeneration on the (rare) collision of
// a freshly generated identifier.
const idRetries = 3

// Signup registers a member and signs them straight in with a
// basic-level session. Email and mobile must be unused; a conflict
// surfaces as ErrEmailExists or ErrMobileExists with nothing written.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	if err := e.checkOpen(); err != nil {
		return SignupResult{}, err
	}

	if err := validateSignup(&req); err != nil {
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", err, nil)
		return SignupResult{}, err
	}
	if err := password.CheckStrength(req.Password); err != nil {
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", ErrWeakPassword, nil)
		return SignupResult{}, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", err, nil)
		return SignupResult{}, err
	}

	profile := &store.Profile{
		Name:         req.Name,
		Institute:    req.Institute,
		Department:   req.Department,
		CampusType:   req.CampusType,
		Email:        req.Email,
		Mobile:       req.Mobile,
		PasswordHash: hash,
		Fields:       profileFields(req.CampusType, req.Fields),
	}

	var createErr error
	for i := 0; i < idRetries; i++ {
		profile.Identifier = internal.NewMemberID(req.Name)
		createErr = e.store.Create(ctx, profile)
		if !errors.Is(createErr, store.ErrDuplicateIdentifier) {
			break
		}
	}
	if createErr != nil {
		createErr = storeErr(createErr)
		if errors.Is(createErr, ErrEmailExists) || errors.Is(createErr, ErrMobileExists) || errors.Is(createErr, ErrIdentifierExists) {
			e.metricInc(MetricSignupDuplicate)
			e.emitAudit(ctx, auditEventSignupDuplicate, false, "", "", createErr, nil)
		} else {
			e.metricInc(MetricSignupFailure)
			e.emitAudit(ctx, auditEventSignupFailure, false, "", "", createErr, nil)
		}
		return SignupResult{}, createErr
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, profile.Identifier, "", nil, func() map[string]string {
		return map[string]string{"campus_type": profile.CampusType.String()}
	})

	s, err := e.createSession(ctx, profile.Identifier, LevelBasic)
	if err != nil {
		// Registered but not signed in; the member can sign in
		// normally.
		return SignupResult{Identifier: profile.Identifier}, err
	}
	return SignupResult{Identifier: profile.Identifier, Session: s}, nil
}

func (e *Engine) createSession(ctx context.Context, id string, level AuthLevel) (SessionInfo, error) {
	s, err := e.sessions.Create(id, level)
	if err != nil {
		mapped := sessionErr(e, err)
		e.emitAudit(ctx, auditEventSessionCreated, false, id, "", mapped, nil)
		return SessionInfo{}, mapped
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, id, s.Token, nil, func() map[string]string {
		return map[string]string{"level": level.String()}
	})
	return sessionInfo(s), nil
}
