// Package campusauth is the identity and session engine of the
// campus-member portal: signup with atomic uniqueness over
// identifier, email, and mobile; password-plus-OTP signin with
// lockout after repeated failures; an in-memory bounded session
// table; and an append-only audit trail. Applications embed the
// Engine and bring their own Redis client and delivery channels.
package campusauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/campusworks/campusauth/internal/limiters"
	"github.com/campusworks/campusauth/notify"
	"github.com/campusworks/campusauth/otp"
	"github.com/campusworks/campusauth/password"
	"github.com/campusworks/campusauth/session"
	"github.com/campusworks/campusauth/store"
)

// Engine is the authentication orchestrator. Construct one with the
// Builder; all methods are safe for concurrent use.
type Engine struct {
	config   Config
	store    *store.Store
	hasher   *password.Hasher
	lockout  *limiters.Lockout
	otp      *otp.Manager
	sessions *session.Manager
	notifier *notify.Router
	audit    *auditDispatcher
	metrics  *Metrics

	closed atomic.Bool
}

// Close drains the audit dispatcher. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.audit.Close()
}

func (e *Engine) checkOpen() error {
	if e == nil || e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Ping verifies the record store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return storeErr(e.store.Ping(ctx))
}

/*
====================================
SESSION FACADE
====================================
*/

// ValidateSession resolves a token without extending it.
func (e *Engine) ValidateSession(token string) (SessionInfo, error) {
	if err := e.checkOpen(); err != nil {
		return SessionInfo{}, err
	}
	s, err := e.sessions.Get(token)
	if err != nil {
		return SessionInfo{}, sessionErr(e, err)
	}
	return sessionInfo(s), nil
}

// TouchSession extends a session's idle window.
func (e *Engine) TouchSession(token string) (SessionInfo, error) {
	if err := e.checkOpen(); err != nil {
		return SessionInfo{}, err
	}
	s, err := e.sessions.Touch(token)
	if err != nil {
		return SessionInfo{}, sessionErr(e, err)
	}
	return sessionInfo(s), nil
}

// Logout destroys the session for token. The token is dead however
// the call resolves.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	s, err := e.sessions.Get(token)
	id := ""
	if err == nil {
		id = s.Identifier
	}

	if err := e.sessions.Destroy(token); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, id, token, ErrSessionInvalid, nil)
		return ErrSessionInvalid
	}

	e.metricInc(MetricSessionDestroyed)
	e.emitAudit(ctx, auditEventLogout, true, id, token, nil, nil)
	return nil
}

// SweepSessions drops expired sessions and returns how many went.
func (e *Engine) SweepSessions() int {
	n := e.sessions.Sweep()
	for i := 0; i < n; i++ {
		e.metricInc(MetricSessionExpired)
	}
	return n
}

/*
====================================
ADMIN SURFACE
====================================
*/

// UnlockAccount clears the lock and failure streak for id,
// unconditionally. An administrative action; it is always audited.
func (e *Engine) UnlockAccount(ctx context.Context, id string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	if err := storeErr(e.lockout.Unlock(ctx, id)); err != nil {
		e.emitAudit(ctx, auditEventAccountUnlocked, false, id, "", err, nil)
		return err
	}

	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, id, "", nil, nil)
	return nil
}

// BackupProfiles streams every profile to w as JSON lines.
func (e *Engine) BackupProfiles(ctx context.Context, w io.Writer) (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	n, err := e.store.Backup(ctx, w)
	if err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventBackup, false, "", "", err, nil)
		return n, err
	}

	e.metricInc(MetricBackupRun)
	e.emitAudit(ctx, auditEventBackup, true, "", "", nil, func() map[string]string {
		return map[string]string{"profiles": strconv.Itoa(n)}
	})
	return n, nil
}

// RestoreProfiles reads JSON-line profiles from r, skipping ones
// whose identifier or contact points already exist.
func (e *Engine) RestoreProfiles(ctx context.Context, r io.Reader) (restored, skipped int, err error) {
	if err := e.checkOpen(); err != nil {
		return 0, 0, err
	}

	restored, skipped, err = e.store.Restore(ctx, r)
	if err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventRestore, false, "", "", err, nil)
		return restored, skipped, err
	}

	e.metricInc(MetricRestoreRun)
	e.emitAudit(ctx, auditEventRestore, true, "", "", nil, func() map[string]string {
		return map[string]string{"restored": strconv.Itoa(restored), "skipped": strconv.Itoa(skipped)}
	})
	return restored, skipped, nil
}

/*
====================================
ERROR MAPPING
====================================
*/

// storeErr folds store sentinel errors into the engine's vocabulary.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrProfileNotFound
	case errors.Is(err, store.ErrDuplicateIdentifier):
		return ErrIdentifierExists
	case errors.Is(err, store.ErrDuplicateEmail):
		return ErrEmailExists
	case errors.Is(err, store.ErrDuplicateMobile):
		return ErrMobileExists
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func sessionErr(e *Engine, err error) error {
	switch {
	case errors.Is(err, session.ErrExpired):
		e.metricInc(MetricSessionExpired)
		return ErrSessionExpired
	case errors.Is(err, session.ErrCapacity):
		return ErrSessionLimit
	default:
		return ErrSessionInvalid
	}
}
