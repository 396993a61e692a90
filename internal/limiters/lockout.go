// Package limiters holds the account lockout policy: consecutive
// authentication failures are counted per identifier, and crossing
// the threshold locks the account for a fixed duration.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campusworks/campusauth/store"
)

// Defaults match the portal policy: three strikes, fifteen minutes out.
const (
	DefaultThreshold    = 3
	DefaultLockDuration = 15 * time.Minute
)

// Config tunes the lockout policy.
type Config struct {
	// Threshold is the number of consecutive failures that trips the
	// lock.
	Threshold int64
	// LockDuration is how long a tripped lock holds.
	LockDuration time.Duration
	// CounterWindow bounds how long a failure streak is remembered
	// when no further failures arrive. Zero means the streak only
	// resets on success or unlock.
	CounterWindow time.Duration
}

// Lockout enforces the policy on top of the record store's auxiliary
// tables. The failure counter uses an atomic increment, so two
// concurrent failures can never both observe a sub-threshold count
// and skip the lock.
type Lockout struct {
	store *store.Store
	cfg   Config

	now func() time.Time
}

// New creates a Lockout. Zero config fields fall back to the
// defaults.
func New(st *store.Store, cfg Config) *Lockout {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultLockDuration
	}
	return &Lockout{store: st, cfg: cfg, now: time.Now}
}

// RecordFailure registers one authentication failure for id. It
// returns locked=true exactly when this failure tripped the lock, in
// which case until is the lock expiry. The counter is cleared when
// the lock is taken so the next streak starts from zero.
func (l *Lockout) RecordFailure(ctx context.Context, id string) (locked bool, until time.Time, err error) {
	count, err := l.store.IncrAux(ctx, store.AuxCounter, id, l.cfg.CounterWindow)
	if err != nil {
		return false, time.Time{}, err
	}
	if count < l.cfg.Threshold {
		return false, time.Time{}, nil
	}

	// Lock creation and counter reset are one atomic step; a failure
	// in between cannot strand a streak at the threshold.
	until = l.now().Add(l.cfg.LockDuration)
	value := strconv.FormatInt(until.Unix(), 10)
	if err := l.store.SwapAux(ctx, store.AuxLock, store.AuxCounter, id, []byte(value), l.cfg.LockDuration); err != nil {
		return false, time.Time{}, err
	}
	return true, until, nil
}

// RecordSuccess clears the failure streak for id.
func (l *Lockout) RecordSuccess(ctx context.Context, id string) error {
	return l.store.DeleteAux(ctx, store.AuxCounter, id)
}

// Status reports whether id is currently locked and, if so, until
// when. Storage failures surface as errors; a backend outage is never
// reported as "not locked".
func (l *Lockout) Status(ctx context.Context, id string) (locked bool, until time.Time, err error) {
	data, err := l.store.GetAux(ctx, store.AuxLock, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, err
	}

	expiry, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: bad lock record: %v", store.ErrCorrupt, err)
	}
	until = time.Unix(expiry, 0)

	// The key carries the lock duration as its ttl, but check the
	// recorded expiry too in case the backend kept a stale key.
	if !l.now().Before(until) {
		if err := l.store.DeleteAux(ctx, store.AuxLock, id); err != nil {
			return false, time.Time{}, err
		}
		return false, time.Time{}, nil
	}
	return true, until, nil
}

// Unlock clears both the lock and the failure streak for id.
func (l *Lockout) Unlock(ctx context.Context, id string) error {
	if err := l.store.DeleteAux(ctx, store.AuxLock, id); err != nil {
		return err
	}
	return l.store.DeleteAux(ctx, store.AuxCounter, id)
}
