// Package otp manages one-time verification codes: numeric codes with
// a short validity window, at most one live challenge per identifier,
// and exactly-once consumption. Challenges live in the record store's
// auxiliary tables; only a digest of the code is stored.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/campusworks/campusauth/store"
)

// Defaults match the portal policy: six digits, five minutes, three
// verification attempts, and three resends per challenge.
const (
	DefaultDigits      = 6
	DefaultTTL         = 5 * time.Minute
	DefaultMaxAttempts = 3
	DefaultMaxResends  = 3
)

// expiredGrace keeps a challenge readable for a short time past its
// validity window, so verifying a stale code reports ErrExpired
// instead of the weaker ErrNoChallenge.
const expiredGrace = time.Minute

var (
	// ErrNoChallenge is returned when no challenge exists for the
	// identifier.
	ErrNoChallenge = errors.New("no pending verification code")
	// ErrExpired is returned when the challenge's validity window has
	// passed. The challenge is removed; the caller must request a new
	// code.
	ErrExpired = errors.New("verification code expired")
	// ErrMismatch is returned when the submitted code is wrong. The
	// challenge stays live until its attempt cap.
	ErrMismatch = errors.New("verification code mismatch")
	// ErrAttemptsExceeded is returned when a challenge burns its last
	// allowed attempt; the challenge is removed.
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrResendLimit is returned when a challenge has already been
	// resent the maximum number of times.
	ErrResendLimit = errors.New("verification resend limit reached")
)

// Config tunes the OTP policy. Zero fields fall back to the defaults.
type Config struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
	MaxResends  int
}

// Manager issues and verifies codes. All mutations run through the
// store's serialized read-modify-write, so two concurrent verifies of
// the same challenge cannot both consume it.
type Manager struct {
	store *store.Store
	cfg   Config

	now func() time.Time
}

type challenge struct {
	CodeHash  []byte `json:"code_hash"`
	ExpiresAt int64  `json:"expires_at"`
	Attempts  int    `json:"attempts"`
	Resends   int    `json:"resends"`
}

// NewManager creates a Manager over the given store.
func NewManager(st *store.Store, cfg Config) *Manager {
	if cfg.Digits <= 0 {
		cfg.Digits = DefaultDigits
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxResends <= 0 {
		cfg.MaxResends = DefaultMaxResends
	}
	return &Manager{store: st, cfg: cfg, now: time.Now}
}

// Issue creates a fresh challenge for id and returns the plaintext
// code for delivery. Any existing challenge is superseded.
func (m *Manager) Issue(ctx context.Context, id string) (string, error) {
	code, err := m.newCode()
	if err != nil {
		return "", err
	}
	ch := m.newChallenge(code, 0)
	blob, err := json.Marshal(ch)
	if err != nil {
		return "", err
	}
	if err := m.store.PutAux(ctx, store.AuxOTP, id, blob, m.cfg.TTL+expiredGrace); err != nil {
		return "", err
	}
	return code, nil
}

// Resend replaces the live challenge's code with a fresh one, keeping
// the resend tally. It fails with ErrNoChallenge when nothing is
// pending and ErrResendLimit once the cap is reached.
func (m *Manager) Resend(ctx context.Context, id string) (string, error) {
	code, err := m.newCode()
	if err != nil {
		return "", err
	}

	err = m.store.UpdateAux(ctx, store.AuxOTP, id, func(current []byte) ([]byte, time.Duration, error) {
		if current == nil {
			return nil, 0, ErrNoChallenge
		}
		var ch challenge
		if err := json.Unmarshal(current, &ch); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}
		if m.expired(&ch) {
			// Drop the stale challenge on the way out.
			return nil, 0, store.Commit(ErrExpired)
		}
		if ch.Resends >= m.cfg.MaxResends {
			return nil, 0, ErrResendLimit
		}

		next := m.newChallenge(code, ch.Resends+1)
		blob, err := json.Marshal(next)
		if err != nil {
			return nil, 0, err
		}
		return blob, m.cfg.TTL + expiredGrace, nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks code against the live challenge for id. A match
// consumes the challenge, so a replayed code fails with
// ErrNoChallenge. A mismatch keeps the challenge until its attempt
// cap; an expired challenge is removed.
func (m *Manager) Verify(ctx context.Context, id, code string) error {
	return m.store.UpdateAux(ctx, store.AuxOTP, id, func(current []byte) ([]byte, time.Duration, error) {
		if current == nil {
			return nil, 0, ErrNoChallenge
		}
		var ch challenge
		if err := json.Unmarshal(current, &ch); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}
		if m.expired(&ch) {
			// Drop the stale challenge; the caller must request a
			// fresh code.
			return nil, 0, store.Commit(ErrExpired)
		}

		digest := hashCode(code)
		if subtle.ConstantTimeCompare(digest, ch.CodeHash) == 1 {
			// Consume on success.
			return nil, 0, nil
		}

		ch.Attempts++
		if ch.Attempts >= m.cfg.MaxAttempts {
			return nil, 0, store.Commit(ErrAttemptsExceeded)
		}
		blob, err := json.Marshal(&ch)
		if err != nil {
			return nil, 0, err
		}
		remaining := time.Unix(ch.ExpiresAt, 0).Sub(m.now()) + expiredGrace
		return blob, remaining, store.Commit(ErrMismatch)
	})
}

// Pending reports whether a live, unexpired challenge exists for id.
func (m *Manager) Pending(ctx context.Context, id string) (bool, error) {
	data, err := m.store.GetAux(ctx, store.AuxOTP, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	var ch challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrCorrupt, err)
	}
	return !m.expired(&ch), nil
}

// Cancel removes any challenge for id.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	return m.store.DeleteAux(ctx, store.AuxOTP, id)
}

func (m *Manager) newChallenge(code string, resends int) *challenge {
	return &challenge{
		CodeHash:  hashCode(code),
		ExpiresAt: m.now().Add(m.cfg.TTL).Unix(),
		Resends:   resends,
	}
}

func (m *Manager) expired(ch *challenge) bool {
	return !m.now().Before(time.Unix(ch.ExpiresAt, 0))
}

// newCode draws each digit independently from crypto/rand, so codes
// are uniform over the full range including leading zeros.
func (m *Manager) newCode() (string, error) {
	buf := make([]byte, m.cfg.Digits)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

func hashCode(code string) []byte {
	sum := sha256.Sum256([]byte(code))
	return sum[:]
}
