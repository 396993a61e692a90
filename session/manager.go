// Package session keeps the live session table in process memory:
// bounded capacity, opaque random tokens, and a sliding idle timeout.
// Sessions do not survive a restart; members sign in again.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"time"
)

// Defaults match the portal policy: at most a hundred concurrent
// sessions, each idle-expiring after thirty minutes.
const (
	DefaultCapacity    = 100
	DefaultIdleTimeout = 30 * time.Minute

	tokenBytes = 16
)

// AuthLevel ranks what a session may do.
type AuthLevel uint8

const (
	LevelBasic AuthLevel = iota + 1
	LevelEnhanced
	LevelAdmin
)

func (l AuthLevel) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelEnhanced:
		return "enhanced"
	case LevelAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalid is returned for tokens that reference no live
	// session.
	ErrInvalid = errors.New("invalid session token")
	// ErrExpired is returned when the session idled out. The session
	// is removed on observation.
	ErrExpired = errors.New("session expired")
	// ErrCapacity is returned when the table is full of live sessions.
	ErrCapacity = errors.New("session table full")
)

// Session is one authenticated presence. Token is opaque: it encodes
// nothing and means nothing off this table.
type Session struct {
	Token        string
	Identifier   string
	Level        AuthLevel
	CreatedAt    time.Time
	LastActivity time.Time
}

// Config tunes the session table. Zero fields fall back to defaults.
type Config struct {
	Capacity    int
	IdleTimeout time.Duration
}

// Manager owns the session table. All methods are safe for concurrent
// use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      Config

	now func() time.Time
}

// NewManager creates an empty session table.
func NewManager(cfg Config) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Create registers a new session for id at the given level and
// returns it. When the table is full, expired entries are swept
// first; if every slot holds a live session, ErrCapacity.
func (m *Manager) Create(id string, level AuthLevel) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.sessions) >= m.cfg.Capacity {
		m.sweepLocked(now)
		if len(m.sessions) >= m.cfg.Capacity {
			return Session{}, ErrCapacity
		}
	}

	s := &Session{
		Token:        token,
		Identifier:   id,
		Level:        level,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.sessions[token] = s
	return *s, nil
}

// Get returns the session for token without extending it. Expired
// sessions are removed on observation and reported as ErrExpired,
// distinct from tokens that were never (or are no longer) valid.
func (m *Manager) Get(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.liveLocked(token)
	if err != nil {
		return Session{}, err
	}
	return *s, nil
}

// Touch extends the session's idle window and returns the refreshed
// session.
func (m *Manager) Touch(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.liveLocked(token)
	if err != nil {
		return Session{}, err
	}
	s.LastActivity = m.now()
	return *s, nil
}

// Destroy removes the session for token. Destroying an unknown token
// reports ErrInvalid so a double logout is visible to the caller.
func (m *Manager) Destroy(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[token]; !ok {
		return ErrInvalid
	}
	delete(m.sessions, token)
	return nil
}

// DestroyAll removes every session belonging to id and returns how
// many were dropped. Used when an account is locked out or removed.
func (m *Manager) DestroyAll(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for token, s := range m.sessions {
		if s.Identifier == id {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}

// Sweep drops every expired session and returns how many were
// removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

// Len reports the number of sessions in the table, live or not yet
// swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) liveLocked(token string) (*Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrInvalid
	}
	if m.now().Sub(s.LastActivity) >= m.cfg.IdleTimeout {
		delete(m.sessions, token)
		return nil, ErrExpired
	}
	return s, nil
}

func (m *Manager) sweepLocked(now time.Time) int {
	n := 0
	for token, s := range m.sessions {
		if now.Sub(s.LastActivity) >= m.cfg.IdleTimeout {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
