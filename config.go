package campusauth

import (
	"errors"
	"time"
)

// Config collects every tunable of the engine. Instances are treated
// as immutable after Build; the Builder clones on the way in.
type Config struct {
	Store    StoreConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	OTP      OTPConfig
	Session  SessionConfig
	Notify   NotifyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// StoreConfig namespaces the record store's keys.
type StoreConfig struct {
	KeyPrefix string
}

// PasswordConfig sets the argon2id costs for new digests and whether
// weaker digests are transparently rehashed after a successful
// signin.
type PasswordConfig struct {
	Memory        uint32 // in KB
	Time          uint32
	Parallelism   uint8
	SaltLength    uint32
	KeyLength     uint32
	RehashOnLogin bool
}

// LockoutConfig sets the failure threshold and lock duration.
type LockoutConfig struct {
	Threshold     int64
	LockDuration  time.Duration
	CounterWindow time.Duration
}

// OTPConfig sets the signin verification code policy. Required turns
// the OTP phase of signin on and off; with it off a password match
// signs the member in directly.
type OTPConfig struct {
	Required       bool
	Digits         int
	TTL            time.Duration
	MaxAttempts    int
	MaxResends     int
	DeliverTimeout time.Duration
}

// SessionConfig bounds the in-memory session table.
type SessionConfig struct {
	Capacity    int
	IdleTimeout time.Duration
}

// NotifyConfig shapes the delivered messages.
type NotifyConfig struct {
	EmailSubject string
	// BodyTemplate must contain one %s verb for the code.
	BodyTemplate string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the portal's standard policy: three failed
// attempts lock for fifteen minutes, six-digit codes valid five
// minutes with three resends, a hundred sessions idling out after
// thirty minutes.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			KeyPrefix: "cp",
		},
		Password: PasswordConfig{
			Memory:        64 * 1024,
			Time:          3,
			Parallelism:   2,
			SaltLength:    16,
			KeyLength:     32,
			RehashOnLogin: true,
		},
		Lockout: LockoutConfig{
			Threshold:    3,
			LockDuration: 15 * time.Minute,
		},
		OTP: OTPConfig{
			Required:       true,
			Digits:         6,
			TTL:            5 * time.Minute,
			MaxAttempts:    3,
			MaxResends:     3,
			DeliverTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Capacity:    100,
			IdleTimeout: 30 * time.Minute,
		},
		Notify: NotifyConfig{
			EmailSubject: "Your verification code",
			BodyTemplate: "Your campus portal verification code is %s. It expires in 5 minutes.",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate rejects configurations the engine cannot run safely.
func (c *Config) Validate() error {
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.LockDuration <= 0 {
		return errors.New("Lockout LockDuration must be > 0")
	}
	if c.Lockout.CounterWindow < 0 {
		return errors.New("Lockout CounterWindow must be >= 0")
	}

	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 4 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.MaxResends < 0 {
		return errors.New("OTP MaxResends must be >= 0")
	}
	if c.OTP.DeliverTimeout <= 0 {
		return errors.New("OTP DeliverTimeout must be > 0")
	}

	if c.Session.Capacity <= 0 {
		return errors.New("Session Capacity must be > 0")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}

	if c.Notify.BodyTemplate == "" {
		return errors.New("Notify BodyTemplate must not be empty")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
