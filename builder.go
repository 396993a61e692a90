package campusauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/campusworks/campusauth/internal/limiters"
	"github.com/campusworks/campusauth/notify"
	"github.com/campusworks/campusauth/otp"
	"github.com/campusworks/campusauth/password"
	"github.com/campusworks/campusauth/session"
	"github.com/campusworks/campusauth/store"
)

// Builder assembles an Engine. A zero builder starts from
// DefaultConfig; each With method overrides one dependency or
// setting, and Build validates the whole.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	notifier  *notify.Router
	auditSink AuditSink

	built bool
}

// New starts a Builder with the default policy.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the record store backend. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNotifier sets the code delivery channels. Required when the
// OTP phase is enabled.
func (b *Builder) WithNotifier(r *notify.Router) *Builder {
	b.notifier = r
	return b
}

// WithAuditSink sets the audit destination and enables the trail.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the counter set.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. A builder
// builds once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if cfg.OTP.Required && (b.notifier == nil || len(b.notifier.Channels()) == 0) {
		return nil, errors.New("notifier with at least one channel required when OTP is enabled")
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	st := store.New(b.redis, cfg.Store.KeyPrefix)

	e := &Engine{
		config: cfg,
		store:  st,
		hasher: hasher,
		lockout: limiters.New(st, limiters.Config{
			Threshold:     cfg.Lockout.Threshold,
			LockDuration:  cfg.Lockout.LockDuration,
			CounterWindow: cfg.Lockout.CounterWindow,
		}),
		otp: otp.NewManager(st, otp.Config{
			Digits:      cfg.OTP.Digits,
			TTL:         cfg.OTP.TTL,
			MaxAttempts: cfg.OTP.MaxAttempts,
			MaxResends:  cfg.OTP.MaxResends,
		}),
		sessions: session.NewManager(session.Config{
			Capacity:    cfg.Session.Capacity,
			IdleTimeout: cfg.Session.IdleTimeout,
		}),
		notifier: b.notifier,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
	}

	b.built = true
	return e, nil
}
