package campusauth

import "sync/atomic"

// MetricID indexes the engine's flat counter set.
type MetricID uint16

const (
	MetricSignupSuccess MetricID = iota
	MetricSignupDuplicate
	MetricSignupFailure
	MetricSigninSuccess
	MetricSigninFailure
	MetricSigninLocked
	MetricOTPIssued
	MetricOTPResent
	MetricOTPVerified
	MetricOTPFailure
	MetricOTPExpired
	MetricOTPDeliveryFailure
	MetricAccountLocked
	MetricAccountUnlocked
	MetricSessionCreated
	MetricSessionExpired
	MetricSessionDestroyed
	MetricPasswordChangeSuccess
	MetricPasswordChangeDenied
	MetricProfileUpdate
	MetricIdentifierRecovery
	MetricBackupRun
	MetricRestoreRun
	metricIDCount
)

const cacheLineSize = 64

// paddedCounter keeps adjacent counters on separate cache lines so
// hot increments do not false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the engine's in-process counter set. Disabled metrics
// cost a single branch per increment.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates the counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc bumps one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}
