package campusauth

import (
	"sync"
	"testing"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricSigninSuccess)
	m.Inc(MetricSigninSuccess)
	m.Inc(MetricAccountLocked)
	if got := m.Value(MetricSigninSuccess); got != 2 {
		t.Fatalf("signin successes %d, want 2", got)
	}
	if got := m.Value(MetricSigninFailure); got != 0 {
		t.Fatalf("signin failures %d, want 0", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricSigninSuccess] != 2 || snap.Counters[MetricAccountLocked] != 1 {
		t.Fatalf("snapshot %+v", snap.Counters)
	}
	if len(snap.Counters) != int(metricIDCount) {
		t.Fatalf("snapshot size %d, want %d", len(snap.Counters), metricIDCount)
	}

	// Out-of-range ids are ignored, not a panic.
	m.Inc(metricIDCount + 10)
	if got := m.Value(metricIDCount + 10); got != 0 {
		t.Fatalf("out-of-range value %d", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	if m.Enabled() {
		t.Fatal("metrics enabled by default")
	}

	m.Inc(MetricSigninSuccess)
	if got := m.Value(MetricSigninSuccess); got != 0 {
		t.Fatalf("disabled counter %d, want 0", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot %+v", snap.Counters)
	}
}

func TestMetricsConcurrent(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricSessionCreated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCreated); got != 8000 {
		t.Fatalf("sessions created %d, want 8000", got)
	}
}
