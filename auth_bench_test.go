package campusauth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/campusworks/campusauth/notify"
)

func benchEngine(b *testing.B) *Engine {
	b.Helper()

	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.OTP.Required = false

	e, err := New().WithConfig(cfg).WithRedis(client).WithNotifier(&notify.Router{Email: &captureSender{}}).Build()
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	b.Cleanup(e.Close)
	return e
}

func BenchmarkValidateSession(b *testing.B) {
	e := benchEngine(b)

	res, err := e.Signup(context.Background(), collegeSignup())
	if err != nil {
		b.Fatalf("Signup: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.ValidateSession(res.Session.Token); err != nil {
			b.Fatalf("ValidateSession: %v", err)
		}
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricSigninSuccess)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricSigninSuccess)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricSigninSuccess)
		}
	})
}
