package campusauth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/campusworks/campusauth/notify"
)

// captureSender records deliveries so tests can read the code back.
type captureSender struct {
	mu    sync.Mutex
	sends []string
	fail  error
}

func (c *captureSender) Send(_ context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sends = append(c.sends, body)
	return nil
}

// lastCode returns the most recent delivered body. The test config
// uses a bare %s template, so the body is the code itself.
func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sends) == 0 {
		t.Fatal("no code delivered")
	}
	return c.sends[len(c.sends)-1]
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func (c *captureSender) setFail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

type testEngine struct {
	*Engine
	mr    *miniredis.Miniredis
	sms   *captureSender
	email *captureSender
	sink  *ChannelSink
}

// newTestEngine builds an engine on miniredis with capture channels
// and low-cost password hashing. mutate tweaks the config before
// Build.
func newTestEngine(t *testing.T, mutate func(*Config)) *testEngine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Notify.BodyTemplate = "%s"
	if mutate != nil {
		mutate(&cfg)
	}

	sms := &captureSender{}
	email := &captureSender{}
	sink := NewChannelSink(256)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithNotifier(&notify.Router{SMS: sms, Email: email}).
		WithAuditSink(sink).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, mr: mr, sms: sms, email: email, sink: sink}
}

func collegeSignup() SignupRequest {
	return SignupRequest{
		Name:       "Asha Verma",
		Institute:  "Meridian College",
		Department: "Physics",
		CampusType: CampusCollege,
		Email:      "asha@meridian.edu",
		Mobile:     "9876543210",
		Password:   "Str0ng!pass",
		Fields:     []string{"Mechanics", "Optics"},
	}
}

// mustSignup registers the member and logs the auto-session out so
// tests start from a clean signin state.
func mustSignup(t *testing.T, e *testEngine, req SignupRequest) string {
	t.Helper()
	res, err := e.Signup(context.Background(), req)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := e.Logout(context.Background(), res.Session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	return res.Identifier
}

// mustSignin walks the full password+OTP flow to a live session.
func mustSignin(t *testing.T, e *testEngine, id, mobile, pass string) SigninResult {
	t.Helper()
	ctx := context.Background()
	_, err := e.Signin(ctx, id, mobile, pass)
	if !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("Signin: %v, want ErrOTPRequired", err)
	}
	res, err := e.ConfirmSigninOTP(ctx, id, e.sms.lastCode(t))
	if err != nil {
		t.Fatalf("ConfirmSigninOTP: %v", err)
	}
	return res
}

// drainAudit flushes the dispatcher and collects everything buffered
// in the sink. It closes the engine, so call it only at the end of a
// test.
func (e *testEngine) drainAudit() []AuditEvent {
	e.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-e.sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasAuditEvent(events []AuditEvent, eventType string) bool {
	for _, ev := range events {
		if ev.EventType == eventType {
			return true
		}
	}
	return false
}
