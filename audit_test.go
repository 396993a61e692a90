package campusauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: "signin_success",
		UserID:    "PHY-1A2B3C4D",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{
		EventType: "signin_failure",
		Error:     "invalid_credentials",
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines %d, want 2", len(lines))
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "signin_success" || ev.UserID != "PHY-1A2B3C4D" || !ev.Success {
		t.Fatalf("event %+v", ev)
	}
}

func TestDispatcherFlushesOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "logout"})
	}
	d.Close()

	got := 0
	for {
		select {
		case <-sink.Events():
			got++
		default:
			if got != 5 {
				t.Fatalf("events %d, want 5", got)
			}
			return
		}
	}
}

// gateSink blocks the dispatcher worker until released.
type gateSink struct {
	release chan struct{}
	got     chan AuditEvent
}

func (s *gateSink) Emit(_ context.Context, ev AuditEvent) {
	<-s.release
	s.got <- ev
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &gateSink{release: make(chan struct{}), got: make(chan AuditEvent, 16)}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// The worker can hold one event in flight and one in the buffer;
	// the rest must be dropped, not block the caller.
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "signin_failure"})
	}
	if d.Dropped() < 3 {
		t.Fatalf("dropped %d, want >= 3", d.Dropped())
	}

	close(sink.release)
	d.Close()
}

func TestSessionFingerprint(t *testing.T) {
	if sessionFingerprint("") != "" {
		t.Fatal("empty token must have no fingerprint")
	}

	token := "c29tZS1vcGFxdWUtdG9rZW4"
	fp := sessionFingerprint(token)
	if len(fp) != 12 {
		t.Fatalf("fingerprint %q, want 12 hex chars", fp)
	}
	if strings.Contains(token, fp) {
		t.Fatal("fingerprint leaks token material")
	}
	if sessionFingerprint(token) != fp {
		t.Fatal("fingerprint must be stable")
	}
}

func TestAuditNeverCarriesRawToken(t *testing.T) {
	e := newTestEngine(t, nil)
	res, err := e.Signup(context.Background(), collegeSignup())
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	token := res.Session.Token

	for _, ev := range e.drainAudit() {
		if ev.SessionID == token {
			t.Fatalf("event %q carries the raw token", ev.EventType)
		}
		for k, v := range ev.Metadata {
			if v == token {
				t.Fatalf("event %q metadata %q carries the raw token", ev.EventType, k)
			}
		}
	}
}
