package session

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager(Config{})

	s, err := m.Create("ASHA-1A2B3C4D", LevelBasic)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Token == "" || s.Level != LevelBasic {
		t.Fatalf("bad session: %+v", s)
	}

	got, err := m.Get(s.Token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Identifier != "ASHA-1A2B3C4D" {
		t.Fatalf("wrong identifier: %q", got.Identifier)
	}
}

func TestTokensAreUnique(t *testing.T) {
	m := NewManager(Config{})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := m.Create("ASHA-1A2B3C4D", LevelBasic)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[s.Token] {
			t.Fatalf("token %q issued twice", s.Token)
		}
		seen[s.Token] = true
	}
}

func TestUnknownToken(t *testing.T) {
	m := NewManager(Config{})
	if _, err := m.Get("no-such-token"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestIdleExpiry(t *testing.T) {
	m := NewManager(Config{IdleTimeout: time.Minute})
	base := time.Now()
	m.now = func() time.Time { return base }

	s, err := m.Create("ASHA-1A2B3C4D", LevelBasic)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Just inside the window: still valid.
	m.now = func() time.Time { return base.Add(59 * time.Second) }
	if _, err := m.Get(s.Token); err != nil {
		t.Fatalf("Get inside window: %v", err)
	}

	// At the boundary: expired, and removed on observation.
	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := m.Get(s.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := m.Get(s.Token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expired session not removed: %v", err)
	}
}

func TestTouchSlidesWindow(t *testing.T) {
	m := NewManager(Config{IdleTimeout: time.Minute})
	base := time.Now()
	m.now = func() time.Time { return base }

	s, err := m.Create("ASHA-1A2B3C4D", LevelBasic)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Touch near the end of the window, then step past the original
	// expiry: the session must still be live.
	m.now = func() time.Time { return base.Add(50 * time.Second) }
	if _, err := m.Touch(s.Token); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	m.now = func() time.Time { return base.Add(100 * time.Second) }
	if _, err := m.Get(s.Token); err != nil {
		t.Fatalf("Get after touch: %v", err)
	}
}

func TestDestroy(t *testing.T) {
	m := NewManager(Config{})
	s, err := m.Create("ASHA-1A2B3C4D", LevelBasic)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Destroy(s.Token); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := m.Get(s.Token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("destroyed token still resolves: %v", err)
	}
	if err := m.Destroy(s.Token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("double destroy not reported: %v", err)
	}
}

func TestDestroyAll(t *testing.T) {
	m := NewManager(Config{})
	for i := 0; i < 3; i++ {
		if _, err := m.Create("ASHA-1A2B3C4D", LevelBasic); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other, err := m.Create("RAVI-AAAA1111", LevelBasic)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if n := m.DestroyAll("ASHA-1A2B3C4D"); n != 3 {
		t.Fatalf("DestroyAll dropped %d, want 3", n)
	}
	if _, err := m.Get(other.Token); err != nil {
		t.Fatalf("unrelated session dropped: %v", err)
	}
}

func TestCapacity(t *testing.T) {
	m := NewManager(Config{Capacity: 3, IdleTimeout: time.Minute})
	base := time.Now()
	m.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if _, err := m.Create("ASHA-1A2B3C4D", LevelBasic); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	if _, err := m.Create("RAVI-AAAA1111", LevelBasic); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}

	// Once the old sessions idle out, a create sweeps them and
	// succeeds.
	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := m.Create("RAVI-AAAA1111", LevelBasic); err != nil {
		t.Fatalf("Create after expiry: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("table holds %d sessions, want 1", m.Len())
	}
}

func TestSweep(t *testing.T) {
	m := NewManager(Config{IdleTimeout: time.Minute})
	base := time.Now()
	m.now = func() time.Time { return base }

	for i := 0; i < 4; i++ {
		if _, err := m.Create("ASHA-1A2B3C4D", LevelBasic); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	m.now = func() time.Time { return base.Add(30 * time.Second) }
	live, err := m.Create("RAVI-AAAA1111", LevelBasic)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.now = func() time.Time { return base.Add(90 * time.Second) }
	if n := m.Sweep(); n != 4 {
		t.Fatalf("swept %d, want 4", n)
	}
	if _, err := m.Get(live.Token); err != nil {
		t.Fatalf("live session swept: %v", err)
	}
}
