package internal

import (
	"regexp"
	"testing"
)

var idShape = regexp.MustCompile(`^[A-Z]{1,4}-[0-9A-F]{8}$`)

func TestNewMemberID(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
	}{
		{"Asha Verma", "ASHA"},
		{"ab", "AB"},
		{"  b. k. iyer ", "BKIY"},
		{"12345", "USER"},
		{"", "USER"},
	}
	for _, tc := range cases {
		id := NewMemberID(tc.name)
		if !idShape.MatchString(id) {
			t.Errorf("%q: id %q has the wrong shape", tc.name, id)
		}
		if got := id[:len(tc.prefix)]; got != tc.prefix {
			t.Errorf("%q: prefix %q, want %q", tc.name, got, tc.prefix)
		}
	}
}

func TestNewMemberIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewMemberID("Asha Verma")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
