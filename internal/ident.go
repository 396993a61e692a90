// Package internal holds small helpers shared by the engine that are
// not part of its public surface.
package internal

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const prefixLen = 4

// NewMemberID derives a member identifier from a display name: an
// uppercase letter prefix followed by eight hex characters of a
// random UUID. Collisions are possible in principle; callers retry on
// a duplicate-identifier conflict.
func NewMemberID(name string) string {
	prefix := namePrefix(name)
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(raw[:8])
}

func namePrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() >= prefixLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "USER"
	}
	return b.String()
}
