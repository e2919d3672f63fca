package uuid

import (
	"strings"
	"testing"
	"time"
)

func TestNewV7Format(t *testing.T) {
	u := NewV7()
	s := u.String()

	if len(s) != 36 {
		t.Fatalf("expected 36-char string, got %d (%s)", len(s), s)
	}
	for _, pos := range []int{8, 13, 18, 23} {
		if s[pos] != '-' {
			t.Errorf("expected dash at position %d in %s", pos, s)
		}
	}
	if s[14] != '7' {
		t.Errorf("expected version nibble 7, got %c in %s", s[14], s)
	}
	if !strings.ContainsRune("89ab", rune(s[19])) {
		t.Errorf("expected RFC 4122 variant nibble, got %c in %s", s[19], s)
	}
}

func TestNewV7Uniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s := NewV7().String()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate UUID generated: %s", s)
		}
		seen[s] = struct{}{}
	}
}

func TestNewV7TimestampOrdering(t *testing.T) {
	a := NewV7()
	time.Sleep(2 * time.Millisecond)
	b := NewV7()

	// Lexicographic comparison of the string form must follow generation
	// order because the leading 48 bits are a big-endian ms timestamp.
	if a.String() >= b.String() {
		t.Errorf("expected %s < %s", a.String(), b.String())
	}
}
