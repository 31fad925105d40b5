package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIsUUID(t *testing.T) {
	a, b := New(), New()
	if a == b {
		t.Fatal("expected distinct identifiers")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected uuid, got %q: %v", a, err)
	}
}

func TestFromHeader(t *testing.T) {
	if got := FromHeader(" req-42 "); got != "req-42" {
		t.Fatalf("expected caller id to be kept, got %q", got)
	}
	for _, bad := range []string{"", "has space", "tab\there", strings.Repeat("x", maxLen+1), "naïve"} {
		got := FromHeader(bad)
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("FromHeader(%q) = %q, expected a fresh uuid", bad, got)
		}
	}
}
