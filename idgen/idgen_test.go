package idgen

import (
	"strings"
	"testing"
)

func TestNanoID_LengthAndAlphabet(t *testing.T) {
	gen := NanoID(12)
	seen := map[string]bool{}
	for range 100 {
		id := gen()
		if len(id) != 12 {
			t.Fatalf("length: got %d, want 12", len(id))
		}
		for _, c := range id {
			if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", c) {
				t.Fatalf("unexpected character %q in %q", c, id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate ID in 100 draws: %q", id)
		}
		seen[id] = true
	}
}

func TestUUIDv7_SortableAndUnique(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a == b {
		t.Fatal("consecutive UUIDv7 values must differ")
	}
	if len(a) != 36 {
		t.Fatalf("uuid length: got %d", len(a))
	}
	// v7 is time-ordered: the earlier draw sorts first.
	if a > b {
		t.Fatalf("uuid v7 not time-sortable: %q > %q", a, b)
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("aud_", func() string { return "fixed" })
	if got := gen(); got != "aud_fixed" {
		t.Fatalf("got %q", got)
	}
}

func TestDefault(t *testing.T) {
	if Default() == Default() {
		t.Fatal("Default generator must produce unique IDs")
	}
}
