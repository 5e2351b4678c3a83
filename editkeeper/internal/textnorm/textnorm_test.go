package textnorm

import "testing"

func TestDetectStyle(t *testing.T) {
	cases := []struct {
		text string
		want Style
	}{
		{"", LF},
		{"foo\nbar\n", LF},
		{"foo\r\nbar\r\n", CRLF},
		{"foo\nbar\r\nbaz\n", CRLF}, // mixed: whole-file binary decision
		{"foo\rbar", LF},            // lone CR is not CRLF
	}
	for _, c := range cases {
		if got := DetectStyle(c.text); got != c.want {
			t.Fatalf("DetectStyle(%q): got %v, want %v", c.text, got, c.want)
		}
	}
}

func TestToCanonical(t *testing.T) {
	if got := ToCanonical("a\r\nb\r\n"); got != "a\nb\n" {
		t.Fatalf("got %q", got)
	}
	if got := ToCanonical("a\rb\n"); got != "a\rb\n" {
		t.Fatalf("lone CR must survive: got %q", got)
	}
}

func TestRoundTrip_CRLF(t *testing.T) {
	orig := "a\r\nb\r\nc\r\n"
	canon := ToCanonical(orig)
	if canon != "a\nb\nc\n" {
		t.Fatalf("canonical: got %q", canon)
	}
	if got := ToOriginal(canon, CRLF); got != orig {
		t.Fatalf("round trip: got %q, want %q", got, orig)
	}
}

func TestToOriginal_LFPassThrough(t *testing.T) {
	if got := ToOriginal("a\nb\n", LF); got != "a\nb\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRoundTrip_MixedForcedUniform(t *testing.T) {
	// Documented behavior: mixed input comes back uniformly CRLF.
	mixed := "a\r\nb\nc\r\n"
	style := DetectStyle(mixed)
	got := ToOriginal(ToCanonical(mixed), style)
	if got != "a\r\nb\r\nc\r\n" {
		t.Fatalf("got %q", got)
	}
}
