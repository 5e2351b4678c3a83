package udiff

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestGenerateSingleLineChange(t *testing.T) {
	before := "a\nb\nc\n"
	after := "a\nx\nc\n"

	got, err := Generate("f.txt", before, after)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "--- a/f.txt\n+++ b/f.txt\n@@ -1,3 +1,3 @@\n a\n-b\n+x\n c\n"
	if got != want {
		t.Fatalf("diff mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateIdenticalInputs(t *testing.T) {
	got, err := Generate("f.txt", "same\n", "same\n")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty diff, got %q", got)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	before := "one\ntwo\nthree\nfour\nfive\n"
	after := "one\n2\nthree\nfour\n5\n"

	first, err := Generate("f.txt", before, after)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := Generate("f.txt", before, after)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first != second {
		t.Fatal("same inputs produced different diffs")
	}
}

func TestGenerateNoFinalNewline(t *testing.T) {
	before := "a\nb"
	after := "a\nc"

	got, err := Generate("f", before, after)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(got, "\\ No newline at end of file\n") {
		t.Fatalf("missing no-newline marker:\n%s", got)
	}

	applied, err := Apply(got, before)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied != after {
		t.Fatalf("applied = %q, want %q", applied, after)
	}
}

func TestGenerateIntoEmptyFile(t *testing.T) {
	got, err := Generate("f", "", "x\n")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "--- a/f\n+++ b/f\n@@ -0,0 +1 @@\n+x\n"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateToEmptyFile(t *testing.T) {
	got, err := Generate("f", "x\n", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "--- a/f\n+++ b/f\n@@ -1 +0,0 @@\n-x\n"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateRoundTrip(t *testing.T) {
	many := func(n int) string {
		var b strings.Builder
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, "line %d\n", i)
		}
		return b.String()
	}
	big := many(60)

	cases := []struct {
		name          string
		before, after string
	}{
		{"replace middle", "a\nb\nc\nd\n", "a\nB\nc\nd\n"},
		{"insert block", "a\nd\n", "a\nb\nc\nd\n"},
		{"delete block", "a\nb\nc\nd\n", "a\nd\n"},
		{"rewrite everything", "old\ncontent\n", "entirely\nnew\nbody\nhere\n"},
		{"append at end", "a\nb\n", "a\nb\nc\n"},
		{"prepend at start", "b\nc\n", "a\nb\nc\n"},
		{"gain final newline", "a\nb", "a\nb\n"},
		{"lose final newline", "a\nb\n", "a\nb"},
		{"two far apart changes", big, strings.Replace(strings.Replace(big, "line 2\n", "LINE 2\n", 1), "line 50\n", "LINE 50\n", 1)},
		{"blank lines", "a\n\n\nb\n", "a\n\nb\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			diff, err := Generate("f.txt", tc.before, tc.after)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			applied, err := Apply(diff, tc.before)
			if err != nil {
				t.Fatalf("Apply: %v\ndiff:\n%s", err, diff)
			}
			if applied != tc.after {
				t.Fatalf("round trip mismatch:\ngot %q\nwant %q\ndiff:\n%s", applied, tc.after, diff)
			}
		})
	}
}

func TestGenerateRoundTripEveryLine(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "func handler%d() { return %d }\n", i, i)
	}
	before := b.String()

	for i := 1; i <= 40; i++ {
		old := fmt.Sprintf("func handler%d() { return %d }\n", i, i)
		after := strings.Replace(before, old, fmt.Sprintf("func handler%d() { return -1 }\n", i), 1)

		diff, err := Generate("f.go", before, after)
		if err != nil {
			t.Fatalf("line %d: Generate: %v", i, err)
		}
		applied, err := Apply(diff, before)
		if err != nil {
			t.Fatalf("line %d: Apply: %v\ndiff:\n%s", i, err, diff)
		}
		if applied != after {
			t.Fatalf("line %d: round trip mismatch\ndiff:\n%s", i, diff)
		}
	}
}

func TestGenerateRoundTripReorder(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = fmt.Sprintf("entry %02d\n", i)
	}
	before := strings.Join(lines, "")

	// Move the first half below the second half.
	after := strings.Join(append(append([]string{}, lines[15:]...), lines[:15]...), "")

	diff, err := Generate("f.txt", before, after)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	applied, err := Apply(diff, before)
	if err != nil {
		t.Fatalf("Apply: %v\ndiff:\n%s", err, diff)
	}
	if applied != after {
		t.Fatalf("round trip mismatch:\ngot %q\nwant %q", applied, after)
	}
}

func TestGenerateRoundTripRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	randomFile := func(maxLines int) string {
		var b strings.Builder
		n := rng.Intn(maxLines)
		for range n {
			// Mostly distinct lines, some duplicates and blanks.
			switch rng.Intn(10) {
			case 0:
				b.WriteString("\n")
			case 1:
				b.WriteString("shared\n")
			default:
				fmt.Fprintf(&b, "line %d\n", rng.Intn(1000))
			}
		}
		if n > 0 && rng.Intn(10) == 0 {
			b.WriteString("tail without newline")
		}
		return b.String()
	}

	mutate := func(text string) string {
		lines := splitLines(text)
		for range 1 + rng.Intn(4) {
			switch rng.Intn(3) {
			case 0: // replace
				if len(lines) == 0 {
					continue
				}
				lines[rng.Intn(len(lines))] = fmt.Sprintf("changed %d\n", rng.Intn(1000))
			case 1: // insert
				pos := rng.Intn(len(lines) + 1)
				lines = append(lines[:pos], append([]string{fmt.Sprintf("new %d\n", rng.Intn(1000))}, lines[pos:]...)...)
			case 2: // delete
				if len(lines) == 0 {
					continue
				}
				pos := rng.Intn(len(lines))
				lines = append(lines[:pos], lines[pos+1:]...)
			}
		}
		return strings.Join(lines, "")
	}

	for i := range 300 {
		before := randomFile(80)
		after := mutate(before)

		diff, err := Generate("f.txt", before, after)
		if err != nil {
			t.Fatalf("iter %d: Generate: %v\nbefore %q\nafter %q", i, err, before, after)
		}
		if before == after {
			if diff != "" {
				t.Fatalf("iter %d: expected empty diff for identical inputs", i)
			}
			continue
		}
		applied, err := Apply(diff, before)
		if err != nil {
			t.Fatalf("iter %d: Apply: %v\ndiff:\n%s", i, err, diff)
		}
		if applied != after {
			t.Fatalf("iter %d: round trip mismatch\nbefore %q\nafter %q\ndiff:\n%s", i, before, after, diff)
		}
	}
}

func TestGenerateTwoHunks(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	before := b.String()
	after := strings.Replace(before, "line 3\n", "LINE 3\n", 1)
	after = strings.Replace(after, "line 35\n", "LINE 35\n", 1)

	diff, err := Generate("f.txt", before, after)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n := strings.Count(diff, "@@ -"); n != 2 {
		t.Fatalf("expected 2 hunks, got %d:\n%s", n, diff)
	}
}

func TestApplyHandwrittenDiff(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -1,3 +1,3 @@\n a\n-b\n+x\n c\n"
	got, err := Apply(diff, "a\nb\nc\n")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\nx\nc\n" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyWithoutFileHeaders(t *testing.T) {
	diff := "@@ -1,2 +1,2 @@\n a\n-b\n+x\n"
	got, err := Apply(diff, "a\nb\n")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\nx\n" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyContextMismatch(t *testing.T) {
	diff := "@@ -1,3 +1,3 @@\n a\n-b\n+x\n c\n"
	if _, err := Apply(diff, "a\nDIFFERENT\nc\n"); !errors.Is(err, ErrNoApply) {
		t.Fatalf("err = %v, want ErrNoApply", err)
	}
}

func TestApplyDeletionMismatch(t *testing.T) {
	diff := "@@ -1,2 +1,1 @@\n a\n-b\n"
	if _, err := Apply(diff, "a\nc\n"); !errors.Is(err, ErrNoApply) {
		t.Fatalf("err = %v, want ErrNoApply", err)
	}
}

func TestApplyBeyondEndOfFile(t *testing.T) {
	diff := "@@ -10,1 +10,1 @@\n-x\n+y\n"
	if _, err := Apply(diff, "a\n"); !errors.Is(err, ErrNoApply) {
		t.Fatalf("err = %v, want ErrNoApply", err)
	}
}

func TestApplyMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"no hunks":         "--- a/f\n+++ b/f\n",
		"garbage":          "this is not a diff\n",
		"bad body prefix":  "@@ -1,1 +1,1 @@\n?what\n",
		"truncated hunk":   "@@ -1,2 +1,2 @@\n a\n",
		"count overrun":    "@@ -1,1 +1,1 @@\n a\n-b\n+c\n",
		"orphan marker":    "@@ -1,1 +1,1 @@\n\\ No newline at end of file\n",
		"junk after hunks": "@@ -1,1 +1,1 @@\n-a\n+b\ntrailing junk\n",
	}
	for name, diff := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Apply(diff, "a\nb\n"); !errors.Is(err, ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestApplyNoNewlineMarkers(t *testing.T) {
	diff := "@@ -1,2 +1,2 @@\n a\n-b\n\\ No newline at end of file\n+c\n\\ No newline at end of file\n"
	got, err := Apply(diff, "a\nb")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\nc" {
		t.Fatalf("got %q, want %q", got, "a\nc")
	}
}

func TestApplyInsertionIntoEmpty(t *testing.T) {
	got, err := Apply("@@ -0,0 +1,2 @@\n+a\n+b\n", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\nb\n" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyBlankContextLine(t *testing.T) {
	// Some producers emit a bare empty line for blank context.
	diff := "@@ -1,3 +1,3 @@\n a\n\n-b\n+c\n"
	got, err := Apply(diff, "a\n\nb\n")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\n\nc\n" {
		t.Fatalf("got %q", got)
	}
}

func TestStats(t *testing.T) {
	diff := "--- a/f\n+++ b/f\n@@ -1,3 +1,4 @@\n a\n-b\n+x\n+y\n c\n"
	added, removed := Stats(diff)
	if added != 2 || removed != 1 {
		t.Fatalf("Stats = (%d, %d), want (2, 1)", added, removed)
	}
}

func TestStatsIgnoresHeadersAndMarkers(t *testing.T) {
	diff := "--- a/f\n+++ b/f\n@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+b\n\\ No newline at end of file\n"
	added, removed := Stats(diff)
	if added != 1 || removed != 1 {
		t.Fatalf("Stats = (%d, %d), want (1, 1)", added, removed)
	}
}

func TestSplitLines(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a\n"}},
		{"a\nb", []string{"a\n", "b"}},
		{"a\nb\n", []string{"a\n", "b\n"}},
		{"\n", []string{"\n"}},
	}
	for _, tc := range cases {
		got := splitLines(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("splitLines(%q) = %q, want %q", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("splitLines(%q) = %q, want %q", tc.in, got, tc.want)
			}
		}
	}
}
