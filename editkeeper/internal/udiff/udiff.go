// CLAUDE:SUMMARY Deterministic unified diff generation and strict positional apply over canonical-LF text.
// Package udiff generates and applies unified diffs over canonical-LF text.
//
// Generation runs the sergi/go-diff engine over a rune-per-line encoding
// with a fixed 3-line context and deterministic hunk placement: the same
// input pair
// always yields byte-identical diff text. Every generated diff is
// immediately re-applied to the "before" text and compared against "after"
// byte-for-byte; a mismatch is an internal consistency fault, never a
// caller error, because a tool about to hand out an authoritative patch
// must be able to apply its own output.
package udiff

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ContextLines is the fixed unified-diff context width.
const ContextLines = 3

// ErrRoundTrip reports that a freshly generated diff did not reproduce the
// "after" text when re-applied to "before".
var ErrRoundTrip = errors.New("udiff: generated diff failed self-validation")

const noNewlineMarker = `\ No newline at end of file`

// op is one line of the full-file edit script. text retains its trailing
// "\n" except for a final line of a file that lacks one.
type op struct {
	kind    byte // ' ', '-', '+'
	text    string
	oldLine int // 1-based, 0 for '+'
	newLine int // 1-based, 0 for '-'
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	ops                []op
}

// Generate computes the unified diff transforming before into after, with
// a/<path> and b/<path> headers. The inputs must be canonical LF text.
// Generate self-validates: the returned diff re-applied to before is
// guaranteed to equal after exactly.
func Generate(path, before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	ops := diffOps(before, after)
	hunks := groupHunks(ops, ContextLines)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range hunks {
		renderHunk(&b, h)
	}
	diff := b.String()

	applied, err := Apply(diff, before)
	if err != nil || applied != after {
		return "", ErrRoundTrip
	}
	return diff, nil
}

// Stats counts added and removed lines in a unified diff, ignoring file
// headers and no-newline markers.
func Stats(diffText string) (added, removed int) {
	inHunk := false
	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, noNewlineMarker):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}

// splitLines splits text into lines that retain their trailing "\n"; the
// last line of a file without a final newline keeps no "\n". Empty text
// has no lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// diffOps produces the full-file line edit script via diffmatchpatch run
// over a rune-per-line encoding. Each distinct line maps to one rune, so
// the Myers engine can never split inside a line; DiffLinesToChars is
// unsuitable here because its comma-separated index encoding is not
// rune-atomic and DiffMain splits it mid-number once a file has ten or
// more distinct lines. DiffTimeout is disabled so hunk placement is a
// pure function of the inputs.
func diffOps(before, after string) []op {
	aLines := splitLines(before)
	bLines := splitLines(after)

	enc := newLineEncoder()
	aRunes, aOK := enc.encode(aLines)
	bRunes, bOK := enc.encode(bLines)
	if !aOK || !bOK {
		return replaceOps(aLines, bLines)
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(aRunes, bRunes, false)

	var ops []op
	oldN, newN := 0, 0
	for _, d := range diffs {
		for _, r := range d.Text {
			line := enc.line(r)
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldN++
				newN++
				ops = append(ops, op{kind: ' ', text: line, oldLine: oldN, newLine: newN})
			case diffmatchpatch.DiffDelete:
				oldN++
				ops = append(ops, op{kind: '-', text: line, oldLine: oldN})
			case diffmatchpatch.DiffInsert:
				newN++
				ops = append(ops, op{kind: '+', text: line, newLine: newN})
			}
		}
	}
	return ops
}

// lineEncoder assigns each distinct line a unique Unicode scalar value.
// Surrogates are skipped so the encoded text survives the []rune to
// string conversions inside diffmatchpatch byte-exactly.
type lineEncoder struct {
	byLine map[string]rune
	byRune map[rune]string
	next   rune
}

func newLineEncoder() *lineEncoder {
	return &lineEncoder{
		byLine: make(map[string]rune),
		byRune: make(map[rune]string),
		next:   1,
	}
}

func (e *lineEncoder) encode(lines []string) ([]rune, bool) {
	out := make([]rune, len(lines))
	for i, l := range lines {
		r, ok := e.byLine[l]
		if !ok {
			if e.next > unicode.MaxRune {
				return nil, false
			}
			r = e.next
			e.byLine[l] = r
			e.byRune[r] = l
			e.next++
			if e.next == surrogateMin {
				e.next = surrogateMax + 1
			}
		}
		out[i] = r
	}
	return out, true
}

func (e *lineEncoder) line(r rune) string { return e.byRune[r] }

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// replaceOps is the whole-file fallback for inputs with more distinct
// lines than the rune space can encode: delete everything, insert
// everything. Rare in practice given the read size caps, but it keeps
// Generate total.
func replaceOps(aLines, bLines []string) []op {
	ops := make([]op, 0, len(aLines)+len(bLines))
	for i, l := range aLines {
		ops = append(ops, op{kind: '-', text: l, oldLine: i + 1})
	}
	for i, l := range bLines {
		ops = append(ops, op{kind: '+', text: l, newLine: i + 1})
	}
	return ops
}

// groupHunks clusters change ops into hunks with ctx lines of surrounding
// context, merging clusters whose equal-line gap is at most 2*ctx.
func groupHunks(ops []op, ctx int) []hunk {
	var hunks []hunk
	n := len(ops)
	i := 0
	for i < n {
		if ops[i].kind == ' ' {
			i++
			continue
		}

		start := i - ctx
		if start < 0 {
			start = 0
		}

		// Extend across equal gaps small enough to share one hunk.
		last := i
		j := i
		for j < n {
			if ops[j].kind != ' ' {
				last = j
				j++
				continue
			}
			k := j
			for k < n && ops[k].kind == ' ' {
				k++
			}
			if k == n || k-j > 2*ctx {
				break
			}
			j = k
		}

		end := last + ctx + 1
		if end > n {
			end = n
		}

		h := hunk{ops: ops[start:end]}
		fillHeader(&h, ops, start)
		hunks = append(hunks, h)
		i = end
	}
	return hunks
}

func fillHeader(h *hunk, all []op, start int) {
	for _, o := range h.ops {
		if o.kind != '+' {
			h.oldCount++
		}
		if o.kind != '-' {
			h.newCount++
		}
		if o.oldLine > 0 && h.oldStart == 0 {
			h.oldStart = o.oldLine
		}
		if o.newLine > 0 && h.newStart == 0 {
			h.newStart = o.newLine
		}
	}
	// Zero-count sides anchor at the line before the hunk, per the
	// unified format (0 when the hunk sits at the top of the file).
	if h.oldCount == 0 {
		h.oldStart = oldLinesBefore(all, start)
	}
	if h.newCount == 0 {
		h.newStart = newLinesBefore(all, start)
	}
}

func oldLinesBefore(ops []op, start int) int {
	n := 0
	for _, o := range ops[:start] {
		if o.kind != '+' {
			n++
		}
	}
	return n
}

func newLinesBefore(ops []op, start int) int {
	n := 0
	for _, o := range ops[:start] {
		if o.kind != '-' {
			n++
		}
	}
	return n
}

func renderHunk(b *strings.Builder, h hunk) {
	fmt.Fprintf(b, "@@ -%s +%s @@\n", span(h.oldStart, h.oldCount), span(h.newStart, h.newCount))
	for _, o := range h.ops {
		b.WriteByte(o.kind)
		b.WriteString(strings.TrimSuffix(o.text, "\n"))
		b.WriteByte('\n')
		if !strings.HasSuffix(o.text, "\n") {
			b.WriteString(noNewlineMarker)
			b.WriteByte('\n')
		}
	}
}

func span(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
