package udiff

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed reports diff text that does not parse as a unified diff.
var ErrMalformed = errors.New("udiff: malformed patch")

// ErrNoApply reports a well-formed diff whose context or deleted lines do
// not match the base text at the positions the hunk headers name.
var ErrNoApply = errors.New("udiff: patch does not apply")

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Apply replays a unified diff over base and returns the patched text.
// Matching is strict: every context and deletion line must equal the base
// line at the exact position the hunk header states, byte for byte. There
// is no fuzz and no offset search.
func Apply(diffText, base string) (string, error) {
	raw := strings.Split(diffText, "\n")
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}

	baseLines := splitLines(base)
	var out []string
	cursor := 0 // next unconsumed index into baseLines
	sawHunk := false

	i := 0
	for i < len(raw) {
		line := raw[i]

		if !sawHunk && isFileHeader(line) {
			i++
			continue
		}

		m := hunkHeaderRe.FindStringSubmatch(line)
		if m == nil {
			return "", ErrMalformed
		}
		sawHunk = true
		oldStart := atoi(m[1])
		oldCount := atoiDefault(m[2], 1)
		newCount := atoiDefault(m[4], 1)
		i++

		// A zero-count old side anchors after line oldStart; otherwise
		// the hunk starts at line oldStart itself.
		idx := oldStart
		if oldCount > 0 {
			idx = oldStart - 1
		}
		if idx < cursor || idx > len(baseLines) {
			return "", ErrNoApply
		}
		out = append(out, baseLines[cursor:idx]...)
		cursor = idx

		oldSeen, newSeen := 0, 0
		for oldSeen < oldCount || newSeen < newCount {
			if i >= len(raw) {
				return "", ErrMalformed
			}
			body := raw[i]
			if body == noNewlineMarker {
				return "", ErrMalformed
			}
			if body == "" {
				// Tolerate producers that emit a bare empty line for a
				// blank context line.
				body = " "
			}

			text := body[1:] + "\n"
			if i+1 < len(raw) && raw[i+1] == noNewlineMarker {
				text = body[1:]
				i++
			}

			switch body[0] {
			case ' ':
				if cursor >= len(baseLines) || baseLines[cursor] != text {
					return "", ErrNoApply
				}
				out = append(out, text)
				cursor++
				oldSeen++
				newSeen++
			case '-':
				if cursor >= len(baseLines) || baseLines[cursor] != text {
					return "", ErrNoApply
				}
				cursor++
				oldSeen++
			case '+':
				out = append(out, text)
				newSeen++
			default:
				return "", ErrMalformed
			}
			i++
		}
		if oldSeen != oldCount || newSeen != newCount {
			return "", ErrMalformed
		}
	}

	if !sawHunk {
		return "", ErrMalformed
	}
	out = append(out, baseLines[cursor:]...)
	return strings.Join(out, ""), nil
}

func isFileHeader(line string) bool {
	return strings.HasPrefix(line, "--- ") ||
		strings.HasPrefix(line, "+++ ") ||
		strings.HasPrefix(line, "diff ") ||
		strings.HasPrefix(line, "index ")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoi(s)
}
