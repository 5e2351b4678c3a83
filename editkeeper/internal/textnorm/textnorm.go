// Package textnorm converts file text between its on-disk line-ending form
// and the canonical LF form every other pipeline stage works in. Diffing,
// token derivation and patch application all happen in canonical space; the
// original style is restored only on the final write.
package textnorm

import "strings"

// Style is a whole-file line-ending classification.
type Style string

const (
	// CRLF marks files containing at least one "\r\n" sequence.
	CRLF Style = "CRLF"
	// LF marks everything else.
	LF Style = "LF"
)

// DetectStyle classifies text by the presence of "\r\n" anywhere in it.
// This is a binary whole-file decision: a file with genuinely mixed line
// endings is classified CRLF and will be forced to a uniform style on the
// next round trip. Callers surface the detected style so the coercion is
// at least visible.
func DetectStyle(text string) Style {
	if strings.Contains(text, "\r\n") {
		return CRLF
	}
	return LF
}

// ToCanonical replaces every "\r\n" with "\n". Lone "\r" bytes are left
// untouched.
func ToCanonical(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// ToOriginal re-inserts "\r\n" when style is CRLF, else passes the text
// through unchanged.
func ToOriginal(text string, style Style) string {
	if style != CRLF {
		return text
	}
	return strings.ReplaceAll(text, "\n", "\r\n")
}
