// Package derive turns an edit request into canonical "after" text.
//
// Two mutually exclusive input modes: a literal find/replace over the
// canonical "before" text, or a caller-supplied unified diff applied
// strictly. All matching is plain substring, never regex.
package derive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/scribe/editkeeper/internal/udiff"
)

// Mode selects which occurrences of the find text are replaced.
type Mode string

const (
	// ModeSingle requires exactly one occurrence.
	ModeSingle Mode = "single"
	// ModeFirst replaces the first occurrence, tolerating others.
	ModeFirst Mode = "first"
	// ModeAll replaces every non-overlapping occurrence left to right.
	ModeAll Mode = "all"
)

// ParseMode validates a wire-level mode string once at the boundary.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingle, ModeFirst, ModeAll:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

var (
	ErrInvalidMode = errors.New("derive: invalid replace mode")
	ErrEmptyFind   = errors.New("derive: find text is empty")
	ErrNotFound    = errors.New("derive: find text not found")
)

// AmbiguousError reports a Single-mode find matching more than once.
type AmbiguousError struct {
	Matches int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("derive: find text matches %d times, expected exactly one", e.Matches)
}

// Result is a derived edit over canonical text.
type Result struct {
	After   string
	Matches int
	Changed bool
}

// FindReplace derives the after text from a literal find/replace.
// A derivation whose output equals before is reported with Changed=false
// rather than an error.
func FindReplace(before, find, replace string, mode Mode) (Result, error) {
	if find == "" {
		return Result{}, ErrEmptyFind
	}

	matches := strings.Count(before, find)
	if matches == 0 {
		return Result{}, ErrNotFound
	}
	if mode == ModeSingle && matches != 1 {
		return Result{}, &AmbiguousError{Matches: matches}
	}

	var after string
	switch mode {
	case ModeAll:
		after = strings.ReplaceAll(before, find, replace)
	case ModeSingle, ModeFirst:
		after = strings.Replace(before, find, replace, 1)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMode, string(mode))
	}

	return Result{
		After:   after,
		Matches: matches,
		Changed: after != before,
	}, nil
}

// ApplyPatch derives the after text by applying a caller-supplied unified
// diff to the canonical before text. Any parse or context failure is a
// single caller-facing condition: the diff does not apply. Partial and
// fuzzy application are never attempted.
func ApplyPatch(before, diffText string) (Result, error) {
	after, err := udiff.Apply(diffText, before)
	if err != nil {
		return Result{}, err
	}
	return Result{
		After:   after,
		Changed: after != before,
	}, nil
}
