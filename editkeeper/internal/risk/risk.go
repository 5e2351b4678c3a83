// Package risk scores a proposed edit from path heuristics and diff size.
// The score is advisory triage metadata for a human reviewer; it never
// blocks a write.
package risk

import (
	"path"
	"strings"
)

// Level is an ordered severity: Low < Medium < High.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

func rank(l Level) int {
	switch l {
	case High:
		return 2
	case Medium:
		return 1
	}
	return 0
}

// Max returns the higher of two levels.
func Max(a, b Level) Level {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// Default size thresholds in changed lines (added + removed).
const (
	DefaultHighLines   = 800
	DefaultMediumLines = 200
)

// Filenames whose edits are always High regardless of size: dependency
// manifests, lockfiles, environment files and build configuration.
var highFiles = map[string]struct{}{
	"go.mod":              {},
	"go.sum":              {},
	"package.json":        {},
	"package-lock.json":   {},
	"yarn.lock":           {},
	"pnpm-lock.yaml":      {},
	"cargo.toml":          {},
	"cargo.lock":          {},
	"requirements.txt":    {},
	"pipfile":             {},
	"pipfile.lock":        {},
	"pyproject.toml":      {},
	"composer.json":       {},
	"composer.lock":       {},
	"gemfile":             {},
	"gemfile.lock":        {},
	"dockerfile":          {},
	"docker-compose.yml":  {},
	"docker-compose.yaml": {},
	"makefile":            {},
}

// Path segments whose subtrees are always High.
var highSegments = map[string]struct{}{
	"api":        {},
	"middleware": {},
}

// Path segments defaulting to Medium: application route trees.
var mediumSegments = map[string]struct{}{
	"routes": {},
	"pages":  {},
}

// Classifier applies the path and size heuristics with configurable
// thresholds. The zero thresholds mean "use the defaults".
type Classifier struct {
	highLines   int
	mediumLines int
}

func New(highLines, mediumLines int) *Classifier {
	if highLines <= 0 {
		highLines = DefaultHighLines
	}
	if mediumLines <= 0 {
		mediumLines = DefaultMediumLines
	}
	return &Classifier{highLines: highLines, mediumLines: mediumLines}
}

// Classify scores one edit. Heuristics in priority order: sensitive path
// patterns force High; then diff size against the thresholds; then the
// path-prefix default.
func (c *Classifier) Classify(relPath string, added, removed int) Level {
	lower := strings.ToLower(path.Clean(strings.ReplaceAll(relPath, "\\", "/")))
	base := path.Base(lower)
	segments := strings.Split(lower, "/")

	if _, ok := highFiles[base]; ok {
		return High
	}
	if strings.HasPrefix(base, ".env") || strings.HasSuffix(base, ".lock") {
		return High
	}
	for _, seg := range segments {
		if _, ok := highSegments[seg]; ok {
			return High
		}
	}

	changed := added + removed
	if changed >= c.highLines {
		return High
	}
	if changed >= c.mediumLines {
		return Medium
	}

	for _, seg := range segments {
		if _, ok := mediumSegments[seg]; ok {
			return Medium
		}
	}
	return Low
}
