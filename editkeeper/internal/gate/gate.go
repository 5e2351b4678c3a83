// CLAUDE:SUMMARY Apply-time concurrency gate — re-read, hash compare, token check, diff re-apply, atomic write.
// Package gate enforces the apply-time write protocol: re-read, hash
// compare, token check, diff re-apply, then an atomic rename-over-target
// write. Every step before the rename is read-only, so a rejected apply
// leaves the file untouched.
package gate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hazyhaar/scribe/editkeeper/internal/approve"
	"github.com/hazyhaar/scribe/editkeeper/internal/textnorm"
	"github.com/hazyhaar/scribe/editkeeper/internal/udiff"
)

var (
	// ErrHashMismatch means the file changed since the proposal was made.
	ErrHashMismatch = errors.New("gate: file hash does not match expected hash")
	// ErrApprovalMismatch means the supplied token was not minted for this
	// file identity, content state and diff.
	ErrApprovalMismatch = errors.New("gate: approval token does not match")
)

// Request carries everything needed to gate one write. DiffText is
// canonical LF text; AbsPath has already been resolved and contained by
// the access guard.
type Request struct {
	AbsPath      string
	PathKey      string
	DiffText     string
	ExpectedHash string
	ApprovalID   string
	DryRun       bool
}

// Outcome reports the gate result. BeforeHash and AfterHash are computed
// over original-EOL text, matching what an independent read would hash.
type Outcome struct {
	BeforeHash string
	AfterHash  string
	EOL        textnorm.Style
	Wrote      bool
}

// Gate validates and performs writes. The read function is injected so
// reads go through the same size-capped path as every other file access.
type Gate struct {
	read func(abs string) ([]byte, error)
}

func New(read func(abs string) ([]byte, error)) *Gate {
	return &Gate{read: read}
}

// Apply runs the gate. With DryRun set it executes every check and
// reports the would-be outcome without touching the file.
func (g *Gate) Apply(req Request) (Outcome, error) {
	raw, err := g.read(req.AbsPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("gate: re-read: %w", err)
	}
	original := string(raw)

	currentHash := approve.ContentHash(original)
	out := Outcome{
		BeforeHash: currentHash,
		EOL:        textnorm.DetectStyle(original),
	}

	if req.ExpectedHash != currentHash {
		return out, ErrHashMismatch
	}
	if approve.Token(req.PathKey, currentHash, req.DiffText) != req.ApprovalID {
		return out, ErrApprovalMismatch
	}

	// Hash equality already implies the diff applies; re-applying guards
	// the gap between hash equality and byte equality.
	canonical := textnorm.ToCanonical(original)
	afterCanonical, err := udiff.Apply(req.DiffText, canonical)
	if err != nil {
		return out, err
	}

	afterOriginal := textnorm.ToOriginal(afterCanonical, out.EOL)
	out.AfterHash = approve.ContentHash(afterOriginal)

	if req.DryRun {
		return out, nil
	}

	mode := fileMode(req.AbsPath)
	if err := writeAtomic(req.AbsPath, []byte(afterOriginal), mode); err != nil {
		return out, fmt.Errorf("gate: write: %w", err)
	}
	out.Wrote = true
	return out, nil
}

func fileMode(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

// writeAtomic stages the new content in a uniquely named temp file in the
// target's directory, then renames it onto the target. The rename is the
// only step that mutates the visible file.
func writeAtomic(target string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".scribe-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	_ = os.Remove(target)
	return os.Rename(tmpName, target)
}
