// CLAUDE:SUMMARY Filesystem access guard — named roots, extension allow-list, traversal and symlink-escape rejection.
// Package guard is the access guard in front of the edit pipeline. It binds
// symbolic file identities (rootKey, relativePath) to real filesystem paths
// and refuses anything outside the allow-listed roots: traversal attempts,
// symlink escapes, disallowed extensions, oversized files. The pipeline
// behind it only ever sees guard-resolved absolute paths.
package guard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownRoot is returned when the rootKey is not in the allow-list.
var ErrUnknownRoot = errors.New("guard: unknown root")

// ErrPathTraversal is returned when a relative path escapes its root.
var ErrPathTraversal = errors.New("guard: path traversal detected")

// ErrSymlinkEscape is returned when symlink resolution leaves the root.
var ErrSymlinkEscape = errors.New("guard: symlink escapes root")

// ErrExtensionNotAllowed is returned for files outside the extension allow-list.
var ErrExtensionNotAllowed = errors.New("guard: extension not allowed")

// ErrFileTooLarge is returned when a file exceeds the configured read cap.
var ErrFileTooLarge = errors.New("guard: file too large")

// ErrNotRegular is returned when the target exists but is not a regular file.
var ErrNotRegular = errors.New("guard: not a regular file")

// Config declares the reachable filesystem surface.
type Config struct {
	// Roots maps symbolic root keys to absolute directories.
	Roots map[string]string
	// AllowedExtensions is the lowercase extension allow-list including the
	// dot (".go", ".md"). Empty means any extension.
	AllowedExtensions []string
	// MaxFileBytes caps reads through the guard. 0 means no cap.
	MaxFileBytes int64
}

// Guard validates and resolves file identities.
type Guard struct {
	roots map[string]string // rootKey -> symlink-resolved absolute dir
	exts  map[string]bool
	max   int64
}

// New builds a Guard. Every configured root must exist and be a directory;
// roots are symlink-resolved once here so later containment checks compare
// real paths.
func New(cfg Config) (*Guard, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("guard: no roots configured")
	}
	g := &Guard{
		roots: make(map[string]string, len(cfg.Roots)),
		exts:  make(map[string]bool, len(cfg.AllowedExtensions)),
		max:   cfg.MaxFileBytes,
	}
	for key, dir := range cfg.Roots {
		if key == "" {
			return nil, errors.New("guard: empty root key")
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("guard: root %q: %w", key, err)
		}
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("guard: root %q: %w", key, err)
		}
		info, err := os.Stat(real)
		if err != nil {
			return nil, fmt.Errorf("guard: root %q: %w", key, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("guard: root %q is not a directory", key)
		}
		g.roots[key] = real
	}
	for _, e := range cfg.AllowedExtensions {
		g.exts[strings.ToLower(e)] = true
	}
	return g, nil
}

// RootKeys returns the configured root keys, sorted.
func (g *Guard) Roots() []string {
	keys := make([]string, 0, len(g.roots))
	for k := range g.roots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve validates (rootKey, relPath) and returns the absolute path.
// The relative path must be clean-joinable under the root without escaping
// it, carry an allowed extension, and must not resolve through symlinks to
// somewhere outside the root.
func (g *Guard) Resolve(rootKey, relPath string) (string, error) {
	root, ok := g.roots[rootKey]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoot, rootKey)
	}
	if relPath == "" || filepath.IsAbs(relPath) || strings.Contains(relPath, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, relPath)
	}
	if len(g.exts) > 0 && !g.exts[strings.ToLower(filepath.Ext(relPath))] {
		return "", fmt.Errorf("%w: %q", ErrExtensionNotAllowed, relPath)
	}

	abs := filepath.Join(root, filepath.Clean("/"+filepath.FromSlash(relPath)))
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, relPath)
	}

	// Symlink containment. The file itself may not exist yet at apply
	// time after an external delete, so resolve the deepest existing
	// ancestor instead of the leaf.
	if err := g.verifyReal(root, abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ReadFile resolves the identity and reads the file, enforcing the size
// cap before any bytes are read.
func (g *Guard) ReadFile(rootKey, relPath string) ([]byte, string, error) {
	abs, err := g.Resolve(rootKey, relPath)
	if err != nil {
		return nil, "", err
	}
	data, err := g.ReadResolved(abs)
	return data, abs, err
}

// ReadResolved reads an absolute path previously returned by Resolve,
// applying the same regular-file and size checks as ReadFile.
func (g *Guard) ReadResolved(abs string) ([]byte, error) {
	info, err := os.Lstat(abs)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q", ErrNotRegular, abs)
	}
	if g.max > 0 && info.Size() > g.max {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), g.max)
	}
	return os.ReadFile(abs)
}

// MaxFileBytes reports the configured read cap (0 = uncapped).
func (g *Guard) MaxFileBytes() int64 { return g.max }

func (g *Guard) verifyReal(root, abs string) error {
	probe := abs
	for {
		real, err := filepath.EvalSymlinks(probe)
		if err == nil {
			if real != root && !strings.HasPrefix(real, root+string(filepath.Separator)) {
				return fmt.Errorf("%w: %q", ErrSymlinkEscape, abs)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("guard: resolve %q: %w", probe, err)
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return nil
		}
		probe = parent
	}
}
