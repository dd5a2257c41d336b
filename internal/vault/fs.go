package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/funkpopo/notevault/internal/apperr"
)

// tmpPattern names the temp files used for atomic writes. The watcher's
// default ignore globs filter them out.
const tmpPattern = ".notevault-tmp-*"

// FS provides sanitized raw file access under a single root directory.
type FS struct {
	root string // absolute path to the vault root
}

// NewFS creates an FS rooted at the given directory, which must exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault root path.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves rel against the root and rejects traversal, absolute
// paths, and NUL bytes.
func (f *FS) safePath(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("vault: path contains NUL byte: %w", apperr.ErrInvalidPath)
	}
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute path %q: %w", rel, apperr.ErrInvalidPath)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("vault: resolve %q: %w", rel, err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("vault: path %q escapes the root: %w", rel, apperr.ErrInvalidPath)
	}
	return abs, nil
}

// Read returns the raw bytes of the file at rel.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", rel, err)
	}
	return data, nil
}

// Stat returns file metadata for rel.
func (f *FS) Stat(rel string) (fs.FileInfo, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat %s: %w", rel, err)
	}
	return info, nil
}

// Exists reports whether rel resolves to an existing file or directory.
func (f *FS) Exists(rel string) bool {
	abs, err := f.safePath(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// IsDir reports whether rel resolves to an existing directory.
func (f *FS) IsDir(rel string) bool {
	abs, err := f.safePath(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}

// Write atomically writes content to rel: temp file in the target
// directory, fsync, then rename over the destination. Parent directories
// are created as needed.
func (f *FS) Write(rel string, content []byte) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the file at rel.
func (f *FS) Delete(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("vault: delete %s: %w", rel, err)
	}
	return nil
}

// MkdirAll creates the directory chain for rel.
func (f *FS) MkdirAll(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir %s: %w", rel, err)
	}
	return nil
}

// RemoveAll recursively removes rel and everything beneath it.
func (f *FS) RemoveAll(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("vault: refusing to remove the root: %w", apperr.ErrInvalidPath)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("vault: remove %s: %w", rel, err)
	}
	return nil
}

// RenameDir renames a directory within the vault, creating the new parent
// chain first. Used for group moves, where a single rename relocates the
// whole subtree.
func (f *FS) RenameDir(oldRel, newRel string) error {
	absOld, err := f.safePath(oldRel)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newRel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("vault: mkdir for rename: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("vault: rename %s to %s: %w", oldRel, newRel, err)
	}
	return nil
}
