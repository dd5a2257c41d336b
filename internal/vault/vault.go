// Package vault maps groups and notes onto a plain directory tree. Groups
// are directories, notes are Markdown files, and the reserved "default"
// group denotes the vault root itself. Every operation takes and returns
// slash-separated paths relative to the root.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funkpopo/notevault/internal/apperr"
)

// Vault exposes the group and note operations on top of a sanitized FS.
type Vault struct {
	fs *FS
}

// New opens a vault rooted at dir, creating the directory when absent.
func New(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vault: create root: %w", err)
	}
	fsys, err := NewFS(dir)
	if err != nil {
		return nil, err
	}
	return &Vault{fs: fsys}, nil
}

// FS returns the underlying sanitized filesystem.
func (v *Vault) FS() *FS {
	return v.fs
}

// ListAll walks the whole tree and returns every note plus the note-free
// leaf groups. A group that contains no notes anywhere beneath it is
// reported through its deepest directory only; ancestors are implied.
func (v *Vault) ListAll() (Listing, error) {
	var notes []Note
	hasNote := make(map[string]bool)  // dir → a note exists somewhere beneath
	hasChild := make(map[string]bool) // dir → has at least one subdirectory
	var dirs []string

	root := v.fs.Root()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			dirs = append(dirs, rel)
			if parent := path.Dir(rel); parent != "." {
				hasChild[parent] = true
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), NoteSuffix) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		notes = append(notes, Note{
			Path:       rel,
			Name:       d.Name(),
			Group:      GroupOf(rel),
			ModifiedAt: info.ModTime(),
		})
		for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
			hasNote[dir] = true
		}
		return nil
	})
	if err != nil {
		return Listing{}, fmt.Errorf("vault: list: %w", err)
	}

	var empty []string
	for _, dir := range dirs {
		if !hasNote[dir] && !hasChild[dir] {
			empty = append(empty, dir)
		}
	}
	sort.Strings(empty)
	return Listing{Notes: notes, EmptyGroups: empty}, nil
}

// ReadNote returns the content and metadata of one note.
func (v *Vault) ReadNote(notePath string) (string, fs.FileInfo, error) {
	rel, err := CanonicalNotePath(notePath)
	if err != nil {
		return "", nil, err
	}
	data, err := v.fs.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("vault: note %s: %w", rel, apperr.ErrNotFound)
		}
		return "", nil, err
	}
	info, err := v.fs.Stat(rel)
	if err != nil {
		return "", nil, err
	}
	return string(data), info, nil
}

// WriteNote atomically replaces the content of a note, creating it and
// its group chain when absent.
func (v *Vault) WriteNote(notePath, content string) (string, error) {
	rel, err := CanonicalNotePath(notePath)
	if err != nil {
		return "", err
	}
	if err := v.fs.Write(rel, []byte(content)); err != nil {
		return "", err
	}
	return rel, nil
}

// CreateNote creates a new note inside group and refuses to overwrite an
// existing file. It returns the note's vault path.
func (v *Vault) CreateNote(name, content, group string) (string, error) {
	fileName, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	groupRel, err := CanonicalGroup(group)
	if err != nil {
		return "", err
	}
	rel := path.Join(groupRel, fileName)
	if v.fs.Exists(rel) {
		return "", fmt.Errorf("vault: note %s already exists: %w", rel, apperr.ErrNameCollision)
	}
	if err := v.fs.Write(rel, []byte(content)); err != nil {
		return "", err
	}
	return rel, nil
}

// CreateGroup creates the directory chain for a group. Creating "default"
// is a no-op since the root always exists.
func (v *Vault) CreateGroup(group string) (string, error) {
	rel, err := CanonicalGroup(group)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return DefaultGroup, nil
	}
	if err := v.fs.MkdirAll(rel); err != nil {
		return "", err
	}
	return rel, nil
}

// MoveNote relocates a note into another group. The note is copied to the
// destination first and the source removed only after the copy succeeded,
// so a crash can leave a duplicate but never lose content.
func (v *Vault) MoveNote(notePath, targetGroup string) (string, error) {
	srcRel, err := CanonicalNotePath(notePath)
	if err != nil {
		return "", err
	}
	groupRel, err := CanonicalGroup(targetGroup)
	if err != nil {
		return "", err
	}
	dstRel := path.Join(groupRel, path.Base(srcRel))
	if dstRel == srcRel {
		return srcRel, nil
	}
	return v.transferNote(srcRel, dstRel)
}

// RenameNote changes a note's file name within its group.
func (v *Vault) RenameNote(notePath, newName string) (string, error) {
	srcRel, err := CanonicalNotePath(notePath)
	if err != nil {
		return "", err
	}
	fileName, err := sanitizeName(newName)
	if err != nil {
		return "", err
	}
	dstRel := path.Join(path.Dir(srcRel), fileName)
	if dstRel == srcRel {
		return srcRel, nil
	}
	return v.transferNote(srcRel, dstRel)
}

// transferNote implements the shared copy-then-delete move. The source is
// left untouched on any failure, including a destination collision.
func (v *Vault) transferNote(srcRel, dstRel string) (string, error) {
	data, err := v.fs.Read(srcRel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("vault: note %s: %w", srcRel, apperr.ErrNotFound)
		}
		return "", err
	}
	if v.fs.Exists(dstRel) {
		return "", fmt.Errorf("vault: note %s already exists: %w", dstRel, apperr.ErrNameCollision)
	}
	if err := v.fs.Write(dstRel, data); err != nil {
		return "", err
	}
	if err := v.fs.Delete(srcRel); err != nil {
		return "", err
	}
	return dstRel, nil
}

// MoveGroup renames a group directory into a new parent. Moving into
// "default" places the group at the root under its base name.
func (v *Vault) MoveGroup(source, target string) (string, error) {
	srcRel, err := CanonicalGroup(source)
	if err != nil {
		return "", err
	}
	if srcRel == "" {
		return "", fmt.Errorf("vault: group %s: %w", DefaultGroup, apperr.ErrProtectedGroup)
	}
	tgtRel, err := CanonicalGroup(target)
	if err != nil {
		return "", err
	}
	if tgtRel == srcRel || strings.HasPrefix(tgtRel, srcRel+"/") {
		return "", fmt.Errorf("vault: group %s into %s: %w", srcRel, tgtRel, apperr.ErrCyclicMove)
	}
	if !v.fs.IsDir(srcRel) {
		return "", fmt.Errorf("vault: group %s: %w", srcRel, apperr.ErrNotFound)
	}
	dstRel := path.Join(tgtRel, path.Base(srcRel))
	if dstRel == srcRel {
		return srcRel, nil
	}
	if v.fs.Exists(dstRel) {
		return "", fmt.Errorf("vault: group %s already exists: %w", dstRel, apperr.ErrNameCollision)
	}
	if err := v.fs.RenameDir(srcRel, dstRel); err != nil {
		return "", err
	}
	return dstRel, nil
}

// DeleteNote removes a single note. The owning group directory is kept
// even when this was its last file.
func (v *Vault) DeleteNote(notePath string) error {
	rel, err := CanonicalNotePath(notePath)
	if err != nil {
		return err
	}
	if err := v.fs.Delete(rel); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("vault: note %s: %w", rel, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

// DeleteGroup recursively removes a group and everything beneath it, then
// verifies the directory is really gone.
func (v *Vault) DeleteGroup(group string) error {
	rel, err := CanonicalGroup(group)
	if err != nil {
		return err
	}
	if rel == "" {
		return fmt.Errorf("vault: group %s: %w", DefaultGroup, apperr.ErrProtectedGroup)
	}
	if !v.fs.IsDir(rel) {
		return fmt.Errorf("vault: group %s: %w", rel, apperr.ErrNotFound)
	}
	if err := v.fs.RemoveAll(rel); err != nil {
		return err
	}
	if v.fs.Exists(rel) {
		return fmt.Errorf("vault: group %s still present after delete", rel)
	}
	return nil
}
