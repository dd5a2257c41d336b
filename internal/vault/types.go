package vault

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/funkpopo/notevault/internal/apperr"
)

const (
	// DefaultGroup is the implicit group for notes stored at the vault
	// root. It never exists as a directory and cannot be deleted or moved.
	DefaultGroup = "default"

	// NoteSuffix is the file extension every note carries.
	NoteSuffix = ".md"
)

// Note describes one Markdown file in the vault. Path is always
// slash-separated and relative to the vault root.
type Note struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Group      string    `json:"group"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Listing is the full vault inventory: every note plus the note-free
// groups that a plain file walk would miss.
type Listing struct {
	Notes       []Note   `json:"notes"`
	EmptyGroups []string `json:"empty_groups"`
}

// GroupOf returns the owning group for a note path, DefaultGroup for
// notes at the root.
func GroupOf(notePath string) string {
	dir := path.Dir(notePath)
	if dir == "." || dir == "/" {
		return DefaultGroup
	}
	return dir
}

// CanonicalGroup validates a group path and converts it to a root-relative
// slash path. The empty string and "default" both denote the root and map
// to "". A leading "default" segment is stripped, so "default/work" and
// "work" address the same directory.
func CanonicalGroup(group string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(group), "/")
	if trimmed == "" || trimmed == DefaultGroup {
		return "", nil
	}
	segs := strings.Split(trimmed, "/")
	if segs[0] == DefaultGroup {
		segs = segs[1:]
	}
	for _, seg := range segs {
		if err := checkSegment(seg); err != nil {
			return "", fmt.Errorf("vault: group %q: %w", group, err)
		}
	}
	return strings.Join(segs, "/"), nil
}

// CanonicalNotePath validates a full note path (group segments plus file
// name) and returns it in slash form with the note suffix enforced.
func CanonicalNotePath(notePath string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(notePath), "/")
	if trimmed == "" {
		return "", fmt.Errorf("vault: empty note path: %w", apperr.ErrInvalidPath)
	}
	segs := strings.Split(trimmed, "/")
	for _, seg := range segs {
		if err := checkSegment(seg); err != nil {
			return "", fmt.Errorf("vault: note %q: %w", notePath, err)
		}
	}
	if !strings.HasSuffix(segs[len(segs)-1], NoteSuffix) {
		return "", fmt.Errorf("vault: note %q lacks the %s suffix: %w", notePath, NoteSuffix, apperr.ErrInvalidPath)
	}
	return strings.Join(segs, "/"), nil
}

// sanitizeName validates a single note file name and appends the suffix
// when missing.
func sanitizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("vault: empty note name: %w", apperr.ErrInvalidPath)
	}
	if strings.ContainsRune(trimmed, '/') || strings.ContainsRune(trimmed, '\\') {
		return "", fmt.Errorf("vault: note name %q contains a separator: %w", name, apperr.ErrInvalidPath)
	}
	if !strings.HasSuffix(trimmed, NoteSuffix) {
		trimmed += NoteSuffix
	}
	if err := checkSegment(trimmed); err != nil {
		return "", fmt.Errorf("vault: note name %q: %w", name, err)
	}
	return trimmed, nil
}

// checkSegment rejects path segments that would escape the vault or break
// on common filesystems.
func checkSegment(seg string) error {
	switch {
	case seg == "" || seg == "." || seg == "..":
		return apperr.ErrInvalidPath
	case strings.ContainsRune(seg, 0):
		return apperr.ErrInvalidPath
	case strings.ContainsAny(seg, `<>:"|?*`):
		return apperr.ErrInvalidPath
	}
	return nil
}
