// Package snapshot tracks the last-known state of saved files and detects
// external or concurrent modifications against that baseline.
package snapshot

import (
	"strings"
	"sync"
	"time"

	"github.com/funkpopo/notevault/internal/fingerprint"
)

// Snapshot is the recorded state of one file at its last trusted save:
// the baseline every conflict check compares against.
type Snapshot struct {
	Path        string    `json:"path"`
	Fingerprint uint32    `json:"fingerprint"`
	Size        int       `json:"size"`
	CapturedAt  time.Time `json:"captured_at"`
	ModTime     time.Time `json:"mod_time"`
	WriterID    string    `json:"writer_id"`
}

// Store holds one snapshot per open path. It is the only shared mutable
// map in the engine and is safe for concurrent use.
type Store struct {
	writer string

	mu      sync.Mutex
	entries map[string]Snapshot
}

// NewStore creates an empty store. All snapshots it captures are stamped
// with writerID so a fingerprint mismatch can be attributed to a foreign
// writer rather than this session's own saves.
func NewStore(writerID string) *Store {
	return &Store{
		writer:  writerID,
		entries: make(map[string]Snapshot),
	}
}

// Capture records (or replaces) the snapshot for path from content and the
// best-known file modify time. A zero modTime is allowed when the file has
// not been statable.
func (s *Store) Capture(path, content string, modTime time.Time) Snapshot {
	snap := Snapshot{
		Path:        path,
		Fingerprint: fingerprint.Sum(content),
		Size:        len(content),
		CapturedAt:  time.Now(),
		ModTime:     modTime,
		WriterID:    s.writer,
	}
	s.mu.Lock()
	s.entries[path] = snap
	s.mu.Unlock()
	return snap
}

// Get returns the snapshot for path, if one exists.
func (s *Store) Get(path string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.entries[path]
	return snap, ok
}

// Forget drops the snapshot for path. Called when a note is closed,
// deleted, or moved away.
func (s *Store) Forget(path string) {
	s.mu.Lock()
	delete(s.entries, path)
	s.mu.Unlock()
}

// Rename moves the snapshot from oldPath to newPath, keeping its state.
func (s *Store) Rename(oldPath, newPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.entries[oldPath]
	if !ok {
		return
	}
	delete(s.entries, oldPath)
	snap.Path = newPath
	s.entries[newPath] = snap
}

// ForgetPrefix drops every snapshot whose path starts with prefix. Used
// when a whole group is moved or deleted; affected paths fall back to
// trust-on-first-sight afterwards.
func (s *Store) ForgetPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for p := range s.entries {
		if strings.HasPrefix(p, prefix) {
			delete(s.entries, p)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked paths.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TrimStale evicts snapshots captured longer than maxAge ago and returns
// how many were removed. Evicted paths fall back to trust-on-first-sight
// on their next conflict check.
func (s *Store) TrimStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for p, snap := range s.entries {
		if snap.CapturedAt.Before(cutoff) {
			delete(s.entries, p)
			removed++
		}
	}
	return removed
}
