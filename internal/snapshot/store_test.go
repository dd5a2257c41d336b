package snapshot

import (
	"testing"
	"time"
)

func TestCaptureAndGet(t *testing.T) {
	s := NewStore("session-1")
	mod := time.Now().Add(-time.Minute)
	s.Capture("notes/a.md", "hello", mod)

	snap, ok := s.Get("notes/a.md")
	if !ok {
		t.Fatal("snapshot missing after capture")
	}
	if snap.Size != 5 {
		t.Errorf("size = %d, want 5", snap.Size)
	}
	if snap.WriterID != "session-1" {
		t.Errorf("writer = %q", snap.WriterID)
	}
	if !snap.ModTime.Equal(mod) {
		t.Errorf("mod time = %v, want %v", snap.ModTime, mod)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("captured-at not set")
	}
}

func TestCaptureReplaces(t *testing.T) {
	s := NewStore("w")
	s.Capture("a.md", "one", time.Now())
	first, _ := s.Get("a.md")
	s.Capture("a.md", "one two three", time.Now())
	second, _ := s.Get("a.md")
	if first.Fingerprint == second.Fingerprint {
		t.Error("capture should replace the fingerprint")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestForget(t *testing.T) {
	s := NewStore("w")
	s.Capture("a.md", "x", time.Now())
	s.Forget("a.md")
	if _, ok := s.Get("a.md"); ok {
		t.Error("snapshot survived Forget")
	}
	// Forgetting an unknown path is a no-op.
	s.Forget("ghost.md")
}

func TestRename(t *testing.T) {
	s := NewStore("w")
	s.Capture("old.md", "content", time.Now())
	s.Rename("old.md", "sub/new.md")

	if _, ok := s.Get("old.md"); ok {
		t.Error("old path still tracked")
	}
	snap, ok := s.Get("sub/new.md")
	if !ok {
		t.Fatal("new path not tracked")
	}
	if snap.Path != "sub/new.md" {
		t.Errorf("snapshot path = %q", snap.Path)
	}
}

func TestForgetPrefix(t *testing.T) {
	s := NewStore("w")
	s.Capture("group/a.md", "a", time.Now())
	s.Capture("group/sub/b.md", "b", time.Now())
	s.Capture("grouped.md", "c", time.Now())

	if removed := s.ForgetPrefix("group/"); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, ok := s.Get("group/a.md"); ok {
		t.Error("group/a.md should be gone")
	}
	if _, ok := s.Get("grouped.md"); !ok {
		t.Error("grouped.md should survive, prefix must not match it")
	}
}

func TestTrimStale(t *testing.T) {
	s := NewStore("w")
	s.Capture("fresh.md", "x", time.Now())

	// Backdate one entry directly.
	s.mu.Lock()
	old := s.entries["fresh.md"]
	old.Path = "old.md"
	old.CapturedAt = time.Now().Add(-time.Hour)
	s.entries["old.md"] = old
	s.mu.Unlock()

	if removed := s.TrimStale(30 * time.Minute); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := s.Get("old.md"); ok {
		t.Error("stale entry survived trim")
	}
	if _, ok := s.Get("fresh.md"); !ok {
		t.Error("fresh entry was trimmed")
	}
}
