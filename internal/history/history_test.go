package history

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/funkpopo/notevault/internal/apperr"
)

func testLog(t *testing.T, keep int) *Log {
	t.Helper()
	f, err := os.CreateTemp("", "notevault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	l, err := Open(f.Name(), keep)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndGet(t *testing.T) {
	l := testLog(t, 10)
	v, err := l.Append("notes/a.md", "# A\nbody\n", "0000abcd", "writer-1")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if v.ID == "" {
		t.Fatal("version id empty")
	}
	if v.Size != int64(len("# A\nbody\n")) {
		t.Errorf("size = %d", v.Size)
	}

	got, err := l.Get(v.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "# A\nbody\n" {
		t.Errorf("content = %q", got.Content)
	}
	if got.Fingerprint != "0000abcd" {
		t.Errorf("fingerprint = %q", got.Fingerprint)
	}
	if got.WriterID != "writer-1" {
		t.Errorf("writer = %q", got.WriterID)
	}
	if got.SavedAt.IsZero() {
		t.Error("saved_at not set")
	}
}

func TestGetMissing(t *testing.T) {
	l := testLog(t, 10)
	if _, err := l.Get("no-such-id"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	l := testLog(t, 10)
	for i := 0; i < 3; i++ {
		if _, err := l.Append("a.md", fmt.Sprintf("v%d", i), "", ""); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	versions, err := l.ListByPath("a.md", 0)
	if err != nil {
		t.Fatalf("ListByPath: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len = %d, want 3", len(versions))
	}

	// Listings omit content; the newest append comes first.
	newest, err := l.Get(versions[0].ID)
	if err != nil {
		t.Fatalf("Get newest: %v", err)
	}
	if newest.Content != "v2" {
		t.Errorf("newest content = %q, want v2", newest.Content)
	}
	if versions[0].Content != "" {
		t.Errorf("listing should omit content, got %q", versions[0].Content)
	}
}

func TestRetentionPrunesOldest(t *testing.T) {
	l := testLog(t, 3)
	for i := 0; i < 5; i++ {
		if _, err := l.Append("a.md", fmt.Sprintf("v%d", i), "", ""); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	n, err := l.CountByPath("a.md")
	if err != nil {
		t.Fatalf("CountByPath: %v", err)
	}
	if n != 3 {
		t.Fatalf("retained = %d, want 3", n)
	}

	versions, _ := l.ListByPath("a.md", 0)
	oldest, err := l.Get(versions[len(versions)-1].ID)
	if err != nil {
		t.Fatalf("Get oldest: %v", err)
	}
	if oldest.Content != "v2" {
		t.Errorf("oldest retained = %q, want v2", oldest.Content)
	}
}

func TestRetentionIsPerPath(t *testing.T) {
	l := testLog(t, 2)
	for i := 0; i < 3; i++ {
		_, _ = l.Append("a.md", "a", "", "")
		_, _ = l.Append("b.md", "b", "", "")
	}
	for _, p := range []string{"a.md", "b.md"} {
		n, err := l.CountByPath(p)
		if err != nil {
			t.Fatalf("CountByPath(%s): %v", p, err)
		}
		if n != 2 {
			t.Errorf("%s retained = %d, want 2", p, n)
		}
	}
}

func TestRenamePrefix(t *testing.T) {
	l := testLog(t, 10)
	_, _ = l.Append("old/a.md", "a", "", "")
	_, _ = l.Append("old/sub/b.md", "b", "", "")
	_, _ = l.Append("older/c.md", "c", "", "")

	if err := l.RenamePrefix("old/", "moved/old/"); err != nil {
		t.Fatalf("RenamePrefix: %v", err)
	}

	for path, want := range map[string]int{
		"moved/old/a.md":     1,
		"moved/old/sub/b.md": 1,
		"old/a.md":           0,
		"older/c.md":         1,
	} {
		n, err := l.CountByPath(path)
		if err != nil {
			t.Fatalf("CountByPath(%s): %v", path, err)
		}
		if n != want {
			t.Errorf("%s versions = %d, want %d", path, n, want)
		}
	}
}

func TestRenamePath(t *testing.T) {
	l := testLog(t, 10)
	_, _ = l.Append("old.md", "x", "", "")
	_, _ = l.Append("old.md", "y", "", "")

	if err := l.RenamePath("old.md", "group/new.md"); err != nil {
		t.Fatalf("RenamePath: %v", err)
	}

	oldCount, _ := l.CountByPath("old.md")
	if oldCount != 0 {
		t.Errorf("old path still has %d versions", oldCount)
	}
	versions, err := l.ListByPath("group/new.md", 0)
	if err != nil {
		t.Fatalf("ListByPath: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("new path versions = %d, want 2", len(versions))
	}
}
