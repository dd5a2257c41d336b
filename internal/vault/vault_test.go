package vault

import (
	"errors"
	"testing"

	"github.com/funkpopo/notevault/internal/apperr"
)

func tempVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func mustCreate(t *testing.T, v *Vault, name, content, group string) string {
	t.Helper()
	p, err := v.CreateNote(name, content, group)
	if err != nil {
		t.Fatalf("CreateNote(%s, group=%s): %v", name, group, err)
	}
	return p
}

func TestCreateNoteAppendsSuffix(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "ideas", "content", "")
	if p != "ideas.md" {
		t.Errorf("path = %q, want ideas.md", p)
	}
	content, _, err := v.ReadNote(p)
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if content != "content" {
		t.Errorf("content = %q", content)
	}
}

func TestCreateNoteRefusesOverwrite(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "a.md", "first", "work")
	_, err := v.CreateNote("a.md", "second", "work")
	if !errors.Is(err, apperr.ErrNameCollision) {
		t.Fatalf("err = %v, want ErrNameCollision", err)
	}
	content, _, _ := v.ReadNote("work/a.md")
	if content != "first" {
		t.Errorf("original content lost: %q", content)
	}
}

func TestCreateNoteInDefaultGroup(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "root.md", "x", "default")
	if p != "root.md" {
		t.Errorf("path = %q, want root.md", p)
	}
}

func TestCreateGroupNested(t *testing.T) {
	v := tempVault(t)
	p, err := v.CreateGroup("projects/2026/q1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if p != "projects/2026/q1" {
		t.Errorf("path = %q", p)
	}
	if !v.FS().IsDir("projects/2026/q1") {
		t.Error("directory chain missing")
	}
}

func TestCreateGroupDefaultIsNoOp(t *testing.T) {
	v := tempVault(t)
	p, err := v.CreateGroup("default")
	if err != nil {
		t.Fatalf("CreateGroup(default): %v", err)
	}
	if p != DefaultGroup {
		t.Errorf("path = %q, want %q", p, DefaultGroup)
	}
	if v.FS().Exists("default") {
		t.Error("a literal default directory must not be created")
	}
}

func TestInvalidPathsRejected(t *testing.T) {
	v := tempVault(t)

	if _, err := v.CreateNote("a/b.md", "", ""); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("separator in name: err = %v", err)
	}
	if _, err := v.CreateNote("ok.md", "", "../outside"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("traversal in group: err = %v", err)
	}
	if _, err := v.CreateGroup("bad:group"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("reserved character: err = %v", err)
	}
	if _, _, err := v.ReadNote("no-suffix"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("missing suffix: err = %v", err)
	}
}

func TestListAllGroupsAndNotes(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "top.md", "x", "")
	mustCreate(t, v, "deep.md", "y", "work/specs")

	listing, err := v.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(listing.Notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(listing.Notes))
	}
	byPath := make(map[string]Note)
	for _, n := range listing.Notes {
		byPath[n.Path] = n
	}
	if got := byPath["top.md"].Group; got != DefaultGroup {
		t.Errorf("root note group = %q, want %q", got, DefaultGroup)
	}
	if got := byPath["work/specs/deep.md"].Group; got != "work/specs" {
		t.Errorf("nested note group = %q", got)
	}
	if len(listing.EmptyGroups) != 0 {
		t.Errorf("empty groups = %v, want none", listing.EmptyGroups)
	}
}

func TestListAllReportsEmptyLeafOnly(t *testing.T) {
	// Deleting the sole note under x/y leaves both directories behind.
	// Only the deepest note-free directory is reported; x is implied.
	v := tempVault(t)
	p := mustCreate(t, v, "only.md", "x", "x/y")
	if err := v.DeleteNote(p); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}

	listing, err := v.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(listing.Notes) != 0 {
		t.Errorf("notes = %v, want none", listing.Notes)
	}
	if len(listing.EmptyGroups) != 1 || listing.EmptyGroups[0] != "x/y" {
		t.Errorf("empty groups = %v, want [x/y]", listing.EmptyGroups)
	}
}

func TestListAllEmptyChain(t *testing.T) {
	v := tempVault(t)
	if _, err := v.CreateGroup("a/b/c"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	listing, err := v.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(listing.EmptyGroups) != 1 || listing.EmptyGroups[0] != "a/b/c" {
		t.Errorf("empty groups = %v, want [a/b/c]", listing.EmptyGroups)
	}
}

func TestListAllMixedSiblings(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "n.md", "x", "top/full")
	if _, err := v.CreateGroup("top/hollow"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	listing, err := v.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(listing.EmptyGroups) != 1 || listing.EmptyGroups[0] != "top/hollow" {
		t.Errorf("empty groups = %v, want [top/hollow]", listing.EmptyGroups)
	}
}

func TestListAllSkipsHiddenAndForeignFiles(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "real.md", "x", "")
	_ = v.FS().Write("readme.txt", []byte("not a note"))
	_ = v.FS().Write(".hidden/secret.md", []byte("skipped"))

	listing, err := v.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(listing.Notes) != 1 || listing.Notes[0].Path != "real.md" {
		t.Errorf("notes = %v, want only real.md", listing.Notes)
	}
	if len(listing.EmptyGroups) != 0 {
		t.Errorf("empty groups = %v", listing.EmptyGroups)
	}
}

func TestMoveNote(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "move.md", "payload", "src")
	newPath, err := v.MoveNote(p, "dst")
	if err != nil {
		t.Fatalf("MoveNote: %v", err)
	}
	if newPath != "dst/move.md" {
		t.Errorf("newPath = %q", newPath)
	}
	content, _, err := v.ReadNote(newPath)
	if err != nil {
		t.Fatalf("ReadNote after move: %v", err)
	}
	if content != "payload" {
		t.Errorf("content = %q", content)
	}
	if v.FS().Exists(p) {
		t.Error("source should be gone")
	}
}

func TestMoveNoteCollisionLeavesSourceIntact(t *testing.T) {
	v := tempVault(t)
	src := mustCreate(t, v, "same.md", "mine", "a")
	mustCreate(t, v, "same.md", "theirs", "b")

	_, err := v.MoveNote(src, "b")
	if !errors.Is(err, apperr.ErrNameCollision) {
		t.Fatalf("err = %v, want ErrNameCollision", err)
	}
	content, _, err := v.ReadNote(src)
	if err != nil {
		t.Fatalf("source vanished: %v", err)
	}
	if content != "mine" {
		t.Errorf("source content = %q", content)
	}
	dst, _, _ := v.ReadNote("b/same.md")
	if dst != "theirs" {
		t.Errorf("destination overwritten: %q", dst)
	}
}

func TestMoveNoteToSameGroupIsNoOp(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "stay.md", "x", "g")
	newPath, err := v.MoveNote(p, "g")
	if err != nil {
		t.Fatalf("MoveNote: %v", err)
	}
	if newPath != p {
		t.Errorf("newPath = %q, want %q", newPath, p)
	}
}

func TestMoveNoteMissingSource(t *testing.T) {
	v := tempVault(t)
	_, err := v.MoveNote("ghost.md", "dst")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMoveNoteToDefaultGroup(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "up.md", "x", "nested/deep")
	newPath, err := v.MoveNote(p, "default")
	if err != nil {
		t.Fatalf("MoveNote: %v", err)
	}
	if newPath != "up.md" {
		t.Errorf("newPath = %q, want up.md", newPath)
	}
}

func TestRenameNote(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "old.md", "keep", "g")
	newPath, err := v.RenameNote(p, "new")
	if err != nil {
		t.Fatalf("RenameNote: %v", err)
	}
	if newPath != "g/new.md" {
		t.Errorf("newPath = %q", newPath)
	}
	content, _, err := v.ReadNote(newPath)
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if content != "keep" {
		t.Errorf("content = %q", content)
	}
}

func TestRenameNoteCollision(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "one.md", "1", "g")
	mustCreate(t, v, "two.md", "2", "g")
	if _, err := v.RenameNote(p, "two.md"); !errors.Is(err, apperr.ErrNameCollision) {
		t.Fatalf("err = %v, want ErrNameCollision", err)
	}
}

func TestMoveGroup(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "n.md", "x", "a/b")
	newPath, err := v.MoveGroup("a/b", "c")
	if err != nil {
		t.Fatalf("MoveGroup: %v", err)
	}
	if newPath != "c/b" {
		t.Errorf("newPath = %q, want c/b", newPath)
	}
	if _, _, err := v.ReadNote("c/b/n.md"); err != nil {
		t.Errorf("moved note unreadable: %v", err)
	}
	if v.FS().Exists("a/b") {
		t.Error("source group should be gone")
	}
}

func TestMoveGroupIntoDescendantIsCyclic(t *testing.T) {
	v := tempVault(t)
	if _, err := v.CreateGroup("a/b/c"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := v.MoveGroup("a/b", "a/b/c"); !errors.Is(err, apperr.ErrCyclicMove) {
		t.Fatalf("err = %v, want ErrCyclicMove", err)
	}
	if _, err := v.MoveGroup("a/b", "a/b"); !errors.Is(err, apperr.ErrCyclicMove) {
		t.Fatalf("self move: err = %v, want ErrCyclicMove", err)
	}
}

func TestMoveGroupDefaultSourceProtected(t *testing.T) {
	v := tempVault(t)
	if _, err := v.MoveGroup("default", "elsewhere"); !errors.Is(err, apperr.ErrProtectedGroup) {
		t.Fatalf("err = %v, want ErrProtectedGroup", err)
	}
}

func TestMoveGroupToDefaultTarget(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "n.md", "x", "parent/child")
	newPath, err := v.MoveGroup("parent/child", "default")
	if err != nil {
		t.Fatalf("MoveGroup: %v", err)
	}
	if newPath != "child" {
		t.Errorf("newPath = %q, want child", newPath)
	}
	if _, _, err := v.ReadNote("child/n.md"); err != nil {
		t.Errorf("note unreadable after move: %v", err)
	}
}

func TestMoveGroupCollision(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "a.md", "1", "x/sub")
	mustCreate(t, v, "b.md", "2", "y/sub")
	if _, err := v.MoveGroup("x/sub", "y"); !errors.Is(err, apperr.ErrNameCollision) {
		t.Fatalf("err = %v, want ErrNameCollision", err)
	}
	if _, _, err := v.ReadNote("x/sub/a.md"); err != nil {
		t.Errorf("source subtree damaged: %v", err)
	}
}

func TestMoveGroupMissingSource(t *testing.T) {
	v := tempVault(t)
	if _, err := v.MoveGroup("ghost", "dst"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNoteKeepsGroup(t *testing.T) {
	v := tempVault(t)
	p := mustCreate(t, v, "gone.md", "x", "g")
	if err := v.DeleteNote(p); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if !v.FS().IsDir("g") {
		t.Error("group directory should survive its last note")
	}
	if err := v.DeleteNote(p); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteGroupRecursive(t *testing.T) {
	v := tempVault(t)
	mustCreate(t, v, "a.md", "1", "g/inner")
	mustCreate(t, v, "b.md", "2", "g")
	if err := v.DeleteGroup("g"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if v.FS().Exists("g") {
		t.Error("group should be gone")
	}
}

func TestDeleteGroupDefaultProtected(t *testing.T) {
	v := tempVault(t)
	if err := v.DeleteGroup("default"); !errors.Is(err, apperr.ErrProtectedGroup) {
		t.Fatalf("err = %v, want ErrProtectedGroup", err)
	}
	if err := v.DeleteGroup(""); !errors.Is(err, apperr.ErrProtectedGroup) {
		t.Fatalf("empty group: err = %v, want ErrProtectedGroup", err)
	}
}

func TestDeleteGroupMissing(t *testing.T) {
	v := tempVault(t)
	if err := v.DeleteGroup("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReadNoteMissing(t *testing.T) {
	v := tempVault(t)
	if _, _, err := v.ReadNote("ghost.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWriteNoteCreatesAndReplaces(t *testing.T) {
	v := tempVault(t)
	if _, err := v.WriteNote("g/fresh.md", "v1"); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	if _, err := v.WriteNote("g/fresh.md", "v2"); err != nil {
		t.Fatalf("WriteNote replace: %v", err)
	}
	content, _, _ := v.ReadNote("g/fresh.md")
	if content != "v2" {
		t.Errorf("content = %q", content)
	}
}

func TestGroupOf(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"note.md", DefaultGroup},
		{"g/note.md", "g"},
		{"a/b/c/note.md", "a/b/c"},
	}
	for _, tc := range cases {
		if got := GroupOf(tc.path); got != tc.want {
			t.Errorf("GroupOf(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestStrippedDefaultPrefix(t *testing.T) {
	v := tempVault(t)
	p, err := v.CreateGroup("default/work")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if p != "work" {
		t.Errorf("path = %q, want work", p)
	}
}
