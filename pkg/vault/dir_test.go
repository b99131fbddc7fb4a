package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.md"), "# B")
	writeFile(t, filepath.Join(root, "a.md"), "# A")
	writeFile(t, filepath.Join(root, "sub", "c.md"), "# C")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".git", "x.md"), "ignored")
	writeFile(t, filepath.Join(root, ".obsidian", "y.md"), "ignored")

	d, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}
	entries, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{
		filepath.Join(d.Root(), "a.md"),
		filepath.Join(d.Root(), "b.md"),
		filepath.Join(d.Root(), "sub", "c.md"),
	}
	if len(entries) != len(want) {
		t.Fatalf("List() returned %d entries, want %d: %v", len(entries), len(want), entries)
	}
	for i, e := range entries {
		if e.Path != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.Path, want[i])
		}
	}
	if entries[0].Content != "# A" {
		t.Errorf("content = %q, want %q", entries[0].Content, "# A")
	}
}

func TestDirListEmpty(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	entries, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty listing, got %v", entries)
	}
}

func TestDirWriteAndDelete(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	path := filepath.Join(d.Root(), "deep", "new.md")

	if err := d.Write(ctx, path, "# New"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "# New" {
		t.Fatalf("file content = %q, %v", got, err)
	}

	if err := d.Write(ctx, "deep/new.md", "# Changed"); err != nil {
		t.Fatalf("Write() with relative path error = %v", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != "# Changed" {
		t.Errorf("relative write did not land on the same file: %q", got)
	}

	if err := d.Delete(ctx, path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after Delete()")
	}
	if err := d.Delete(ctx, path); err != nil {
		t.Errorf("deleting a missing note should succeed, got %v", err)
	}
}

func TestDirRejectsPathsOutsideRoot(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, p := range []string{"../escape.md", "/etc/passwd.md", "", filepath.Dir(d.Root())} {
		if err := d.Write(ctx, p, "x"); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Write(%q) error = %v, want ErrOutsideRoot", p, err)
		}
	}
	if err := d.Delete(ctx, "../x.md"); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("Delete() error = %v, want ErrOutsideRoot", err)
	}
	if err := d.Write(ctx, "note.txt", "x"); !errors.Is(err, ErrNotNote) {
		t.Errorf("Write(note.txt) error = %v, want ErrNotNote", err)
	}
}

func TestNewDirRequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.md")
	writeFile(t, file, "")
	if _, err := NewDir(file); err == nil {
		t.Error("NewDir() on a file should fail")
	}
}
