package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := make(chan ChangeEvent, 10)
	d := NewDebouncer(input, 20*time.Millisecond, time.Second)
	d.Start(ctx)

	input <- ChangeEvent{Paths: []string{"/a.md"}}
	input <- ChangeEvent{Paths: []string{"/b.md"}}
	input <- ChangeEvent{Paths: []string{"/a.md"}}

	select {
	case ev := <-d.Output():
		if !slices.Equal(ev.Paths, []string{"/a.md", "/b.md"}) {
			t.Errorf("Paths = %v, want [/a.md /b.md]", ev.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced event")
	}

	select {
	case ev := <-d.Output():
		t.Errorf("unexpected second batch: %v", ev.Paths)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Paths: []string{"/a.md"}}
	close(input)

	select {
	case ev, ok := <-d.Output():
		if !ok {
			t.Fatal("output closed without flushing")
		}
		if len(ev.Paths) != 1 {
			t.Errorf("expected 1 path, got %v", ev.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for flush")
	}
}

func TestFileWatcherReportsNoteChanges(t *testing.T) {
	dir := t.TempDir()

	fw, err := NewFileWatcher(dir)
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Not a note; should be filtered
	if err := os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	note := filepath.Join(dir, "a.md")
	if err := os.WriteFile(note, []byte("# A"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-fw.Events():
			for _, p := range ev.Paths {
				if filepath.Ext(p) != ".md" {
					t.Errorf("non-note path reported: %s", p)
				}
				if p == note {
					return
				}
			}
		case <-deadline:
			t.Fatal("timeout waiting for note change event")
		}
	}
}
