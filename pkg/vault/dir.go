package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/ritzau/notegraph/pkg/logging"
	"github.com/ritzau/notegraph/pkg/model"
)

// Dir is a vault backed by a directory tree of .md files.
// Node IDs are absolute file paths.
type Dir struct {
	root string
}

// NewDir opens the vault rooted at root
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s is not a directory", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute vault directory
func (d *Dir) Root() string {
	return d.root
}

// List walks the vault and returns every note with its content, in lexical path order.
// Hidden directories (.git, .obsidian, ...) are skipped.
func (d *Dir) List(ctx context.Context) ([]model.FileEntry, error) {
	var entries []model.FileEntry

	err := filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.IsDir() {
			if path != d.root && strings.HasPrefix(e.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !isNote(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			// The file may have been removed between the walk and the read
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		entries = append(entries, model.FileEntry{Path: path, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vault %s: %w", d.root, err)
	}

	logging.Trace("listed vault", "root", d.root, "notes", len(entries))
	return entries, nil
}

// Write replaces the note at path atomically, creating parent directories as needed.
func (d *Dir) Write(ctx context.Context, path, content string) error {
	abs, err := d.resolve(path)
	if err != nil {
		return err
	}
	if !isNote(abs) {
		return fmt.Errorf("%w: %s", ErrNotNote, path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", abs, err)
	}
	if err := atomic.WriteFile(abs, strings.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", abs, err)
	}
	return nil
}

// Delete removes the note at path. Deleting a missing note succeeds.
func (d *Dir) Delete(ctx context.Context, path string) error {
	abs, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", abs, err)
	}
	return nil
}

// resolve maps a node ID or vault-relative path to an absolute path inside the root.
func (d *Dir) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideRoot)
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(d.root, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(d.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

func isNote(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}
