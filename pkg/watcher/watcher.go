package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/notegraph/pkg/logging"
)

// ChangeEvent represents a batch of note file changes
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a vault directory tree for markdown file changes.
// Its events are hints only: the fingerprint gate still decides whether anything changed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	root     string
	events   chan ChangeEvent
	stopOnce sync.Once
}

// NewFileWatcher creates a new file system watcher for a vault
func NewFileWatcher(root string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		root:    root,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.watchTree(fw.root)
	if err != nil {
		return err
	}
	logging.Info("started watching vault", "path", fw.root, "directories", count)

	go fw.processEvents(ctx)
	return nil
}

// watchTree adds every visible directory under dir to the watcher
func (fw *FileWatcher) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk vault: %w", err)
	}
	return count, nil
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)

	for {
		select {
		case <-ctx.Done():
			fw.Stop()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories need their own watch
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
					if _, err := fw.watchTree(event.Name); err != nil {
						logging.Debug("could not watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			if !isNote(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logging.Trace("vault file changed", "path", event.Name, "op", event.Op.String())

			select {
			case fw.events <- ChangeEvent{Paths: []string{event.Name}, Timestamp: time.Now()}:
			default:
				logging.Debug("watcher event channel full, dropping event", "path", event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}

func isNote(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md") && !isHidden(filepath.Base(path))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
