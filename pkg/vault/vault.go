// Package vault holds the collaborators that read and write note files: a local
// directory, an HTTP client for a remote vault, and the handler that serves one.
package vault

import (
	"context"
	"errors"

	"github.com/ritzau/notegraph/pkg/model"
)

var (
	// ErrOutsideRoot is returned for paths that escape the vault directory
	ErrOutsideRoot = errors.New("path is outside the vault")

	// ErrNotNote is returned when writing a file that is not markdown
	ErrNotNote = errors.New("not a markdown note")
)

// Source produces full listings of the vault.
type Source interface {
	List(ctx context.Context) ([]model.FileEntry, error)
}

// Writer persists single notes.
type Writer interface {
	Write(ctx context.Context, path, content string) error
	Delete(ctx context.Context, path string) error
}

// Store is both.
type Store interface {
	Source
	Writer
}
