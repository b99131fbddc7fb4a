package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ritzau/notegraph/pkg/builder"
	"github.com/ritzau/notegraph/pkg/layout"
	"github.com/ritzau/notegraph/pkg/model"
)

// ErrInvalidCommand is wrapped by errors for commands that are well-formed but cannot apply
var ErrInvalidCommand = errors.New("invalid command")

// UnsupportedOperationError reports a command outside the supported set.
type UnsupportedOperationError struct {
	Name string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %q", e.Name)
}

// Command is one UI request. The set is closed: only the types in this file implement it.
type Command interface {
	command()
}

// CreateNode writes a new note. An existing note at Path is replaced, keeping its position
// unless Position is set.
type CreateNode struct {
	Path     string          `json:"path"`
	Content  string          `json:"content"`
	Position *model.Position `json:"position,omitempty"`
}

// UpdateContent replaces the text of an existing note.
type UpdateContent struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// DeleteNode removes a note.
type DeleteNode struct {
	ID string `json:"id"`
}

// SavePositions records canvas positions.
type SavePositions struct {
	Updates []layout.PositionUpdate `json:"updates"`
}

type Undo struct{}

type Redo struct{}

// Unsupported stands for any request this session does not handle, such as terminal
// spawning or screen recording.
type Unsupported struct {
	Name string
}

func (CreateNode) command()    {}
func (UpdateContent) command() {}
func (DeleteNode) command()    {}
func (SavePositions) command() {}
func (Undo) command()          {}
func (Redo) command()          {}
func (Unsupported) command()   {}

// Command type tags on the wire
const (
	TypeCreateNode    = "create_node"
	TypeUpdateContent = "update_content"
	TypeDeleteNode    = "delete_node"
	TypeSavePositions = "save_positions"
	TypeUndo          = "undo"
	TypeRedo          = "redo"
)

// Result is the outcome of an executed command.
type Result struct {
	Delta model.Delta `json:"delta"`
	// Applied is false when the command was valid but changed nothing,
	// e.g. undo with an empty history.
	Applied bool `json:"applied"`
}

// Execute runs cmd against the session.
func (s *Session) Execute(ctx context.Context, cmd Command) (Result, error) {
	var (
		d   model.Delta
		ok  bool
		err error
	)

	switch c := cmd.(type) {
	case CreateNode:
		d, err = s.createNode(ctx, c)
	case UpdateContent:
		d, err = s.updateContent(ctx, c)
	case DeleteNode:
		d, err = s.edit(ctx, func(current model.Graph) (model.Delta, error) {
			if !current.Has(c.ID) {
				return nil, nil
			}
			return model.Delta{model.DeleteNode{ID: c.ID}}, nil
		})
	case SavePositions:
		d, err = s.SavePositions(c.Updates)
	case Undo:
		d, ok, err = s.Undo(ctx)
		return Result{Delta: d, Applied: ok}, err
	case Redo:
		d, ok, err = s.Redo(ctx)
		return Result{Delta: d, Applied: ok}, err
	case Unsupported:
		return Result{}, &UnsupportedOperationError{Name: c.Name}
	default:
		return Result{}, &UnsupportedOperationError{Name: fmt.Sprintf("%T", cmd)}
	}

	if err != nil {
		return Result{}, err
	}
	return Result{Delta: d, Applied: len(d) > 0}, nil
}

func (s *Session) createNode(ctx context.Context, c CreateNode) (model.Delta, error) {
	if err := validateNotePath(c.Path); err != nil {
		return nil, err
	}
	return s.edit(ctx, func(current model.Graph) (model.Delta, error) {
		node := builder.NodeFromContent(c.Path, c.Content, builder.ResolverFor(current))
		pos := c.Position
		if pos == nil {
			pos = current[c.Path].Position()
		}
		if pos != nil {
			node = node.WithPosition(pos)
		}
		return model.Delta{model.UpsertNode{Node: node}}, nil
	})
}

func (s *Session) updateContent(ctx context.Context, c UpdateContent) (model.Delta, error) {
	return s.edit(ctx, func(current model.Graph) (model.Delta, error) {
		existing, ok := current[c.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no note %s", ErrInvalidCommand, c.ID)
		}
		if existing.Content == c.Content {
			return nil, nil
		}
		node := builder.NodeFromContent(c.ID, c.Content, builder.ResolverFor(current))
		if pos := existing.Position(); pos != nil {
			node = node.WithPosition(pos)
		}
		return model.Delta{model.UpsertNode{Node: node}}, nil
	})
}

func validateNotePath(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: note path %q must be absolute", ErrInvalidCommand, path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return fmt.Errorf("%w: note path %q must end in .md", ErrInvalidCommand, path)
	}
	return nil
}

type commandEnvelope struct {
	Type     string                  `json:"type"`
	Path     string                  `json:"path"`
	ID       string                  `json:"id"`
	Content  string                  `json:"content"`
	Position *model.Position         `json:"position"`
	Updates  []layout.PositionUpdate `json:"updates"`
}

// DecodeCommand parses a JSON command of the form {"type": "...", ...}.
// Unknown types decode to Unsupported so the caller can report them.
func DecodeCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	switch env.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidCommand)
	case TypeCreateNode:
		return CreateNode{Path: env.Path, Content: env.Content, Position: env.Position}, nil
	case TypeUpdateContent:
		return UpdateContent{ID: env.ID, Content: env.Content}, nil
	case TypeDeleteNode:
		return DeleteNode{ID: env.ID}, nil
	case TypeSavePositions:
		return SavePositions{Updates: env.Updates}, nil
	case TypeUndo:
		return Undo{}, nil
	case TypeRedo:
		return Redo{}, nil
	default:
		return Unsupported{Name: env.Type}, nil
	}
}
