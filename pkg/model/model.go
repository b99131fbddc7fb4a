package model

import (
	"encoding/json"
	"fmt"
)

// FileEntry is one element of a vault listing, exactly as the listing collaborator returns it.
type FileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ChangeKind represents what happened to a file
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// FileArrivalEvent is the unit the graph builder consumes.
type FileArrivalEvent struct {
	Path    string
	Content string
	Kind    ChangeKind
}

// Operation is one step of a Delta. The set is closed: UpsertNode and DeleteNode.
type Operation interface {
	// NodeID returns the ID the operation targets
	NodeID() string
	operation()
}

// UpsertNode inserts a node or fully replaces an existing one.
type UpsertNode struct {
	Node *Node
}

// DeleteNode removes a node. Deleting an absent ID is a no-op.
type DeleteNode struct {
	ID string
}

func (o UpsertNode) NodeID() string {
	if o.Node == nil {
		return ""
	}
	return o.Node.ID
}

func (o DeleteNode) NodeID() string { return o.ID }

func (UpsertNode) operation() {}
func (DeleteNode) operation() {}

// Delta is an ordered batch of operations. Replaying deltas in order reaches the same
// end state regardless of how they were batched.
type Delta []Operation

// Counts returns the number of upserts and deletes in the delta.
func (d Delta) Counts() (upserts, deletes int) {
	for _, op := range d {
		switch op.(type) {
		case UpsertNode:
			upserts++
		case DeleteNode:
			deletes++
		}
	}
	return upserts, deletes
}

// wireOp is the JSON shape of an operation
type wireOp struct {
	Type string `json:"type"` // "upsert" or "delete"
	Node *Node  `json:"node,omitempty"`
	ID   string `json:"id,omitempty"`
}

// MarshalJSON encodes the delta as a list of tagged operations.
func (d Delta) MarshalJSON() ([]byte, error) {
	ops := make([]wireOp, 0, len(d))
	for _, op := range d {
		switch o := op.(type) {
		case UpsertNode:
			ops = append(ops, wireOp{Type: "upsert", Node: o.Node})
		case DeleteNode:
			ops = append(ops, wireOp{Type: "delete", ID: o.ID})
		default:
			return nil, fmt.Errorf("unknown operation %T", op)
		}
	}
	return json.Marshal(ops)
}

// UnmarshalJSON decodes a list of tagged operations.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var ops []wireOp
	if err := json.Unmarshal(data, &ops); err != nil {
		return err
	}
	out := make(Delta, 0, len(ops))
	for i, op := range ops {
		switch op.Type {
		case "upsert":
			if op.Node == nil {
				return fmt.Errorf("operation %d: upsert without node", i)
			}
			out = append(out, UpsertNode{Node: op.Node})
		case "delete":
			out = append(out, DeleteNode{ID: op.ID})
		default:
			return fmt.Errorf("operation %d: unknown type %q", i, op.Type)
		}
	}
	*d = out
	return nil
}
