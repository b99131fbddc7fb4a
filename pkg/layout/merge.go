// Package layout carries canvas positions, which exist only client-side, across rebuilds.
package layout

import (
	"github.com/ritzau/notegraph/pkg/model"
)

// PositionUpdate is one entry of a position-save batch.
type PositionUpdate struct {
	ID       string          `json:"id"`
	Position *model.Position `json:"position,omitempty"`
}

// Merge reconciles a freshly rebuilt graph with the previous one. For IDs present in
// both, a position known in previous is copied over when fresh carries none; every other
// field comes from fresh. IDs only in previous are dropped, IDs only in fresh stay
// unpositioned. Neither input is modified.
func Merge(fresh, previous model.Graph) model.Graph {
	merged := make(model.Graph, len(fresh))
	for id, n := range fresh {
		old, exists := previous[id]
		if exists && n.Position() == nil && old.Position() != nil {
			merged[id] = n.WithPosition(old.Position())
			continue
		}
		merged[id] = n
	}
	return merged
}

// SavePositions applies a batch of position updates. Entries without a position or for
// unknown IDs are ignored. It returns the new graph and upserts for the nodes that moved.
func SavePositions(g model.Graph, updates []PositionUpdate) (model.Graph, model.Delta) {
	var moved model.Delta
	next := g
	copied := false

	for _, u := range updates {
		if u.Position == nil {
			continue
		}
		n, exists := next[u.ID]
		if !exists {
			continue
		}
		if p := n.Position(); p != nil && *p == *u.Position {
			continue
		}

		if !copied {
			next = make(model.Graph, len(g))
			for id, node := range g {
				next[id] = node
			}
			copied = true
		}
		updated := n.WithPosition(u.Position)
		next[u.ID] = updated
		moved = append(moved, model.UpsertNode{Node: updated.Clone()})
	}

	return next, moved
}
