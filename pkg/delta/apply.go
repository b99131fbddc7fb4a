// Package delta folds graph deltas into graphs and synthesizes deltas from graph pairs.
package delta

import (
	"github.com/ritzau/notegraph/pkg/model"
)

// Apply folds d into g and returns the resulting graph. It is pure and total:
// g is never modified, operations apply strictly in order, an upsert fully replaces
// any stored node (no field merge), and deleting an absent ID is a no-op.
// Applying an empty delta returns an equal graph.
func Apply(g model.Graph, d model.Delta) model.Graph {
	// Nodes are treated as immutable, so untouched ones can be shared with g
	next := make(model.Graph, len(g)+len(d))
	for id, n := range g {
		next[id] = n
	}
	ApplyTo(next, d)
	return next
}

// ApplyTo folds d into g in place. g must be exclusively owned by the caller, as the
// builder's graph-under-construction is; everything else goes through Apply.
func ApplyTo(g model.Graph, d model.Delta) {
	for _, op := range d {
		switch o := op.(type) {
		case model.UpsertNode:
			if o.Node == nil || o.Node.ID == "" {
				continue
			}
			g[o.Node.ID] = o.Node.Clone()
		case model.DeleteNode:
			delete(g, o.ID)
		}
	}
}
