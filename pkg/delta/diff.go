package delta

import (
	"github.com/ritzau/notegraph/pkg/model"
)

// Diff synthesizes the delta that takes a view showing `from` to `to`:
// a DeleteNode for every ID that disappears, then an UpsertNode for every node in `to`.
// Snapshots are independent copies, so the whole target graph is upserted rather than
// tracking object identity.
func Diff(from, to model.Graph) model.Delta {
	d := removed(from, to)
	for _, n := range to.Nodes() {
		d = append(d, model.UpsertNode{Node: n.Clone()})
	}
	return d
}

// Changes is like Diff but only upserts nodes that are new or no longer field-equal,
// so a rebuild that changed nothing visible produces an empty delta.
func Changes(from, to model.Graph) model.Delta {
	d := removed(from, to)
	for _, n := range to.Nodes() {
		if old, exists := from[n.ID]; exists && old.Equal(n) {
			continue
		}
		d = append(d, model.UpsertNode{Node: n.Clone()})
	}
	return d
}

// ContentChanges is the disk view of a transition: deletions plus upserts of nodes whose
// content differs. Position-only differences are left out because positions never reach disk.
func ContentChanges(from, to model.Graph) model.Delta {
	d := removed(from, to)
	for _, n := range to.Nodes() {
		if old, exists := from[n.ID]; exists && old.Content == n.Content {
			continue
		}
		d = append(d, model.UpsertNode{Node: n.Clone()})
	}
	return d
}

// removed returns deletes for IDs in from that are absent in to, in sorted order
func removed(from, to model.Graph) model.Delta {
	var d model.Delta
	for _, id := range from.IDs() {
		if !to.Has(id) {
			d = append(d, model.DeleteNode{ID: id})
		}
	}
	return d
}
