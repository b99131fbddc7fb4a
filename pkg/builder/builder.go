// Package builder turns a vault listing into a graph plus the delta that constructs it.
//
// Edges are healed in a single forward pass: a reference resolves only if its target is
// already in the graph under construction, or was observed by the previous pass (the
// known set) and is still listed. A forward reference to a note first seen later in the
// same batch stays pending until the next rebuild. This keeps a pass at O(n) events.
package builder

import (
	"github.com/ritzau/notegraph/pkg/delta"
	"github.com/ritzau/notegraph/pkg/logging"
	"github.com/ritzau/notegraph/pkg/markdown"
	"github.com/ritzau/notegraph/pkg/model"
)

// Result is a finished graph and the delta that builds it from an empty graph.
// An empty listing yields an empty graph and an empty delta.
type Result struct {
	Graph model.Graph
	Delta model.Delta
}

// Build consumes the listing as one Added event per file, in listing order.
// known holds the IDs observed by the previous pass and may be nil.
func Build(listing []model.FileEntry, known model.IDSet) Result {
	g := model.NewGraph()
	if len(listing) == 0 {
		return Result{Graph: g}
	}

	listed := make(model.IDSet, len(listing))
	for _, f := range listing {
		listed[f.Path] = struct{}{}
	}

	// Only hint at targets that are listed again, so no edge can dangle
	resolver := markdown.NewResolver()
	for id := range known {
		if listed.Has(id) {
			resolver.Add(id)
		}
	}

	var out model.Delta
	for _, f := range listing {
		ops := ProcessArrival(model.FileArrivalEvent{
			Path:    f.Path,
			Content: f.Content,
			Kind:    model.Added,
		}, resolver)
		delta.ApplyTo(g, ops)
		out = append(out, ops...)
	}

	return Result{Graph: g, Delta: out}
}

// ProcessArrival turns one file event into delta operations and registers the
// file with the resolver so later arrivals can link to it.
func ProcessArrival(ev model.FileArrivalEvent, resolver *markdown.Resolver) model.Delta {
	if ev.Kind == model.Removed {
		resolver.Remove(ev.Path)
		return model.Delta{model.DeleteNode{ID: ev.Path}}
	}

	node := NodeFromContent(ev.Path, ev.Content, resolver)
	resolver.Add(ev.Path)
	return model.Delta{model.UpsertNode{Node: node}}
}

// NodeFromContent parses content and resolves its references against the resolver.
// Malformed content still produces a node; it just carries fewer edges.
func NodeFromContent(path, content string, resolver *markdown.Resolver) *model.Node {
	doc := markdown.Parse(content)
	if doc.Err != nil {
		logging.Debug("note has malformed frontmatter", "path", path, "error", doc.Err)
	}

	node := &model.Node{
		ID:      path,
		Content: content,
		Title:   doc.Title,
		Tags:    doc.Tags,
	}
	if node.Title == "" {
		node.Title = markdown.FallbackTitle(path)
	}

	linked := make(map[string]bool)
	for _, ref := range doc.Links {
		target, ok := resolver.Resolve(path, ref)
		if !ok {
			node.Pending = append(node.Pending, ref)
			continue
		}
		if target == path || linked[target] {
			continue
		}
		linked[target] = true
		node.Edges = append(node.Edges, model.Edge{Target: target, Label: ref})
	}

	return node
}

// NeedsHealing reports whether a pending reference in g resolves against g's own nodes,
// so another Build over the same listing would add edges. After that second pass every
// remaining pending reference is unresolvable and NeedsHealing reports false.
func NeedsHealing(g model.Graph) bool {
	var resolver *markdown.Resolver
	for _, n := range g {
		for _, ref := range n.Pending {
			if resolver == nil {
				resolver = ResolverFor(g)
			}
			if _, ok := resolver.Resolve(n.ID, ref); ok {
				return true
			}
		}
	}
	return false
}

// ResolverFor returns a resolver over every node in g.
func ResolverFor(g model.Graph) *markdown.Resolver {
	r := markdown.NewResolver()
	for id := range g {
		r.Add(id)
	}
	return r
}
