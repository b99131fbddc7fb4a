// Package linkgraph answers structural questions about a note graph: backlinks,
// dangling references, link cycles and link distances.
package linkgraph

import (
	"sort"

	"github.com/ritzau/notegraph/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// LinkGraph is a read-only index over one graph snapshot.
type LinkGraph struct {
	graph *simple.DirectedGraph
	ids   map[string]int64 // Map from note ID to graph ID
	paths []string         // Graph ID to note ID
	notes model.Graph
}

// Summary is the link view of a single note.
type Summary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Outlinks  []string `json:"outlinks"`
	Backlinks []string `json:"backlinks"`
	Pending   []string `json:"pending,omitempty"`
}

// Cycle is a set of notes that link to each other, directly or transitively.
type Cycle struct {
	Notes []string `json:"notes"`
}

// New indexes g. Edges to IDs that are not in g are ignored.
func New(g model.Graph) *LinkGraph {
	lg := &LinkGraph{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(g)),
		notes: g,
	}

	for _, id := range g.IDs() {
		lg.ids[id] = int64(len(lg.paths))
		lg.paths = append(lg.paths, id)
		lg.graph.AddNode(simple.Node(lg.ids[id]))
	}

	for _, n := range g {
		from := lg.ids[n.ID]
		for _, e := range n.Edges {
			to, ok := lg.ids[e.Target]
			if !ok || to == from {
				continue
			}
			if !lg.graph.HasEdgeFromTo(from, to) {
				lg.graph.SetEdge(lg.graph.NewEdge(simple.Node(from), simple.Node(to)))
			}
		}
	}

	return lg
}

// Len returns the number of notes.
func (lg *LinkGraph) Len() int {
	return len(lg.paths)
}

// Outlinks returns the notes id links to, sorted.
func (lg *LinkGraph) Outlinks(id string) []string {
	n, ok := lg.ids[id]
	if !ok {
		return nil
	}
	return lg.collect(lg.graph.From(n))
}

// Backlinks returns the notes that link to id, sorted.
func (lg *LinkGraph) Backlinks(id string) []string {
	n, ok := lg.ids[id]
	if !ok {
		return nil
	}
	return lg.collect(lg.graph.To(n))
}

// Summary returns the link view of id.
func (lg *LinkGraph) Summary(id string) (Summary, bool) {
	n, ok := lg.notes[id]
	if !ok {
		return Summary{}, false
	}
	return Summary{
		ID:        id,
		Title:     n.Title,
		Outlinks:  lg.Outlinks(id),
		Backlinks: lg.Backlinks(id),
		Pending:   n.Pending,
	}, true
}

// Dangling returns, per note, the references that did not resolve.
func (lg *LinkGraph) Dangling() map[string][]string {
	out := make(map[string][]string)
	for id, n := range lg.notes {
		if len(n.Pending) > 0 {
			out[id] = n.Pending
		}
	}
	return out
}

// Orphans returns notes with neither outlinks nor backlinks, sorted.
func (lg *LinkGraph) Orphans() []string {
	var out []string
	for i, id := range lg.paths {
		if lg.graph.From(int64(i)).Len() == 0 && lg.graph.To(int64(i)).Len() == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Cycles returns every strongly connected component with more than one note.
// Notes within a cycle are sorted, and cycles are sorted by their first note.
func (lg *LinkGraph) Cycles() []Cycle {
	cycles := make([]Cycle, 0)
	for _, scc := range topo.TarjanSCC(lg.graph) {
		if len(scc) < 2 {
			continue
		}
		notes := make([]string, 0, len(scc))
		for _, n := range scc {
			notes = append(notes, lg.paths[n.ID()])
		}
		sort.Strings(notes)
		cycles = append(cycles, Cycle{Notes: notes})
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Notes[0] < cycles[j].Notes[0]
	})
	return cycles
}

// Distances returns the link distance from each note to the nearest selected note,
// ignoring edge direction. Unreachable notes are absent from the result.
func (lg *LinkGraph) Distances(selected []string) map[string]int {
	distances := make(map[string]int)
	undirected := graph.Undirect{G: lg.graph}

	for _, id := range selected {
		start, ok := lg.ids[id]
		if !ok {
			continue
		}
		bf := traverse.BreadthFirst{}
		bf.Walk(undirected, simple.Node(start), func(n graph.Node, depth int) bool {
			path := lg.paths[n.ID()]
			if d, seen := distances[path]; !seen || depth < d {
				distances[path] = depth
			}
			return false
		})
	}

	return distances
}

func (lg *LinkGraph) collect(it graph.Nodes) []string {
	out := make([]string, 0, it.Len())
	for it.Next() {
		out = append(out, lg.paths[it.Node().ID()])
	}
	sort.Strings(out)
	return out
}
