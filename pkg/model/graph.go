package model

import (
	"slices"
	"sort"
)

// Position is a canvas coordinate. It lives only client-side and never reaches disk.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UIMetadata holds disk-invisible state attached to a node.
// A nil Position means "no position known", which is not the same as the origin.
type UIMetadata struct {
	Position *Position `json:"position,omitempty"`
}

// Edge is a resolved outbound link from one note to another.
type Edge struct {
	Target string `json:"target"`          // ID of the linked node
	Label  string `json:"label,omitempty"` // Reference text as written in the note
}

// Node represents one markdown file in the graph.
type Node struct {
	ID      string      `json:"id"`      // Absolute file path
	Content string      `json:"content"` // Raw text, frontmatter included
	Title   string      `json:"title"`
	Tags    []string    `json:"tags,omitempty"`
	Edges   []Edge      `json:"edges,omitempty"`
	Pending []string    `json:"pending,omitempty"` // References that did not resolve when the node was processed
	UI      *UIMetadata `json:"ui,omitempty"`
}

// Position returns the node's canvas position, or nil if none is known.
func (n *Node) Position() *Position {
	if n == nil || n.UI == nil {
		return nil
	}
	return n.UI.Position
}

// WithPosition returns a copy of the node placed at p. A nil p clears the position.
func (n *Node) WithPosition(p *Position) *Node {
	c := n.Clone()
	if p == nil {
		c.UI = nil
		return c
	}
	pos := *p
	c.UI = &UIMetadata{Position: &pos}
	return c
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Tags = slices.Clone(n.Tags)
	c.Edges = slices.Clone(n.Edges)
	c.Pending = slices.Clone(n.Pending)
	if n.UI != nil {
		ui := UIMetadata{}
		if n.UI.Position != nil {
			pos := *n.UI.Position
			ui.Position = &pos
		}
		c.UI = &ui
	}
	return &c
}

// Equal reports whether two nodes are field-equal, metadata included.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.ID != o.ID || n.Content != o.Content || n.Title != o.Title {
		return false
	}
	if !slices.Equal(n.Tags, o.Tags) || !slices.Equal(n.Edges, o.Edges) || !slices.Equal(n.Pending, o.Pending) {
		return false
	}
	a, b := n.Position(), o.Position()
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// HasEdgeTo reports whether the node links to target.
func (n *Node) HasEdgeTo(target string) bool {
	for _, e := range n.Edges {
		if e.Target == target {
			return true
		}
	}
	return false
}

// Graph maps node IDs to nodes. Keys are unique; order carries no meaning.
type Graph map[string]*Node

// NewGraph creates a new empty graph.
func NewGraph() Graph {
	return make(Graph)
}

// Has reports whether id is present.
func (g Graph) Has(id string) bool {
	_, ok := g[id]
	return ok
}

// IDs returns the node IDs in sorted order.
func (g Graph) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IDSet returns the node IDs as a set.
func (g Graph) IDSet() IDSet {
	set := make(IDSet, len(g))
	for id := range g {
		set[id] = struct{}{}
	}
	return set
}

// Nodes returns the nodes sorted by ID.
func (g Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g))
	for _, id := range g.IDs() {
		nodes = append(nodes, g[id])
	}
	return nodes
}

// Clone returns a deep copy of the graph. Snapshots are always taken this way.
func (g Graph) Clone() Graph {
	c := make(Graph, len(g))
	for id, n := range g {
		c[id] = n.Clone()
	}
	return c
}

// Equal reports whether both graphs hold the same IDs with field-equal nodes.
func (g Graph) Equal(o Graph) bool {
	if len(g) != len(o) {
		return false
	}
	for id, n := range g {
		if !n.Equal(o[id]) {
			return false
		}
	}
	return true
}

// IDSet is a set of node IDs.
type IDSet map[string]struct{}

// Has reports whether id is in the set. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
