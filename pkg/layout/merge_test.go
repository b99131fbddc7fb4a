package layout

import (
	"testing"

	"github.com/ritzau/notegraph/pkg/builder"
	"github.com/ritzau/notegraph/pkg/model"
)

func TestMergePreservesPositionAcrossRebuild(t *testing.T) {
	previous := builder.Build([]model.FileEntry{
		{Path: "/a.md", Content: "# A"},
	}, nil).Graph
	previous["/a.md"] = previous["/a.md"].WithPosition(&model.Position{X: 10, Y: 20})

	fresh := builder.Build([]model.FileEntry{
		{Path: "/a.md", Content: "# A\nnew text"},
	}, nil).Graph

	merged := Merge(fresh, previous)

	a := merged["/a.md"]
	if a.Content != "# A\nnew text" {
		t.Errorf("Content = %q, want the fresh content", a.Content)
	}
	p := a.Position()
	if p == nil || p.X != 10 || p.Y != 20 {
		t.Errorf("Position = %v, want (10,20)", p)
	}
}

func TestMergeDropsAndAddsNodes(t *testing.T) {
	previous := model.Graph{
		"/old.md":  (&model.Node{ID: "/old.md"}).WithPosition(&model.Position{X: 1, Y: 1}),
		"/keep.md": (&model.Node{ID: "/keep.md"}).WithPosition(&model.Position{X: 2, Y: 2}),
	}
	fresh := model.Graph{
		"/keep.md": {ID: "/keep.md"},
		"/new.md":  {ID: "/new.md"},
	}

	merged := Merge(fresh, previous)

	if merged.Has("/old.md") {
		t.Error("node deleted on disk survived the merge")
	}
	if merged["/new.md"].Position() != nil {
		t.Error("new node should start unpositioned")
	}
	if merged["/keep.md"].Position() == nil {
		t.Error("kept node lost its position")
	}
}

func TestMergeFreshPositionWins(t *testing.T) {
	previous := model.Graph{"/a.md": (&model.Node{ID: "/a.md"}).WithPosition(&model.Position{X: 1, Y: 1})}
	fresh := model.Graph{"/a.md": (&model.Node{ID: "/a.md"}).WithPosition(&model.Position{X: 5, Y: 5})}

	p := Merge(fresh, previous)["/a.md"].Position()
	if p == nil || p.X != 5 {
		t.Errorf("Position = %v, want fresh (5,5)", p)
	}
}

func TestMergeKeepsOriginPosition(t *testing.T) {
	previous := model.Graph{"/a.md": (&model.Node{ID: "/a.md"}).WithPosition(&model.Position{})}
	fresh := model.Graph{"/a.md": {ID: "/a.md"}}

	if Merge(fresh, previous)["/a.md"].Position() == nil {
		t.Error("position at origin must be carried like any other position")
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	previous := model.Graph{"/a.md": (&model.Node{ID: "/a.md"}).WithPosition(&model.Position{X: 1, Y: 1})}
	fresh := model.Graph{"/a.md": {ID: "/a.md"}}

	Merge(fresh, previous)
	if fresh["/a.md"].Position() != nil {
		t.Error("Merge modified the fresh graph")
	}
}

func TestSavePositions(t *testing.T) {
	g := model.Graph{
		"/a.md": {ID: "/a.md"},
		"/b.md": (&model.Node{ID: "/b.md"}).WithPosition(&model.Position{X: 3, Y: 3}),
	}

	next, moved := SavePositions(g, []PositionUpdate{
		{ID: "/a.md", Position: &model.Position{X: 1, Y: 2}},
		{ID: "/b.md", Position: &model.Position{X: 3, Y: 3}}, // unchanged
		{ID: "/b.md"},                                          // no position
		{ID: "/missing.md", Position: &model.Position{X: 9, Y: 9}},
	})

	if len(moved) != 1 || moved[0].NodeID() != "/a.md" {
		t.Fatalf("moved = %#v, want a single upsert of /a.md", moved)
	}
	if p := next["/a.md"].Position(); p == nil || p.X != 1 || p.Y != 2 {
		t.Errorf("Position = %v, want (1,2)", p)
	}
	if next.Has("/missing.md") {
		t.Error("unknown id must be ignored, not created")
	}
	if g["/a.md"].Position() != nil {
		t.Error("SavePositions modified its input graph")
	}
}

func TestSavePositionsNothingToDo(t *testing.T) {
	g := model.Graph{"/a.md": {ID: "/a.md"}}
	next, moved := SavePositions(g, nil)
	if len(moved) != 0 || !next.Equal(g) {
		t.Error("empty batch should change nothing")
	}
}
