package model

import (
	"encoding/json"
	"testing"
)

func TestCloneIsDeep(t *testing.T) {
	g := NewGraph()
	g["/a.md"] = &Node{
		ID:      "/a.md",
		Content: "# A",
		Tags:    []string{"x"},
		Edges:   []Edge{{Target: "/b.md", Label: "b"}},
		UI:      &UIMetadata{Position: &Position{X: 1, Y: 2}},
	}

	c := g.Clone()
	c["/a.md"].Tags[0] = "changed"
	c["/a.md"].Edges[0].Target = "/c.md"
	c["/a.md"].UI.Position.X = 99

	orig := g["/a.md"]
	if orig.Tags[0] != "x" {
		t.Errorf("Tags aliased: %v", orig.Tags)
	}
	if orig.Edges[0].Target != "/b.md" {
		t.Errorf("Edges aliased: %v", orig.Edges)
	}
	if orig.UI.Position.X != 1 {
		t.Errorf("Position aliased: %v", *orig.UI.Position)
	}
}

func TestPositionDistinguishesOriginFromUnknown(t *testing.T) {
	unknown := &Node{ID: "/a.md"}
	origin := unknown.WithPosition(&Position{})

	if unknown.Position() != nil {
		t.Error("expected no position")
	}
	if origin.Position() == nil {
		t.Fatal("expected a position at origin")
	}
	if unknown.Equal(origin) {
		t.Error("unpositioned node should differ from node at origin")
	}
	if origin.WithPosition(nil).Position() != nil {
		t.Error("WithPosition(nil) should clear the position")
	}
}

func TestGraphEqual(t *testing.T) {
	a := Graph{"/a.md": {ID: "/a.md", Content: "x"}}
	b := Graph{"/a.md": {ID: "/a.md", Content: "x"}}
	if !a.Equal(b) {
		t.Error("expected equal graphs")
	}

	b["/a.md"].Content = "y"
	if a.Equal(b) {
		t.Error("expected content difference to be detected")
	}

	delete(b, "/a.md")
	b["/b.md"] = &Node{ID: "/b.md", Content: "x"}
	if a.Equal(b) {
		t.Error("expected id difference to be detected")
	}
}

func TestDeltaJSON(t *testing.T) {
	d := Delta{
		DeleteNode{ID: "/old.md"},
		UpsertNode{Node: &Node{ID: "/a.md", Content: "# A", Title: "A"}},
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back Delta
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(back) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(back))
	}
	if del, ok := back[0].(DeleteNode); !ok || del.ID != "/old.md" {
		t.Errorf("expected DeleteNode(/old.md), got %#v", back[0])
	}
	if up, ok := back[1].(UpsertNode); !ok || up.Node.Title != "A" {
		t.Errorf("expected UpsertNode(/a.md), got %#v", back[1])
	}
}

func TestDeltaUnmarshalRejectsUnknownType(t *testing.T) {
	var d Delta
	if err := json.Unmarshal([]byte(`[{"type":"rename","id":"/a.md"}]`), &d); err == nil {
		t.Error("expected error for unknown operation type")
	}
}

func TestDeltaCounts(t *testing.T) {
	d := Delta{
		UpsertNode{Node: &Node{ID: "/a.md"}},
		UpsertNode{Node: &Node{ID: "/b.md"}},
		DeleteNode{ID: "/c.md"},
	}
	up, del := d.Counts()
	if up != 2 || del != 1 {
		t.Errorf("Counts() = %d, %d; want 2, 1", up, del)
	}
}
