package history

import (
	"testing"

	"github.com/ritzau/notegraph/pkg/delta"
	"github.com/ritzau/notegraph/pkg/model"
)

func graphOf(ids ...string) model.Graph {
	g := model.NewGraph()
	for _, id := range ids {
		g[id] = &model.Node{ID: id, Content: "# " + id}
	}
	return g
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m := NewManager(10)

	before := graphOf("/a.md")
	m.Record(before)
	current := delta.Apply(before, model.Delta{model.UpsertNode{Node: &model.Node{ID: "/b.md"}}})

	preUndo := current.Clone()
	restored, ok := m.Undo(current)
	if !ok {
		t.Fatal("Undo() reported nothing to undo")
	}
	if !restored.Equal(before) {
		t.Error("Undo() did not restore the recorded snapshot")
	}

	redone, ok := m.Redo(restored)
	if !ok {
		t.Fatal("Redo() reported nothing to redo")
	}
	if !redone.Equal(preUndo) {
		t.Error("Redo() did not restore the state immediately before Undo()")
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	m := NewManager(10)

	m.Record(graphOf("/a.md"))
	if _, ok := m.Undo(graphOf("/a.md", "/b.md")); !ok {
		t.Fatal("Undo() failed")
	}
	if _, redo := m.Depth(); redo != 1 {
		t.Fatalf("redo depth = %d, want 1", redo)
	}

	m.Record(graphOf("/a.md"))
	if _, redo := m.Depth(); redo != 0 {
		t.Errorf("redo depth = %d after new edit, want 0", redo)
	}
	if _, ok := m.Redo(graphOf("/a.md")); ok {
		t.Error("Redo() succeeded after a new edit cleared the redo stack")
	}
}

func TestEmptyStacksAreNoops(t *testing.T) {
	m := NewManager(10)
	if _, ok := m.Undo(graphOf("/a.md")); ok {
		t.Error("Undo() on empty stack reported success")
	}
	if _, ok := m.Redo(graphOf("/a.md")); ok {
		t.Error("Redo() on empty stack reported success")
	}
	if u, r := m.Depth(); u != 0 || r != 0 {
		t.Errorf("Depth() = %d, %d; want 0, 0", u, r)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	m := NewManager(2)

	m.Record(graphOf("/1.md"))
	m.Record(graphOf("/2.md"))
	m.Record(graphOf("/3.md"))

	if u, _ := m.Depth(); u != 2 {
		t.Fatalf("undo depth = %d, want 2", u)
	}

	g, _ := m.Undo(model.NewGraph())
	if !g.Has("/3.md") {
		t.Errorf("expected newest snapshot first, got %v", g.IDs())
	}
	g, _ = m.Undo(g)
	if !g.Has("/2.md") {
		t.Errorf("expected second snapshot, got %v", g.IDs())
	}
	if _, ok := m.Undo(g); ok {
		t.Error("oldest snapshot should have been evicted")
	}
}

func TestSnapshotsAreDeepCopies(t *testing.T) {
	m := NewManager(5)
	g := graphOf("/a.md")
	m.Record(g)

	g["/a.md"].Content = "mutated"

	restored, _ := m.Undo(model.NewGraph())
	if restored["/a.md"].Content != "# /a.md" {
		t.Error("snapshot aliases the recorded graph")
	}
}

func TestCapacityFloor(t *testing.T) {
	m := NewManager(0)
	m.Record(graphOf("/a.md"))
	m.Record(graphOf("/b.md"))
	if u, _ := m.Depth(); u != 1 {
		t.Errorf("undo depth = %d, want 1", u)
	}
}

func TestReset(t *testing.T) {
	m := NewManager(5)
	m.Record(graphOf("/a.md"))
	m.Undo(graphOf("/a.md"))
	m.Record(graphOf("/a.md"))
	m.Reset()
	if u, r := m.Depth(); u != 0 || r != 0 {
		t.Errorf("Depth() = %d, %d after Reset; want 0, 0", u, r)
	}
}
