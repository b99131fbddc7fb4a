package delta

import (
	"testing"

	"github.com/ritzau/notegraph/pkg/model"
)

func TestDiffDeletesThenUpsertsEverything(t *testing.T) {
	from := model.Graph{
		"/a.md": node("/a.md", "# A"),
		"/b.md": node("/b.md", "# B"),
	}
	to := model.Graph{
		"/b.md": node("/b.md", "# B"),
		"/c.md": node("/c.md", "# C"),
	}

	d := Diff(from, to)

	if len(d) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(d))
	}
	if del, ok := d[0].(model.DeleteNode); !ok || del.ID != "/a.md" {
		t.Errorf("expected delete of /a.md first, got %#v", d[0])
	}
	for i, want := range []string{"/b.md", "/c.md"} {
		up, ok := d[i+1].(model.UpsertNode)
		if !ok || up.Node.ID != want {
			t.Errorf("operation %d: expected upsert of %s, got %#v", i+1, want, d[i+1])
		}
	}

	if !Apply(from, d).Equal(to) {
		t.Error("applying Diff(from, to) to from does not reach to")
	}
}

func TestChangesSkipsEqualNodes(t *testing.T) {
	from := model.Graph{
		"/a.md": node("/a.md", "# A"),
		"/b.md": node("/b.md", "# B"),
	}
	to := from.Clone()

	if d := Changes(from, to); len(d) != 0 {
		t.Errorf("expected no changes, got %d operations", len(d))
	}

	to["/b.md"] = to["/b.md"].WithPosition(&model.Position{X: 3, Y: 4})
	d := Changes(from, to)
	if len(d) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(d))
	}
	if up, ok := d[0].(model.UpsertNode); !ok || up.Node.ID != "/b.md" {
		t.Errorf("expected upsert of /b.md, got %#v", d[0])
	}
	if !Apply(from, d).Equal(to) {
		t.Error("applying Changes(from, to) to from does not reach to")
	}
}

func TestContentChangesIgnoresPositions(t *testing.T) {
	from := model.Graph{
		"/a.md": node("/a.md", "# A"),
		"/b.md": node("/b.md", "# B"),
	}
	to := model.Graph{
		"/a.md": node("/a.md", "# A").WithPosition(&model.Position{X: 1, Y: 1}),
		"/c.md": node("/c.md", "# C"),
	}

	d := ContentChanges(from, to)
	up, del := d.Counts()
	if up != 1 || del != 1 {
		t.Fatalf("Counts() = %d upserts, %d deletes; want 1, 1", up, del)
	}
	if d[0].NodeID() != "/b.md" || d[1].NodeID() != "/c.md" {
		t.Errorf("unexpected operations: %#v", d)
	}
}
