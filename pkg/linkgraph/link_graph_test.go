package linkgraph

import (
	"slices"
	"testing"

	"github.com/ritzau/notegraph/pkg/model"
)

func note(id string, targets ...string) *model.Node {
	n := &model.Node{ID: id, Title: id}
	for _, t := range targets {
		n.Edges = append(n.Edges, model.Edge{Target: t})
	}
	return n
}

func sample() model.Graph {
	// a -> b -> c -> a is a cycle; d -> a; e stands alone; f dangles a reference
	g := model.Graph{
		"/a.md": note("/a.md", "/b.md"),
		"/b.md": note("/b.md", "/c.md"),
		"/c.md": note("/c.md", "/a.md"),
		"/d.md": note("/d.md", "/a.md", "/missing.md"),
		"/e.md": note("/e.md"),
		"/f.md": note("/f.md"),
	}
	g["/f.md"].Pending = []string{"nowhere"}
	return g
}

func TestOutlinksAndBacklinks(t *testing.T) {
	lg := New(sample())

	if got := lg.Outlinks("/d.md"); !slices.Equal(got, []string{"/a.md"}) {
		t.Errorf("Outlinks(/d.md) = %v, edges to unknown notes must be ignored", got)
	}
	if got := lg.Backlinks("/a.md"); !slices.Equal(got, []string{"/c.md", "/d.md"}) {
		t.Errorf("Backlinks(/a.md) = %v", got)
	}
	if got := lg.Backlinks("/unknown.md"); got != nil {
		t.Errorf("Backlinks of unknown note = %v, want nil", got)
	}
}

func TestCycles(t *testing.T) {
	cycles := New(sample()).Cycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(cycles), cycles)
	}
	want := []string{"/a.md", "/b.md", "/c.md"}
	if !slices.Equal(cycles[0].Notes, want) {
		t.Errorf("cycle = %v, want %v", cycles[0].Notes, want)
	}
}

func TestNoCyclesInAcyclicGraph(t *testing.T) {
	g := model.Graph{
		"/a.md": note("/a.md", "/b.md"),
		"/b.md": note("/b.md"),
	}
	if cycles := New(g).Cycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestOrphansAndDangling(t *testing.T) {
	lg := New(sample())

	if got := lg.Orphans(); !slices.Equal(got, []string{"/e.md", "/f.md"}) {
		t.Errorf("Orphans() = %v", got)
	}
	dangling := lg.Dangling()
	if len(dangling) != 1 || !slices.Equal(dangling["/f.md"], []string{"nowhere"}) {
		t.Errorf("Dangling() = %v", dangling)
	}
}

func TestDistances(t *testing.T) {
	d := New(sample()).Distances([]string{"/b.md"})

	want := map[string]int{"/b.md": 0, "/a.md": 1, "/c.md": 1, "/d.md": 2}
	for id, dist := range want {
		if got, ok := d[id]; !ok || got != dist {
			t.Errorf("distance(%s) = %d, %v; want %d", id, got, ok, dist)
		}
	}
	if _, ok := d["/e.md"]; ok {
		t.Error("unreachable note should have no distance")
	}
}

func TestSummary(t *testing.T) {
	s, ok := New(sample()).Summary("/a.md")
	if !ok {
		t.Fatal("Summary(/a.md) not found")
	}
	if !slices.Equal(s.Outlinks, []string{"/b.md"}) || len(s.Backlinks) != 2 {
		t.Errorf("Summary = %+v", s)
	}
	if _, ok := New(sample()).Summary("/nope.md"); ok {
		t.Error("Summary of unknown note reported found")
	}
}
