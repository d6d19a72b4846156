package graph

import (
	"slices"
	"testing"
)

func TestBuilder_CollapsesDuplicatesAndSelfLoops(t *testing.T) {
	b := NewBuilder()

	if !b.AddEdge(1, 2) {
		t.Fatal("first 1-2 edge should be added")
	}
	if b.AddEdge(2, 1) {
		t.Error("reverse duplicate 2-1 should collapse")
	}
	if b.AddEdge(3, 3) {
		t.Error("self-loop should be dropped")
	}
	b.AddEdge(2, 4)

	stats := b.Stats()
	want := BuildStats{Nodes: 4, Edges: 2, SelfLoops: 1, DuplicateEdges: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}

	g := b.Build()
	if g.NodeCount() != 4 || g.EdgeCount() != 2 {
		t.Errorf("graph has %d nodes / %d edges, want 4 / 2", g.NodeCount(), g.EdgeCount())
	}
	if g.Degree(3) != 0 {
		t.Errorf("self-loop node should be isolated, degree %d", g.Degree(3))
	}
	if g.Degree(2) != 2 {
		t.Errorf("Degree(2) = %d, want 2", g.Degree(2))
	}
}

func TestGraph_SortedViews(t *testing.T) {
	g := FromEdges([][2]int64{{30, 10}, {30, 20}, {30, 5}}, 99)

	if got := g.Nodes(); !slices.Equal(got, []int64{5, 10, 20, 30, 99}) {
		t.Errorf("Nodes() = %v", got)
	}
	if got := g.Neighbors(30); !slices.Equal(got, []int64{5, 10, 20}) {
		t.Errorf("Neighbors(30) = %v", got)
	}
	if g.Neighbors(99) == nil || len(g.Neighbors(99)) != 0 {
		t.Errorf("isolated node should have an empty, non-nil neighbour list")
	}
	if g.Neighbors(12345) != nil {
		t.Error("unknown node should have nil neighbours")
	}
	if !g.HasEdge(10, 30) || g.HasEdge(10, 20) {
		t.Error("HasEdge disagrees with construction")
	}
	if !g.HasNode(99) || g.HasNode(100) {
		t.Error("HasNode disagrees with construction")
	}
}

func TestGraph_Labels(t *testing.T) {
	b := NewBuilder()
	b.AddEdge(1, 2)
	b.SetLabel(1, "alinemghilardi")
	b.SetLabel(7, "")
	g := b.Build()

	if g.Label(1) != "alinemghilardi" {
		t.Errorf("Label(1) = %q", g.Label(1))
	}
	if g.Label(2) != "2" {
		t.Errorf("unlabelled node should fall back to its ID, got %q", g.Label(2))
	}
	if g.Label(7) != "7" {
		t.Errorf("empty label should fall back to its ID, got %q", g.Label(7))
	}
	if !g.HasNode(7) {
		t.Error("SetLabel should add the node")
	}
}

func TestBuilder_BuildIsSnapshot(t *testing.T) {
	b := NewBuilder()
	b.AddEdge(1, 2)
	g := b.Build()

	b.AddEdge(2, 3)
	b.SetLabel(1, "later")

	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Errorf("snapshot changed after later additions: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if g.Label(1) != "1" {
		t.Errorf("snapshot label changed: %q", g.Label(1))
	}
	if g.Undirected().Nodes().Len() != 2 {
		t.Error("gonum view should match the snapshot")
	}
}

func TestGraph_Index(t *testing.T) {
	g := FromEdges([][2]int64{{8, 3}, {3, 5}})
	index := g.Index()
	for i, id := range g.Nodes() {
		if index[id] != i {
			t.Errorf("Index()[%d] = %d, want %d", id, index[id], i)
		}
	}
}
